package propagator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyljohnny/davsync/internal/db"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	sqldb, err := db.NewSqliteDb()
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	j, err := NewSQLiteJournal(sqldb)
	require.NoError(t, err)
	return j
}

func TestJournal_FileRecordRoundTrip(t *testing.T) {
	j := newTestJournal(t)

	rec, err := j.GetFileRecord("a/b.txt")
	require.NoError(t, err)
	assert.Nil(t, rec)

	want := &FileRecord{
		Path: "a/b.txt", Inode: 12345, UID: 1000, GID: 1000,
		Modtime: 100, ETag: "etag1", FileID: "id1",
	}
	require.NoError(t, j.SetFileRecord(want))

	got, err := j.GetFileRecord("a/b.txt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ETag, got.ETag)
	assert.Equal(t, want.FileID, got.FileID)
	assert.Equal(t, want.Inode, got.Inode)
	assert.Equal(t, want.UID, got.UID)
	assert.Equal(t, want.GID, got.GID)

	require.NoError(t, j.DeleteFileRecord("a/b.txt"))
	got, err = j.GetFileRecord("a/b.txt")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJournal_UploadInfoInvalidWhenAbsent(t *testing.T) {
	j := newTestJournal(t)

	info, err := j.GetUploadInfo("x")
	require.NoError(t, err)
	assert.False(t, info.Valid)

	require.NoError(t, j.SetUploadInfo("x", &UploadInfo{Valid: true, Chunk: 3, TransferID: "t1", Modtime: 42}))
	info, err = j.GetUploadInfo("x")
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.Equal(t, 3, info.Chunk)
	assert.Equal(t, "t1", info.TransferID)

	require.NoError(t, j.SetUploadInfo("x", &UploadInfo{Valid: false}))
	info, err = j.GetUploadInfo("x")
	require.NoError(t, err)
	assert.False(t, info.Valid)
}

func TestJournal_DownloadInfoRoundTrip(t *testing.T) {
	j := newTestJournal(t)

	require.NoError(t, j.SetDownloadInfo("y", &DownloadInfo{Valid: true, ETag: "e1", TmpFile: ".y.~abcd1234"}))
	info, err := j.GetDownloadInfo("y")
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.Equal(t, "e1", info.ETag)
	assert.Equal(t, ".y.~abcd1234", info.TmpFile)

	require.NoError(t, j.DeleteDownloadInfo("y"))
	info, err = j.GetDownloadInfo("y")
	require.NoError(t, err)
	assert.False(t, info.Valid)
}

package propagator

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// FileRecord is the durable, per-path metadata the propagator reads and
// writes after every successful job. Exactly one record exists per path
// that currently exists on both sides.
type FileRecord struct {
	Path        string `db:"path"`
	Inode       uint64 `db:"inode"`
	UID         uint32 `db:"uid"`
	GID         uint32 `db:"gid"`
	IsDirectory bool   `db:"is_directory"`
	Mode        uint32 `db:"mode"`
	Modtime     int64  `db:"modtime"`
	ETag        string `db:"etag"`
	FileID      string `db:"file_id"`
}

// UploadInfo is the resumable-upload checkpoint. Valid is false once the
// record has been cleared (terminal success, or source modtime changed).
type UploadInfo struct {
	Valid      bool   `db:"valid"`
	Chunk      int    `db:"chunk"`
	TransferID string `db:"transfer_id"`
	Modtime    int64  `db:"modtime"`
}

// DownloadInfo is the resumable-download checkpoint.
type DownloadInfo struct {
	Valid   bool   `db:"valid"`
	ETag    string `db:"etag"`
	TmpFile string `db:"tmp_file"`
}

// Journal is the persistence surface the job tree depends on. It is
// implemented by *SQLiteJournal; tests may substitute an in-memory fake.
type Journal interface {
	GetFileRecord(path string) (*FileRecord, error)
	SetFileRecord(rec *FileRecord) error
	DeleteFileRecord(path string) error

	GetUploadInfo(path string) (*UploadInfo, error)
	SetUploadInfo(path string, info *UploadInfo) error
	DeleteUploadInfo(path string) error

	GetDownloadInfo(path string) (*DownloadInfo, error)
	SetDownloadInfo(path string, info *DownloadInfo) error
	DeleteDownloadInfo(path string) error

	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS file_records (
	path TEXT PRIMARY KEY,
	inode INTEGER NOT NULL DEFAULT 0,
	uid INTEGER NOT NULL DEFAULT 0,
	gid INTEGER NOT NULL DEFAULT 0,
	is_directory INTEGER NOT NULL DEFAULT 0,
	mode INTEGER NOT NULL DEFAULT 0,
	modtime INTEGER NOT NULL DEFAULT 0,
	etag TEXT NOT NULL DEFAULT '',
	file_id TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS upload_infos (
	path TEXT PRIMARY KEY,
	chunk INTEGER NOT NULL DEFAULT 0,
	transfer_id TEXT NOT NULL DEFAULT '',
	modtime INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS download_infos (
	path TEXT PRIMARY KEY,
	etag TEXT NOT NULL DEFAULT '',
	tmp_file TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`

// SQLiteJournal is a sqlx-backed Journal: a TEXT timestamp column
// alongside typed columns, with Go-side presence checks standing in for
// a "valid" bit.
type SQLiteJournal struct {
	db *sqlx.DB
}

// NewSQLiteJournal wraps an already-opened sqlx.DB and ensures the schema
// exists. The caller owns the DB's lifecycle via Close.
func NewSQLiteJournal(db *sqlx.DB) (*SQLiteJournal, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

type dbFileRecord struct {
	Path        string `db:"path"`
	Inode       uint64 `db:"inode"`
	UID         uint32 `db:"uid"`
	GID         uint32 `db:"gid"`
	IsDirectory bool   `db:"is_directory"`
	Mode        uint32 `db:"mode"`
	Modtime     int64  `db:"modtime"`
	ETag        string `db:"etag"`
	FileID      string `db:"file_id"`
}

func (j *SQLiteJournal) GetFileRecord(path string) (*FileRecord, error) {
	var row dbFileRecord
	err := j.db.Get(&row, `SELECT path, inode, uid, gid, is_directory, mode, modtime, etag, file_id FROM file_records WHERE path = ?`, path)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get file record %s: %w", path, err)
	}
	return &FileRecord{
		Path:        row.Path,
		Inode:       row.Inode,
		UID:         row.UID,
		GID:         row.GID,
		IsDirectory: row.IsDirectory,
		Mode:        row.Mode,
		Modtime:     row.Modtime,
		ETag:        row.ETag,
		FileID:      row.FileID,
	}, nil
}

func (j *SQLiteJournal) SetFileRecord(rec *FileRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO file_records (path, inode, uid, gid, is_directory, mode, modtime, etag, file_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			inode = excluded.inode,
			uid = excluded.uid,
			gid = excluded.gid,
			is_directory = excluded.is_directory,
			mode = excluded.mode,
			modtime = excluded.modtime,
			etag = excluded.etag,
			file_id = excluded.file_id,
			updated_at = excluded.updated_at
	`, rec.Path, rec.Inode, rec.UID, rec.GID, rec.IsDirectory, rec.Mode, rec.Modtime, rec.ETag, rec.FileID, nowRFC3339())
	if err != nil {
		return fmt.Errorf("journal: set file record %s: %w", rec.Path, err)
	}
	return nil
}

func (j *SQLiteJournal) DeleteFileRecord(path string) error {
	if _, err := j.db.Exec(`DELETE FROM file_records WHERE path = ?`, path); err != nil {
		return fmt.Errorf("journal: delete file record %s: %w", path, err)
	}
	return nil
}

func (j *SQLiteJournal) GetUploadInfo(path string) (*UploadInfo, error) {
	var row UploadInfo
	err := j.db.Get(&row, `SELECT chunk, transfer_id, modtime FROM upload_infos WHERE path = ?`, path)
	if err == sql.ErrNoRows {
		return &UploadInfo{Valid: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get upload info %s: %w", path, err)
	}
	row.Valid = true
	return &row, nil
}

func (j *SQLiteJournal) SetUploadInfo(path string, info *UploadInfo) error {
	if info == nil || !info.Valid {
		return j.DeleteUploadInfo(path)
	}
	_, err := j.db.Exec(`
		INSERT INTO upload_infos (path, chunk, transfer_id, modtime, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			chunk = excluded.chunk,
			transfer_id = excluded.transfer_id,
			modtime = excluded.modtime,
			updated_at = excluded.updated_at
	`, path, info.Chunk, info.TransferID, info.Modtime, nowRFC3339())
	if err != nil {
		return fmt.Errorf("journal: set upload info %s: %w", path, err)
	}
	return nil
}

func (j *SQLiteJournal) DeleteUploadInfo(path string) error {
	if _, err := j.db.Exec(`DELETE FROM upload_infos WHERE path = ?`, path); err != nil {
		return fmt.Errorf("journal: delete upload info %s: %w", path, err)
	}
	return nil
}

func (j *SQLiteJournal) GetDownloadInfo(path string) (*DownloadInfo, error) {
	var row DownloadInfo
	err := j.db.Get(&row, `SELECT etag, tmp_file FROM download_infos WHERE path = ?`, path)
	if err == sql.ErrNoRows {
		return &DownloadInfo{Valid: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get download info %s: %w", path, err)
	}
	row.Valid = true
	return &row, nil
}

func (j *SQLiteJournal) SetDownloadInfo(path string, info *DownloadInfo) error {
	if info == nil || !info.Valid {
		return j.DeleteDownloadInfo(path)
	}
	_, err := j.db.Exec(`
		INSERT INTO download_infos (path, etag, tmp_file, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			etag = excluded.etag,
			tmp_file = excluded.tmp_file,
			updated_at = excluded.updated_at
	`, path, info.ETag, info.TmpFile, nowRFC3339())
	if err != nil {
		return fmt.Errorf("journal: set download info %s: %w", path, err)
	}
	return nil
}

func (j *SQLiteJournal) DeleteDownloadInfo(path string) error {
	if _, err := j.db.Exec(`DELETE FROM download_infos WHERE path = ?`, path); err != nil {
		return fmt.Errorf("journal: delete download info %s: %w", path, err)
	}
	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

var _ Journal = (*SQLiteJournal)(nil)

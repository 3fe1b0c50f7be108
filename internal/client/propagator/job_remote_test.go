package propagator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyljohnny/davsync/internal/davclient"
	"github.com/tyljohnny/davsync/internal/utils"
)

func newTestEnvWithServer(t *testing.T, handler http.HandlerFunc) (*Env, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dav, err := davclient.New(davclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	root := t.TempDir()
	j := newTestJournal(t)
	return NewEnv(root, dav, j, 0, 0, 0, nil), srv
}

func TestRemoteRemoveJob_DeletesAndClearsRecord(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, env.Journal.SetFileRecord(&FileRecord{Path: "gone.txt"}))

	item := newItem("gone.txt", false, InstructionRemove, Up)
	res := NewRemoteRemoveJob(item).Run(context.Background(), env)
	require.Equal(t, StatusSuccess, res.Status)

	rec, err := env.Journal.GetFileRecord("gone.txt")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRemoteRemoveJob_404IsSuccess(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	item := newItem("already-gone.txt", false, InstructionRemove, Up)
	res := NewRemoteRemoveJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestRemoteMkdirJob_405IsSuccess(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MKCOL", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	item := newItem("d", true, InstructionNew, Up)
	res := NewRemoteMkdirJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestRemoteMkdirJob_ServerErrorIsNormalError(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	item := newItem("d", true, InstructionNew, Up)
	res := NewRemoteMkdirJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusNormalError, res.Status)
}

func TestRemoteMkdirJob_401IsFatalError(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	item := newItem("d", true, InstructionNew, Up)
	res := NewRemoteMkdirJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusFatalError, res.Status)
}

func TestRemoteRemoveJob_429IsSoftError(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	item := newItem("f.txt", false, InstructionRemove, Up)
	res := NewRemoteRemoveJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusSoftError, res.Status)
}

func TestRemoteRemoveJob_412IsSoftError(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
	})
	item := newItem("f.txt", false, InstructionRemove, Up)
	res := NewRemoteRemoveJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusSoftError, res.Status)
}

func TestRemoteRenameJob_SamePathReconcilesMetadataOnly(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "PROPPATCH":
			w.WriteHeader(http.StatusMultiStatus)
		case http.MethodHead:
			w.Header().Set("ETag", `"e2"`)
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	})
	item := newItem("same.txt", false, InstructionRename, Up)

	res := NewRemoteRenameJob(item).Run(context.Background(), env)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "e2", item.ETag)
}

func TestRemoteRenameJob_RefusesSharedFolder_RenamesLocalCopyBack(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request should reach the server for the Shared folder")
	})
	require.NoError(t, os.Mkdir(env.LocalPath("Renamed"), 0o755))

	item := newItem(sharedFolderName, true, InstructionRename, Up)
	item.RenameTarget = "Renamed"

	res := NewRemoteRenameJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusNormalError, res.Status)
	assert.Contains(t, res.Err.Error(), "renamed back")
	assert.True(t, utils.DirExists(env.LocalPath(sharedFolderName)))
	assert.False(t, utils.DirExists(env.LocalPath("Renamed")))
}

func TestRemoteRenameJob_RefusesSharedFolder_LocalRenameBackFails(t *testing.T) {
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request should reach the server for the Shared folder")
	})
	// No local "Renamed" directory exists, so the rename-back attempt fails.
	item := newItem(sharedFolderName, true, InstructionRename, Up)
	item.RenameTarget = "Renamed"

	res := NewRemoteRenameJob(item).Run(context.Background(), env)
	assert.Equal(t, StatusNormalError, res.Status)
	assert.Contains(t, res.Err.Error(), "please rename it back locally")
}

func TestRemoteRenameJob_MovesAndReconciles(t *testing.T) {
	var sawMove bool
	env, _ := newTestEnvWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "MOVE":
			sawMove = true
			assert.Equal(t, "T", r.Header.Get("Overwrite"))
			w.WriteHeader(http.StatusCreated)
		case "PROPPATCH":
			w.WriteHeader(http.StatusMultiStatus)
		case http.MethodHead:
			w.Header().Set("ETag", `"final"`)
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	})
	require.NoError(t, env.Journal.SetFileRecord(&FileRecord{Path: "old.txt"}))

	item := newItem("old.txt", false, InstructionRename, Up)
	item.RenameTarget = "new.txt"

	res := NewRemoteRenameJob(item).Run(context.Background(), env)
	require.Equal(t, StatusSuccess, res.Status)
	assert.True(t, sawMove)
	assert.Equal(t, "new.txt", item.File)
	assert.Equal(t, InstructionDeleted, item.Instruction)

	oldRec, err := env.Journal.GetFileRecord("old.txt")
	require.NoError(t, err)
	assert.Nil(t, oldRec)

	newRec, err := env.Journal.GetFileRecord("new.txt")
	require.NoError(t, err)
	require.NotNil(t, newRec)
	assert.Equal(t, "final", newRec.ETag)
}

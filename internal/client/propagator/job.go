package propagator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/tyljohnny/davsync/internal/davclient"
)

// Job is one node of the plan tree: either a Directory job or a leaf item
// job (the six local/remote item jobs, upload, or download).
type Job interface {
	// Item is the SyncItem this job acts on, or nil for the synthetic root.
	Item() *SyncItem
	// Run executes the job to completion and reports its terminal status.
	Run(ctx context.Context, env *Env) Result
}

// Env is the shared, read-mostly state every job needs: where the local
// tree lives, how to reach the remote, how to persist progress, and where
// to publish events. One Env is shared by every job in a single run.
type Env struct {
	LocalRoot   string
	DAV         *davclient.Client
	Journal     Journal
	ChunkSize   int64
	UploadRate  int64 // bytes/sec or percentage, see Shaper
	DownloadRate int64

	events  chan<- Event
	aborted atomic.Bool
}

// NewEnv builds an Env. events may be nil if nobody is listening.
func NewEnv(localRoot string, dav *davclient.Client, journal Journal, chunkSize int64, uploadRate, downloadRate int64, events chan<- Event) *Env {
	return &Env{
		LocalRoot:    localRoot,
		DAV:          dav,
		Journal:      journal,
		ChunkSize:    chunkSize,
		UploadRate:   uploadRate,
		DownloadRate: downloadRate,
		events:       events,
	}
}

// Abort requests cooperative cancellation; in-flight chunk readers observe
// this at the next chunk boundary even when no context is threaded down
// to them.
func (e *Env) Abort() { e.aborted.Store(true) }

func (e *Env) IsAborted() bool { return e.aborted.Load() }

func (e *Env) publish(evt Event) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- evt:
	default:
	}
}

// LocalPath turns a sync-root-relative file path into an absolute one.
func (e *Env) LocalPath(relPath string) string {
	return filepath.Join(e.LocalRoot, filepath.FromSlash(relPath))
}

// updateMTimeAndETag performs the PROPPATCH+HEAD reconciliation described
// in the metadata-reconciliation component: set modtime, read back
// ETag/FileID. PROPPATCH failure is logged and ignored; HEAD failure
// is logged and leaves the item's ETag untouched.
func updateMTimeAndETag(ctx context.Context, env *Env, item *SyncItem) {
	if err := env.DAV.Proppatch(ctx, item.File, item.Modtime); err != nil {
		slog.Warn("proppatch failed", "path", item.File, "error", err)
	}
	meta, err := env.DAV.Head(ctx, item.File)
	if err != nil {
		slog.Warn("head failed", "path", item.File, "error", err)
		return
	}
	if meta.ETag != "" {
		item.ETag = meta.ETag
	}
	if meta.FileID != "" {
		item.FileID = meta.FileID
	}
}

func writeFileRecord(env *Env, item *SyncItem) error {
	rec := &FileRecord{
		Path:        item.File,
		IsDirectory: item.IsDirectory,
		Modtime:     item.Modtime,
		ETag:        item.ETag,
		FileID:      item.FileID,
	}
	return env.Journal.SetFileRecord(rec)
}

func deleteFileRecord(env *Env, path string, isDirectory bool) error {
	return env.Journal.DeleteFileRecord(path)
}

// wrapf attaches context to a lower-level error without discarding it.
func wrapf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

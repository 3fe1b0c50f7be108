package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/tyljohnny/davsync/internal/utils"
)

const (
	metadataDir    = ".data"
	journalFile    = "journal.db"
	pathSep        = string(filepath.Separator)
	lockFile       = "davsync.lock"
	legacyMetadata = ".metadata.json"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
)

// Workspace is the local sync root: a single directory tree mirrored
// against the remote, plus the metadata davsync keeps beside it.
type Workspace struct {
	Root        string
	MetadataDir string
	JournalPath string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	metaDir := filepath.Join(root, metadataDir)
	lockFilePath := filepath.Join(metaDir, lockFile)

	return &Workspace{
		Root:        root,
		MetadataDir: metaDir,
		JournalPath: filepath.Join(metaDir, journalFile),
		flock:       flock.New(lockFilePath),
	}, nil
}

func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, then don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// Setup prepares the workspace directory for a sync run: creates the
// metadata dir and takes the process lock.
func (w *Workspace) Setup() error {
	if w.isLegacyWorkspace() {
		newPath := w.Root + ".old"
		if err := os.Rename(w.Root, newPath); err != nil {
			return fmt.Errorf("failed to move legacy workspace to %s: %w", newPath, err)
		}
		slog.Warn("legacy workspace detected, moved aside", "path", newPath)
	}

	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "root", w.Root)
	return nil
}

// AbsPath returns the absolute path for a path relative to the workspace root.
func (w *Workspace) AbsPath(relPath string) string {
	return filepath.Join(w.Root, relPath)
}

// RelPath returns the path of absPath relative to the workspace root.
func (w *Workspace) RelPath(absPath string) (string, error) {
	relPath, err := filepath.Rel(w.Root, absPath)
	if err != nil {
		return "", err
	}
	return NormPath(relPath), nil
}

func (w *Workspace) IsValidPath(path string) bool {
	return IsValidPath(path)
}

func (w *Workspace) isLegacyWorkspace() bool {
	return utils.FileExists(filepath.Join(w.Root, legacyMetadata))
}

// NormPath normalizes a path by cleaning it, replacing backslashes with slashes, and trimming leading slashes
func NormPath(path string) string {
	path = filepath.Clean(path)
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	return path
}

package propagator

import (
	"context"
	"os"
	"path/filepath"
)

// LocalRemoveJob deletes a local file or, recursively, a local directory.
// Grounded on PropagateLocalRemove::start / removeRecursively: missing
// targets are success, and a failing sub-entry marks the job failed but
// does not stop the walk.
type LocalRemoveJob struct {
	item *SyncItem
}

func NewLocalRemoveJob(item *SyncItem) *LocalRemoveJob { return &LocalRemoveJob{item: item} }

func (j *LocalRemoveJob) Item() *SyncItem { return j.item }

func (j *LocalRemoveJob) Run(ctx context.Context, env *Env) Result {
	path := env.LocalPath(j.item.File)

	if j.item.IsDirectory {
		if err := removeRecursively(path); err != nil {
			return Failed(StatusNormalError, err)
		}
	} else {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return Failed(StatusNormalError, err)
		}
	}

	if err := deleteFileRecord(env, j.item.OriginalFile, j.item.IsDirectory); err != nil {
		return Failed(StatusNormalError, err)
	}
	return Succeeded()
}

// removeRecursively removes dir and everything under it, continuing past
// individual entry failures and reporting the first error encountered.
func removeRecursively(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var firstErr error
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() && !entry.Type().IsSymlink() {
			if err := removeRecursively(full); err != nil && firstErr == nil {
				firstErr = err
			}
			if err := os.Remove(full); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := os.Remove(full); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// LocalMkdirJob creates the local directory for item, including any
// missing parent components.
type LocalMkdirJob struct {
	item *SyncItem
}

func NewLocalMkdirJob(item *SyncItem) *LocalMkdirJob { return &LocalMkdirJob{item: item} }

func (j *LocalMkdirJob) Item() *SyncItem { return j.item }

func (j *LocalMkdirJob) Run(ctx context.Context, env *Env) Result {
	path := env.LocalPath(j.item.File)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Failed(StatusNormalError, err)
	}
	return Succeeded()
}

// LocalRenameJob renames a local file or directory in place. Grounded on
// PropagateLocalRename::start: on success the item's instruction is
// flipped to Deleted so nothing downstream reprocesses the old path, and
// the journal is updated from the old path to the new one.
type LocalRenameJob struct {
	item *SyncItem
}

func NewLocalRenameJob(item *SyncItem) *LocalRenameJob { return &LocalRenameJob{item: item} }

func (j *LocalRenameJob) Item() *SyncItem { return j.item }

func (j *LocalRenameJob) Run(ctx context.Context, env *Env) Result {
	if j.item.File == j.item.RenameTarget {
		return Succeeded()
	}

	oldPath := env.LocalPath(j.item.File)
	newPath := env.LocalPath(j.item.RenameTarget)

	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return Failed(StatusNormalError, err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return Failed(StatusNormalError, err)
	}

	if err := deleteFileRecord(env, j.item.File, j.item.IsDirectory); err != nil {
		return Failed(StatusNormalError, err)
	}

	j.item.Instruction = InstructionDeleted
	j.item.File = j.item.RenameTarget

	if err := writeFileRecord(env, j.item); err != nil {
		return Failed(StatusNormalError, err)
	}
	return Succeeded()
}

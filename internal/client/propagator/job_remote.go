package propagator

import (
	"context"
	"os"
)

// RemoteRemoveJob issues DELETE for the item's remote resource.
type RemoteRemoveJob struct {
	item *SyncItem
}

func NewRemoteRemoveJob(item *SyncItem) *RemoteRemoveJob { return &RemoteRemoveJob{item: item} }

func (j *RemoteRemoveJob) Item() *SyncItem { return j.item }

func (j *RemoteRemoveJob) Run(ctx context.Context, env *Env) Result {
	if err := env.DAV.Delete(ctx, j.item.File); err != nil {
		return classify(err, 0, 0)
	}
	if err := deleteFileRecord(env, j.item.OriginalFile, j.item.IsDirectory); err != nil {
		return Failed(StatusNormalError, err)
	}
	return Succeeded()
}

// RemoteMkdirJob issues MKCOL for the item's remote resource.
type RemoteMkdirJob struct {
	item *SyncItem
}

func NewRemoteMkdirJob(item *SyncItem) *RemoteMkdirJob { return &RemoteMkdirJob{item: item} }

func (j *RemoteMkdirJob) Item() *SyncItem { return j.item }

func (j *RemoteMkdirJob) Run(ctx context.Context, env *Env) Result {
	if err := env.DAV.Mkcol(ctx, j.item.File); err != nil {
		return classify(err, 0, 0)
	}
	return Succeeded()
}

// sharedFolderName is the one remote path this propagator refuses to
// rename, matching the original's hard-coded protection of the "Shared"
// top-level folder.
const sharedFolderName = "Shared"

// RemoteRenameJob covers the four cases from the rename-job component:
// a no-op re-sync of an already-renamed file's metadata, a no-op for
// directories, a refusal for the protected Shared folder, and the
// general MOVE+reconcile case.
type RemoteRenameJob struct {
	item *SyncItem
}

func NewRemoteRenameJob(item *SyncItem) *RemoteRenameJob { return &RemoteRenameJob{item: item} }

func (j *RemoteRenameJob) Item() *SyncItem { return j.item }

func (j *RemoteRenameJob) Run(ctx context.Context, env *Env) Result {
	item := j.item

	if item.File == item.RenameTarget {
		if item.IsDirectory {
			return Succeeded()
		}
		updateMTimeAndETag(ctx, env, item)
		if err := writeFileRecord(env, item); err != nil {
			return Failed(StatusNormalError, err)
		}
		return Succeeded()
	}

	if item.File == sharedFolderName {
		renameBackErr := os.Rename(env.LocalPath(item.RenameTarget), env.LocalPath(sharedFolderName))
		if renameBackErr == nil {
			return Failed(StatusNormalError, wrapf("refusing to rename the Shared folder; renamed back locally"))
		}
		return Failed(StatusNormalError, wrapf("refusing to rename the Shared folder; please rename it back locally: %v", renameBackErr))
	}

	if err := env.DAV.Move(ctx, item.File, item.RenameTarget); err != nil {
		return classify(err, 0, 0)
	}

	if err := deleteFileRecord(env, item.File, item.IsDirectory); err != nil {
		return Failed(StatusNormalError, err)
	}

	item.Instruction = InstructionDeleted
	item.File = item.RenameTarget

	updateMTimeAndETag(ctx, env, item)

	if err := writeFileRecord(env, item); err != nil {
		return Failed(StatusNormalError, err)
	}
	return Succeeded()
}

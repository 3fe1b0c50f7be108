package propagator

import (
	"sort"
	"strings"
)

// Plan orders items into a job tree rooted at a synthetic DirectoryJob,
// following the planner algorithm: sort lexicographically (so every
// parent path sorts before its descendants), walk a directory stack,
// and defer directory removals to the end so children are removed or
// moved before their parents.
func Plan(items []*SyncItem) *DirectoryJob {
	sorted := make([]*SyncItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	root := NewDirectoryJob(nil, nil)

	type frame struct {
		prefix string
		dir    *DirectoryJob
	}
	stack := []frame{{prefix: "", dir: root}}

	var deferredRemovals []*DirectoryJob
	removedDirPrefix := ""

	for _, item := range sorted {
		if item.Instruction == InstructionRemove && removedDirPrefix != "" && strings.HasPrefix(item.File, removedDirPrefix) {
			continue
		}

		for len(stack) > 1 && !strings.HasPrefix(item.File+"/", stack[len(stack)-1].prefix) {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1].dir

		if item.IsDirectory {
			firstJob := jobForItem(item)
			dirJob := NewDirectoryJob(item, firstJob)

			if item.Instruction == InstructionRemove {
				deferredRemovals = append(deferredRemovals, dirJob)
				removedDirPrefix = item.File + "/"
			} else {
				top.AddChild(dirJob)
			}
			stack = append(stack, frame{prefix: item.File + "/", dir: dirJob})
			continue
		}

		if job := jobForItem(item); job != nil {
			top.AddChild(job)
		}
	}

	for _, dj := range deferredRemovals {
		root.AddChild(dj)
	}

	return root
}

// jobForItem implements the (instruction, direction, isDirectory) job
// selection table. It returns nil for dispositions that require no job
// (directory Sync/Conflict, and Ignore); a directory New gets a mkdir job.
func jobForItem(item *SyncItem) Job {
	switch item.Instruction {
	case InstructionRemove:
		if item.Direction == Up {
			return NewRemoteRemoveJob(item)
		}
		return NewLocalRemoveJob(item)

	case InstructionNew:
		if item.IsDirectory {
			if item.Direction == Up {
				return NewRemoteMkdirJob(item)
			}
			return NewLocalMkdirJob(item)
		}
		fallthrough
	case InstructionSync, InstructionConflict:
		if item.IsDirectory {
			return nil
		}
		if item.Direction == Up {
			return NewUploadJob(item)
		}
		return NewDownloadJob(item)

	case InstructionRename:
		if item.Direction == Up {
			return NewRemoteRenameJob(item)
		}
		return NewLocalRenameJob(item)

	case InstructionIgnore:
		return nil

	default:
		return nil
	}
}

// Package propagator executes a sorted sync plan against a local filesystem
// tree and a remote WebDAV-style store: it turns SyncItems into a job tree,
// runs the jobs in order, and reports Success/Soft/Normal/Fatal outcomes.
package propagator

import "fmt"

// Direction is the side that changed relative to the other.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Instruction is the disposition csync assigned to an item during planning.
type Instruction int

const (
	InstructionNone Instruction = iota
	InstructionRemove
	InstructionNew
	InstructionSync
	InstructionConflict
	InstructionRename
	InstructionIgnore
	// InstructionDeleted is set on an item after a rename job completes so
	// that nothing downstream re-processes the pre-rename path.
	InstructionDeleted
)

func (i Instruction) String() string {
	switch i {
	case InstructionRemove:
		return "REMOVE"
	case InstructionNew:
		return "NEW"
	case InstructionSync:
		return "SYNC"
	case InstructionConflict:
		return "CONFLICT"
	case InstructionRename:
		return "RENAME"
	case InstructionIgnore:
		return "IGNORE"
	case InstructionDeleted:
		return "DELETED"
	default:
		return "NONE"
	}
}

// EmptyETag is the sentinel the server uses for "no etag assigned yet".
// HasValidETag treats it like an empty string; other ETag comparisons in
// this package compare the strings as they are.
const EmptyETag = "empty_etag"

// SyncItem is one entry of the plan handed to the propagator. Jobs mutate
// it in place but never reorder it: rename jobs set Instruction and File;
// upload, download and metadata reconciliation update ETag and FileID, and
// upload also sets Modtime and Size.
type SyncItem struct {
	File         string // forward-slash path relative to the sync root
	OriginalFile string // pre-rename path; equals File unless renamed
	RenameTarget string // post-rename path; only meaningful for Rename instructions
	IsDirectory  bool
	Direction    Direction
	Instruction  Instruction
	Size         int64
	Modtime      int64 // unix seconds
	ETag         string
	FileID       string
}

// HasValidETag reports whether ETag carries real information.
func (i *SyncItem) HasValidETag() bool {
	return i.ETag != "" && i.ETag != EmptyETag
}

func (i *SyncItem) String() string {
	return fmt.Sprintf("%s[%s,%s,dir=%v]", i.File, i.Instruction, i.Direction, i.IsDirectory)
}

// Status is the terminal outcome a job reports to its parent.
type Status int

const (
	StatusSuccess Status = iota
	StatusConflict
	StatusSoftError
	StatusNormalError
	StatusFatalError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusConflict:
		return "conflict"
	case StatusSoftError:
		return "soft_error"
	case StatusNormalError:
		return "normal_error"
	case StatusFatalError:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// IsError reports whether the status represents any non-success disposition.
func (s Status) IsError() bool {
	return s == StatusSoftError || s == StatusNormalError || s == StatusFatalError
}

// Result is what a job's Run returns.
type Result struct {
	Status  Status
	Err     error
	Message string
}

func Succeeded() Result { return Result{Status: StatusSuccess} }

func Conflicted() Result { return Result{Status: StatusConflict} }

func Failed(status Status, err error) Result {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Result{Status: status, Err: err, Message: msg}
}

// EventKind tags the progress events the propagator emits while running.
type EventKind int

const (
	EventStartUpload EventKind = iota
	EventStartDownload
	EventProgress
	EventEndUpload
	EventEndDownload
	EventItemCompleted
	EventFinished
)

var eventKindNames = [...]string{
	"start_upload", "start_download", "progress", "end_upload",
	"end_download", "item_completed", "finished",
}

func (k EventKind) String() string {
	if int(k) < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is published to Propagator subscribers as jobs make progress.
type Event struct {
	Kind    EventKind
	Path    string
	Current int64
	Total   int64
	Item    *SyncItem
	Status  Status
}

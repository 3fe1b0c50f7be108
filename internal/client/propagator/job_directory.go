package propagator

import "context"

// DirectoryJob runs its own mkdir/rename/remove first, then its children
// in order, aggregating their status the way the original propagator's
// PropagateDirectory::proceedNext does: a Fatal child stops everything
// immediately, a Normal child is recorded but siblings continue, and the
// directory's own FileRecord is only written if nothing failed.
type DirectoryJob struct {
	item     *SyncItem // nil for the synthetic root
	first    Job       // optional mkdir/rename/remove for this directory itself
	children []Job
	hasError bool
}

// NewDirectoryJob constructs a directory job for item (nil for the root).
func NewDirectoryJob(item *SyncItem, first Job) *DirectoryJob {
	return &DirectoryJob{item: item, first: first}
}

func (d *DirectoryJob) Item() *SyncItem { return d.item }

// AddChild appends a child job, preserving planner order.
func (d *DirectoryJob) AddChild(j Job) {
	d.children = append(d.children, j)
}

func (d *DirectoryJob) Run(ctx context.Context, env *Env) Result {
	if d.first != nil {
		res := d.first.Run(ctx, env)
		if res.Status == StatusFatalError {
			return res
		}
		if res.Status.IsError() {
			d.hasError = true
		}
	}

	for _, child := range d.children {
		select {
		case <-ctx.Done():
			return Failed(StatusNormalError, ctx.Err())
		default:
		}
		if env.IsAborted() {
			return Failed(StatusNormalError, ErrAborted)
		}

		res := child.Run(ctx, env)

		if item := child.Item(); item != nil {
			env.publish(Event{Kind: EventItemCompleted, Path: item.File, Item: item, Status: res.Status})
		}

		if res.Status == StatusFatalError {
			return res
		}
		if res.Status.IsError() {
			d.hasError = true
		}
	}

	if d.hasError {
		return Failed(StatusNormalError, wrapf("directory %s: one or more children failed", describeDir(d.item)))
	}

	if d.item != nil {
		if err := writeFileRecord(env, d.item); err != nil {
			return Failed(StatusNormalError, err)
		}
	}

	return Succeeded()
}

func describeDir(item *SyncItem) string {
	if item == nil {
		return "<root>"
	}
	return item.File
}

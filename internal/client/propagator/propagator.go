package propagator

import (
	"context"

	"github.com/tyljohnny/davsync/internal/davclient"
)

// Propagator executes one plan against Env's local/remote/journal and
// publishes progress events while it runs.
type Propagator struct {
	env *Env
}

// New builds a Propagator over an already-constructed Env.
func New(env *Env) *Propagator {
	return &Propagator{env: env}
}

// NewWithClients is a convenience constructor that assembles an Env from
// its parts, matching the shape cmd/client wires together.
func NewWithClients(localRoot string, dav *davclient.Client, journal Journal, chunkSize, uploadRate, downloadRate int64, events chan<- Event) *Propagator {
	return New(NewEnv(localRoot, dav, journal, chunkSize, uploadRate, downloadRate, events))
}

// Abort requests cooperative cancellation of the in-flight run.
func (p *Propagator) Abort() { p.env.Abort() }

// Run plans items and executes the resulting job tree sequentially,
// returning the root's aggregate status.
func (p *Propagator) Run(ctx context.Context, items []*SyncItem) Status {
	root := Plan(items)
	res := root.Run(ctx, p.env)
	p.env.publish(Event{Kind: EventFinished, Status: res.Status})
	return res.Status
}

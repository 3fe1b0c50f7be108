package propagator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	item   *SyncItem
	result Result
}

func (f *fakeJob) Item() *SyncItem { return f.item }
func (f *fakeJob) Run(ctx context.Context, env *Env) Result { return f.result }

func TestDirectoryJob_NormalErrorContinuesSiblings(t *testing.T) {
	env := newTestEnv(t)
	dirItem := newItem("d", true, InstructionNew, Down)
	dir := NewDirectoryJob(dirItem, nil)

	first := newItem("d/a", false, InstructionSync, Down)
	second := newItem("d/b", false, InstructionSync, Down)
	dir.AddChild(&fakeJob{item: first, result: Failed(StatusNormalError, assert.AnError)})
	dir.AddChild(&fakeJob{item: second, result: Succeeded()})

	res := dir.Run(context.Background(), env)
	assert.Equal(t, StatusNormalError, res.Status)
}

func TestDirectoryJob_FatalErrorStopsImmediately(t *testing.T) {
	env := newTestEnv(t)
	dirItem := newItem("d", true, InstructionNew, Down)
	dir := NewDirectoryJob(dirItem, nil)

	dir.AddChild(&fakeJob{item: newItem("d/a", false, InstructionSync, Down), result: Failed(StatusFatalError, assert.AnError)})

	called := false
	dir.AddChild(&recordingJob{ran: &called})

	res := dir.Run(context.Background(), env)
	assert.Equal(t, StatusFatalError, res.Status)
	assert.False(t, called)
}

type recordingJob struct {
	ran *bool
}

func (r *recordingJob) Item() *SyncItem { return nil }
func (r *recordingJob) Run(ctx context.Context, env *Env) Result {
	*r.ran = true
	return Succeeded()
}

func TestDirectoryJob_SuccessWritesFileRecord(t *testing.T) {
	env := newTestEnv(t)
	dirItem := newItem("ok", true, InstructionNew, Down)
	dir := NewDirectoryJob(dirItem, nil)
	dir.AddChild(&fakeJob{item: newItem("ok/a", false, InstructionSync, Down), result: Succeeded()})

	res := dir.Run(context.Background(), env)
	require.Equal(t, StatusSuccess, res.Status)

	rec, err := env.Journal.GetFileRecord("ok")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorFixture struct {
	api       *fakeAPI
	notifier  *recordingNotifier
	confirmer *scriptedConfirmer
	refreshes int
	handled   []Action
}

func newFixture(apps ...Application) *executorFixture {
	return &executorFixture{
		api:       newFakeAPI(apps...),
		notifier:  &recordingNotifier{},
		confirmer: &scriptedConfirmer{answer: true},
	}
}

func (f *executorFixture) handler(action Action) Handler {
	return func(context.Context, Application) error {
		f.handled = append(f.handled, action)
		return nil
	}
}

func (f *executorFixture) options(handlers ...Action) Options {
	hs := make(map[Action]Handler, len(handlers))
	for _, a := range handlers {
		hs[a] = f.handler(a)
	}
	return Options{
		API:       f.api,
		Handlers:  hs,
		Confirmer: f.confirmer,
		Notifier:  f.notifier,
		OnRefresh: func(context.Context) { f.refreshes++ },
	}
}

func (f *executorFixture) executor(t *testing.T, handlers ...Action) *Executor {
	t.Helper()
	exec, err := NewExecutor(f.options(handlers...))
	require.NoError(t, err)
	return exec
}

func TestNewExecutorRequiresAPI(t *testing.T) {
	_, err := NewExecutor(Options{})
	assert.Error(t, err)
}

func TestRejectThenUndoRoundTrip(t *testing.T) {
	f := newFixture(Application{ID: 7, Status: StatusPending, TenantName: "Ana"})
	exec := f.executor(t)
	ctx := context.Background()

	require.NoError(t, exec.Execute(ctx, ActionReject, f.api.app(7)))
	assert.Equal(t, StatusRejected, f.api.app(7).Status)

	require.NoError(t, exec.Execute(ctx, ActionUndo, f.api.app(7)))
	assert.Equal(t, StatusPending, f.api.app(7).Status)

	assert.Empty(t, f.confirmer.prompts)
	assert.Equal(t, 2, f.refreshes)
}

func TestShortlistUsesDecision(t *testing.T) {
	f := newFixture(Application{ID: 1, Status: StatusPending})
	exec := f.executor(t)

	require.NoError(t, exec.Execute(context.Background(), ActionShortlist, f.api.app(1)))

	require.Len(t, f.api.decisions, 1)
	assert.Equal(t, DecisionApprove, f.api.decisions[0].Decision)
	assert.Equal(t, ShortlistNotes, f.api.decisions[0].DecisionNotes)
	assert.Equal(t, StatusApproved, f.api.app(1).Status)
	assert.Empty(t, f.confirmer.prompts)
}

func TestDecisionFailureAlerts(t *testing.T) {
	f := newFixture(Application{ID: 1, Status: StatusPending})
	f.api.decideErr = errors.New("boom")
	exec := f.executor(t)

	err := exec.Execute(context.Background(), ActionReject, f.api.app(1))
	require.Error(t, err)
	require.Len(t, f.notifier.alerts, 1)
	assert.Contains(t, f.notifier.alerts[0], "boom")
	assert.Zero(t, f.refreshes)
}

func TestBackToPendingConfirmed(t *testing.T) {
	f := newFixture(Application{ID: 3, Status: StatusViewingCompleted})
	exec := f.executor(t)

	require.NoError(t, exec.Execute(context.Background(), ActionBackToPending, f.api.app(3)))

	assert.Equal(t, []string{BackToPendingPrompt}, f.confirmer.prompts)
	assert.Equal(t, StatusPending, f.api.app(3).Status)
	assert.Equal(t, 1, f.refreshes)
}

func TestBackToPendingDeclinedIsSilent(t *testing.T) {
	f := newFixture(Application{ID: 3, Status: StatusApproved})
	f.confirmer.answer = false
	exec := f.executor(t)

	err := exec.Execute(context.Background(), ActionBackToPending, f.api.app(3))
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Empty(t, f.api.updates)
	assert.Empty(t, f.notifier.alerts)
	assert.Zero(t, f.refreshes)
	assert.Equal(t, StatusApproved, f.api.app(3).Status)
}

func TestBackToPendingFailureAlertsWithoutRetry(t *testing.T) {
	f := newFixture(Application{ID: 3, Status: StatusApproved})
	f.api.updateErr = errors.New("network down")
	exec := f.executor(t)

	err := exec.Execute(context.Background(), ActionBackToPending, f.api.app(3))
	require.Error(t, err)
	assert.Len(t, f.api.updates, 1)
	require.Len(t, f.notifier.alerts, 1)
	assert.Contains(t, f.notifier.alerts[0], "network down")
	assert.Zero(t, f.refreshes)
}

func TestDeleteNamesTenantAndDelegates(t *testing.T) {
	f := newFixture(Application{ID: 9, Status: StatusRoomAssigned})
	exec := f.executor(t, ActionDelete)

	available := exec.Available(f.api.app(9))
	assert.Equal(t, []Action{ActionBackToPending, ActionDelete}, available)

	require.NoError(t, exec.Execute(context.Background(), ActionDelete, f.api.app(9)))
	require.Len(t, f.confirmer.prompts, 1)
	assert.Contains(t, f.confirmer.prompts[0], "Applicant #9")
	assert.Equal(t, []Action{ActionDelete}, f.handled)
}

func TestDeleteHandlerErrorIsNotAlerted(t *testing.T) {
	f := newFixture(Application{ID: 9, Status: StatusPending, TenantName: "Kim"})
	opts := f.options()
	opts.Handlers[ActionDelete] = func(context.Context, Application) error { return errors.New("gone") }
	exec, err := NewExecutor(opts)
	require.NoError(t, err)

	err = exec.Execute(context.Background(), ActionDelete, f.api.app(9))
	assert.EqualError(t, err, "gone")
	assert.Empty(t, f.notifier.alerts)
	assert.Contains(t, f.confirmer.prompts[0], "Kim")
}

func TestDeleteGate(t *testing.T) {
	f := newFixture()
	withDelete := f.executor(t, ActionDelete)
	withoutDelete := f.executor(t)

	for _, status := range []Status{StatusMovedIn, StatusActive, StatusLeaseCreated, StatusLeaseSigned} {
		assert.NotContains(t, withDelete.Available(Application{Status: status}), ActionDelete, string(status))
	}
	for _, status := range []Status{StatusPending, StatusRejected, StatusRoomAssigned, StatusLeaseReady} {
		assert.Contains(t, withDelete.Available(Application{Status: status}), ActionDelete, string(status))
		assert.NotContains(t, withoutDelete.Available(Application{Status: status}), ActionDelete, string(status))
	}
}

func TestMissingHandlersHideActions(t *testing.T) {
	f := newFixture()
	exec := f.executor(t)

	assert.Equal(t, []Action{ActionShortlist, ActionReject}, exec.Available(Application{Status: StatusPending}))
	assert.Equal(t, []Action{ActionBackToPending}, exec.Available(Application{Status: StatusApproved}))
	assert.Empty(t, exec.Available(Application{Status: StatusActive}))

	err := exec.Execute(context.Background(), ActionMoveOut, Application{ID: 1, Status: StatusMovedIn})
	assert.ErrorIs(t, err, ErrActionUnavailable)
}

func TestUnavailableActionMakesNoCalls(t *testing.T) {
	f := newFixture(Application{ID: 1, Status: StatusActive})
	exec := f.executor(t, ActionViewDetails)

	err := exec.Execute(context.Background(), ActionShortlist, f.api.app(1))
	assert.ErrorIs(t, err, ErrActionUnavailable)
	assert.Empty(t, f.api.decisions)
	assert.Empty(t, f.api.updates)
}

func TestDelegatedActionsForwardToHandler(t *testing.T) {
	f := newFixture(Application{ID: 4, Status: StatusViewingScheduled})
	exec := f.executor(t, ActionCompleteViewing, ActionReschedule)

	assert.Equal(t, []Action{ActionCompleteViewing, ActionReschedule, ActionBackToPending}, exec.Available(f.api.app(4)))

	require.NoError(t, exec.Execute(context.Background(), ActionReschedule, f.api.app(4)))
	assert.Equal(t, []Action{ActionReschedule}, f.handled)
	assert.Empty(t, f.api.updates)
	assert.Zero(t, f.refreshes)
}

func TestLeasePhaseAvailabilityFollowsLeaseStatus(t *testing.T) {
	f := newFixture()
	exec := f.executor(t, ActionViewLease, ActionSendToTenant, ActionDownloadLease, ActionActivateLease)

	draft := Application{Status: StatusLeaseCreated, Lease: &LeaseSummary{ID: 1, Status: "draft"}}
	assert.Equal(t, []Action{ActionViewLease, ActionSendToTenant, ActionDownloadLease}, exec.Available(draft))

	signed := Application{Status: StatusLeaseSigned, Lease: &LeaseSummary{ID: 1, Status: "signed"}}
	assert.Equal(t, []Action{ActionViewLease, ActionActivateLease}, exec.Available(signed))

	// Lease status is ignored outside the lease phase.
	movedIn := Application{Status: StatusMovedIn, Lease: &LeaseSummary{ID: 1, Status: "draft"}}
	assert.Empty(t, exec.Available(movedIn))
}

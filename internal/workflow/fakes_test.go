package workflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

type conflictCall struct {
	PropertyID int64
	Start, End time.Time
}

// fakeAPI applies patches and decisions to an in-memory application set.
type fakeAPI struct {
	mu sync.Mutex

	apps       map[int64]*Application
	properties map[int64]*Property
	conflicts  *ConflictReport

	updateErr   error
	decideErr   error
	propertyErr error
	conflictErr error

	updates       []ApplicationPatch
	decisions     []Decision
	propertyCalls []int64
	conflictCalls []conflictCall
}

func newFakeAPI(apps ...Application) *fakeAPI {
	f := &fakeAPI{
		apps:       make(map[int64]*Application),
		properties: make(map[int64]*Property),
	}
	for i := range apps {
		app := apps[i]
		f.apps[app.ID] = &app
	}
	return f
}

func (f *fakeAPI) app(id int64) Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.apps[id]
}

func (f *fakeAPI) UpdateApplication(_ context.Context, id int64, patch ApplicationPatch) (*Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates = append(f.updates, patch)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	app, ok := f.apps[id]
	if !ok {
		return nil, errors.New("application not found")
	}
	if patch.Status != nil {
		app.Status = *patch.Status
	}
	if patch.DecisionNotes != nil {
		app.DecisionNotes = *patch.DecisionNotes
	}
	out := *app
	return &out, nil
}

func (f *fakeAPI) DecideApplication(_ context.Context, id int64, decision Decision) (*Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.decisions = append(f.decisions, decision)
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	app, ok := f.apps[id]
	if !ok {
		return nil, errors.New("application not found")
	}
	switch decision.Decision {
	case DecisionApprove:
		app.Status = StatusApproved
	case DecisionReject:
		app.Status = StatusRejected
	}
	app.DecisionNotes = decision.DecisionNotes
	out := *app
	return &out, nil
}

func (f *fakeAPI) GetProperty(_ context.Context, id int64) (*Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.propertyCalls = append(f.propertyCalls, id)
	if f.propertyErr != nil {
		return nil, f.propertyErr
	}
	prop, ok := f.properties[id]
	if !ok {
		return &Property{ID: id}, nil
	}
	out := *prop
	return &out, nil
}

func (f *fakeAPI) CheckTenantConflicts(_ context.Context, propertyID int64, start, end time.Time) (*ConflictReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.conflictCalls = append(f.conflictCalls, conflictCall{PropertyID: propertyID, Start: start, End: end})
	if f.conflictErr != nil {
		return nil, f.conflictErr
	}
	if f.conflicts == nil {
		return &ConflictReport{}, nil
	}
	return f.conflicts, nil
}

type recordingNotifier struct {
	alerts  []string
	notices []string
}

func (n *recordingNotifier) Alert(_ context.Context, message string)  { n.alerts = append(n.alerts, message) }
func (n *recordingNotifier) Notify(_ context.Context, message string) { n.notices = append(n.notices, message) }

type scriptedConfirmer struct {
	answer  bool
	prompts []string
}

func (c *scriptedConfirmer) Confirm(_ context.Context, prompt string) bool {
	c.prompts = append(c.prompts, prompt)
	return c.answer
}

// capturingModal records what it was opened with and optionally submits.
type capturingModal struct {
	opened int
	draft  AssignmentDraft
	submit SubmitFunc
}

func (m *capturingModal) Open(_ context.Context, draft AssignmentDraft, submit SubmitFunc) error {
	m.opened++
	m.draft = draft
	m.submit = submit
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

// internal/handlers/board.go
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/tink-backend/internal/i18n"
	"github.com/javajoker/tink-backend/internal/services"
	"github.com/javajoker/tink-backend/internal/utils"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type BoardHandler struct {
	boardService       *services.BoardService
	applicationService *services.ApplicationService
	viewingService     *services.ViewingService
	propertyService    *services.PropertyService
	leaseService       *services.LeaseService
}

func NewBoardHandler(
	boardService *services.BoardService,
	applicationService *services.ApplicationService,
	viewingService *services.ViewingService,
	propertyService *services.PropertyService,
	leaseService *services.LeaseService,
) *BoardHandler {
	return &BoardHandler{
		boardService:       boardService,
		applicationService: applicationService,
		viewingService:     viewingService,
		propertyService:    propertyService,
		leaseService:       leaseService,
	}
}

// ActionView is one button on a card.
type ActionView struct {
	Action workflow.Action `json:"action"`
	Label  string          `json:"label"`
}

type BoardCard struct {
	workflow.Application
	Actions []ActionView `json:"actions"`
}

type BoardColumn struct {
	Title    string            `json:"title"`
	SortMode workflow.SortMode `json:"sort_mode"`
	Cards    []BoardCard       `json:"cards"`
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ActionRequest is the body of an action call. Fields other than Confirm
// apply to the actions that need them.
type ActionRequest struct {
	Confirm bool `json:"confirm"`

	// schedule_viewing, reschedule
	Date          string   `json:"date,omitempty"`
	Time          string   `json:"time,omitempty"`
	ContactPerson string   `json:"contact_person,omitempty"`
	ContactPhone  string   `json:"contact_phone,omitempty"`
	Attendees     []string `json:"attendees,omitempty"`
	Notes         string   `json:"notes,omitempty"`

	// complete_viewing
	Outcome string `json:"outcome,omitempty"`

	// change_room
	RoomID int64 `json:"room_id,omitempty"`

	// move_out
	MoveOutDate string `json:"move_out_date,omitempty"`
}

func (r *ActionRequest) viewing() *services.ScheduleViewingRequest {
	return &services.ScheduleViewingRequest{
		Date:          r.Date,
		Time:          r.Time,
		ContactPerson: r.ContactPerson,
		ContactPhone:  r.ContactPhone,
		Attendees:     r.Attendees,
		Notes:         r.Notes,
	}
}

// AssignmentRequest is the submitted assignment modal.
type AssignmentRequest struct {
	Rent      float64 `json:"rent" validate:"gt=0"`
	Deposit   float64 `json:"deposit" validate:"gte=0"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Confirm   bool    `json:"confirm"`
}

func (r *AssignmentRequest) terms() (workflow.AssignmentTerms, error) {
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return workflow.AssignmentTerms{}, err
	}
	end, err := time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return workflow.AssignmentTerms{}, err
	}
	return workflow.AssignmentTerms{Rent: r.Rent, Deposit: r.Deposit, StartDate: start, EndDate: end}, nil
}

// actionRun collects what one executor call produced.
type actionRun struct {
	confirm bool
	prompt  string
	notices []Notice
	data    interface{}
	deleted bool
}

func (r *actionRun) Confirm(_ context.Context, prompt string) bool {
	if r.confirm {
		return true
	}
	r.prompt = prompt
	return false
}

func (r *actionRun) Alert(_ context.Context, message string) {
	r.notices = append(r.notices, Notice{Level: "error", Message: message})
}

func (r *actionRun) Notify(_ context.Context, message string) {
	r.notices = append(r.notices, Notice{Level: "info", Message: message})
}

// draftModal answers an assignment by handing the prefilled draft back to
// the client.
type draftModal struct {
	run *actionRun
}

func (m draftModal) Open(_ context.Context, draft workflow.AssignmentDraft, _ workflow.SubmitFunc) error {
	m.run.data = draft
	return nil
}

// submitModal answers an assignment by submitting the client's terms.
type submitModal struct {
	terms workflow.AssignmentTerms
}

func (m submitModal) Open(ctx context.Context, _ workflow.AssignmentDraft, submit workflow.SubmitFunc) error {
	return submit(ctx, m.terms)
}

// executor wires the workflow to this actor's services for one request.
func (h *BoardHandler) executor(actor services.Actor, req *ActionRequest, run *actionRun, modal workflow.ModalHost) (*workflow.Executor, error) {
	if req == nil {
		req = &ActionRequest{}
	}
	if modal == nil {
		modal = draftModal{run: run}
	}

	detail := func(ctx context.Context, app workflow.Application) error {
		full, err := h.applicationService.Get(ctx, actor, app.ID)
		if err != nil {
			return err
		}
		run.data = full
		return nil
	}

	handlers := map[workflow.Action]workflow.Handler{
		workflow.ActionReview:        detail,
		workflow.ActionReviewDetails: detail,
		workflow.ActionViewDetails:   detail,
		workflow.ActionViewLease: func(ctx context.Context, app workflow.Application) error {
			lease, err := h.leaseService.Get(ctx, actor, app.ID)
			if err != nil {
				return err
			}
			run.data = lease
			return nil
		},
		workflow.ActionScheduleViewing: func(ctx context.Context, app workflow.Application) error {
			viewing := req.viewing()
			if err := validate(viewing); err != nil {
				return err
			}
			out, err := h.viewingService.Schedule(ctx, actor, app.ID, viewing)
			run.data = out
			return err
		},
		workflow.ActionReschedule: func(ctx context.Context, app workflow.Application) error {
			viewing := req.viewing()
			if err := validate(viewing); err != nil {
				return err
			}
			out, err := h.viewingService.Reschedule(ctx, actor, app.ID, viewing)
			run.data = out
			return err
		},
		workflow.ActionCompleteViewing: func(ctx context.Context, app workflow.Application) error {
			completion := &services.CompleteViewingRequest{Outcome: req.Outcome, Notes: req.Notes}
			if err := validate(completion); err != nil {
				return err
			}
			out, err := h.viewingService.Complete(ctx, actor, app.ID, completion)
			run.data = out
			return err
		},
		workflow.ActionChangeRoom: func(ctx context.Context, app workflow.Application) error {
			assign := &services.AssignRoomRequest{RoomID: req.RoomID}
			if err := validate(assign); err != nil {
				return err
			}
			_, err := h.propertyService.AssignRoom(ctx, actor, app.ID, assign)
			return err
		},
		workflow.ActionMoveOut: func(ctx context.Context, app workflow.Application) error {
			moveOut := &services.MoveOutRequest{MoveOutDate: req.MoveOutDate}
			if err := validate(moveOut); err != nil {
				return err
			}
			_, err := h.leaseService.MoveOut(ctx, actor, app.ID, moveOut)
			return err
		},
		workflow.ActionGenerateLease: func(ctx context.Context, app workflow.Application) error {
			lease, err := h.leaseService.Generate(ctx, actor, app.ID)
			run.data = lease
			return err
		},
		workflow.ActionSendToTenant: func(ctx context.Context, app workflow.Application) error {
			lease, err := h.leaseService.Send(ctx, actor, app.ID)
			run.data = lease
			return err
		},
		workflow.ActionActivateLease: func(ctx context.Context, app workflow.Application) error {
			lease, err := h.leaseService.Activate(ctx, actor, app.ID)
			run.data = lease
			return err
		},
		workflow.ActionDownloadLease: func(ctx context.Context, app workflow.Application) error {
			doc, err := h.leaseService.DocumentURL(ctx, actor, app.ID)
			run.data = doc
			return err
		},
		workflow.ActionDelete: func(ctx context.Context, app workflow.Application) error {
			if err := h.applicationService.Delete(ctx, actor, app.ID); err != nil {
				return err
			}
			run.deleted = true
			return nil
		},
	}

	return workflow.NewExecutor(workflow.Options{
		API:        h.applicationService.For(actor),
		Handlers:   handlers,
		Assignment: workflow.AssignmentWiring{Modal: modal},
		Confirmer:  run,
		Notifier:   run,
		Logger:     logrus.StandardLogger(),
	})
}

func actionViews(actions []workflow.Action) []ActionView {
	out := make([]ActionView, 0, len(actions))
	for _, action := range actions {
		out = append(out, ActionView{Action: action, Label: action.Label()})
	}
	return out
}

// GET /board
func (h *BoardHandler) GetBoard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	groups, err := h.boardService.Board(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	exec, err := h.executor(actor, nil, &actionRun{}, nil)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	columns := make([]BoardColumn, 0, len(groups))
	for _, group := range groups {
		column := BoardColumn{Title: group.Title, SortMode: group.SortMode, Cards: make([]BoardCard, 0, len(group.Applications))}
		for _, app := range group.Applications {
			column.Cards = append(column.Cards, BoardCard{Application: app, Actions: actionViews(exec.Available(app))})
		}
		columns = append(columns, column)
	}

	utils.SuccessResponse(c, gin.H{"columns": columns})
}

// POST /board/columns/:title/sort
func (h *BoardHandler) ToggleSort(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	title := c.Param("title")
	known := title == workflow.ColumnUnmapped
	for _, column := range workflow.Columns() {
		if column.Title == title {
			known = true
		}
	}
	if !known {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "column"), nil)
		return
	}

	mode := h.boardService.ToggleSort(actor.UserID, title)
	utils.SuccessResponse(c, gin.H{"title": title, "sort_mode": mode})
}

// GET /applications/:id/actions
func (h *BoardHandler) GetActions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	app, err := h.applicationService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	exec, err := h.executor(actor, nil, &actionRun{}, nil)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"status":  app.Status,
		"column":  workflow.ColumnFor(string(app.Status)),
		"actions": actionViews(exec.Available(app.ToWorkflow())),
	})
}

// POST /applications/:id/actions/:action
func (h *BoardHandler) ExecuteAction(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	action, err := workflow.ParseAction(c.Param("action"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "action"), err.Error())
		return
	}

	var req ActionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
	}

	run := &actionRun{confirm: req.Confirm}
	h.run(c, id, action, &req, run, nil)
}

// POST /applications/:id/assignment
func (h *BoardHandler) OpenAssignment(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	h.run(c, id, workflow.ActionAssignToProperty, &ActionRequest{}, &actionRun{}, nil)
}

// POST /applications/:id/assignment/submit
func (h *BoardHandler) SubmitAssignment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	terms, err := req.terms()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "dates"), err.Error())
		return
	}

	run := &actionRun{confirm: req.Confirm}
	h.run(c, id, workflow.ActionAssignToProperty, &ActionRequest{Confirm: req.Confirm}, run, submitModal{terms: terms})
}

func (h *BoardHandler) run(c *gin.Context, id int64, action workflow.Action, req *ActionRequest, run *actionRun, modal workflow.ModalHost) {
	ctx := c.Request.Context()
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	app, err := h.applicationService.Get(ctx, actor, id)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	exec, err := h.executor(actor, req, run, modal)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	if err := exec.Execute(ctx, action, app.ToWorkflow()); err != nil {
		if errors.Is(err, workflow.ErrDeclined) && run.prompt != "" {
			utils.ConfirmationRequiredResponse(c, run.prompt)
			return
		}
		resource := "application"
		if action.IsLeaseAction() {
			resource = "lease"
		}
		respondError(c, err, resource)
		return
	}

	notices := run.notices
	if notices == nil {
		notices = []Notice{}
	}
	response := gin.H{
		"action":  action,
		"notices": notices,
	}
	if run.data != nil {
		response["data"] = run.data
	}
	if !run.deleted {
		refreshed, err := h.applicationService.Get(ctx, actor, id)
		if err != nil {
			respondError(c, err, "application")
			return
		}
		response["application"] = refreshed
	}

	utils.SuccessResponse(c, response)
}

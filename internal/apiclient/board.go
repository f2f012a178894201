// internal/apiclient/board.go
package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/javajoker/tink-backend/internal/workflow"
)

type ActionView struct {
	Action workflow.Action `json:"action"`
	Label  string          `json:"label"`
}

type Card struct {
	workflow.Application
	Actions []ActionView `json:"actions"`
}

type Column struct {
	Title    string            `json:"title"`
	SortMode workflow.SortMode `json:"sort_mode"`
	Cards    []Card            `json:"cards"`
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ActionRequest is the body of a server-side action. Only the fields the
// action reads need to be set.
type ActionRequest struct {
	Confirm       bool     `json:"confirm,omitempty"`
	Date          string   `json:"date,omitempty"`
	Time          string   `json:"time,omitempty"`
	ContactPerson string   `json:"contact_person,omitempty"`
	ContactPhone  string   `json:"contact_phone,omitempty"`
	Attendees     []string `json:"attendees,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Outcome       string   `json:"outcome,omitempty"`
	RoomID        int64    `json:"room_id,omitempty"`
	MoveOutDate   string   `json:"move_out_date,omitempty"`
}

type AssignmentRequest struct {
	Rent      float64 `json:"rent"`
	Deposit   float64 `json:"deposit"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Confirm   bool    `json:"confirm,omitempty"`
}

// TermsRequest formats accepted terms for the submit endpoint.
func TermsRequest(terms workflow.AssignmentTerms) AssignmentRequest {
	return AssignmentRequest{
		Rent:      terms.Rent,
		Deposit:   terms.Deposit,
		StartDate: terms.StartDate.Format("2006-01-02"),
		EndDate:   terms.EndDate.Format("2006-01-02"),
	}
}

// ActionResult is what the server reports after running an action.
// Application is nil when the action deleted it.
type ActionResult struct {
	Action      workflow.Action
	Notices     []Notice
	Data        json.RawMessage
	Application *workflow.Application
}

type actionResponse struct {
	Action      workflow.Action `json:"action"`
	Notices     []Notice        `json:"notices"`
	Data        json.RawMessage `json:"data"`
	Application *application    `json:"application"`
}

func (r *actionResponse) result() *ActionResult {
	out := &ActionResult{Action: r.Action, Notices: r.Notices, Data: r.Data}
	if r.Application != nil {
		out.Application = r.Application.workflow()
	}
	return out
}

func (c *Client) Board(ctx context.Context) ([]Column, error) {
	var out struct {
		Columns []Column `json:"columns"`
	}
	if err := c.do(ctx, http.MethodGet, "/board", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

func (c *Client) ToggleSort(ctx context.Context, title string) (workflow.SortMode, error) {
	var out struct {
		SortMode workflow.SortMode `json:"sort_mode"`
	}
	path := "/board/columns/" + url.PathEscape(title) + "/sort"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &out); err != nil {
		return "", err
	}
	return out.SortMode, nil
}

func (c *Client) Actions(ctx context.Context, id int64) ([]ActionView, error) {
	var out struct {
		Actions []ActionView `json:"actions"`
	}
	if err := c.do(ctx, http.MethodGet, idPath("/applications", id, "actions"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Actions, nil
}

func (c *Client) Execute(ctx context.Context, id int64, action workflow.Action, req ActionRequest) (*ActionResult, error) {
	var out actionResponse
	if err := c.do(ctx, http.MethodPost, idPath("/applications", id, "actions", string(action)), nil, req, &out); err != nil {
		return nil, err
	}
	return out.result(), nil
}

func (c *Client) OpenAssignment(ctx context.Context, id int64) (*workflow.AssignmentDraft, error) {
	var out struct {
		Data *workflow.AssignmentDraft `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, idPath("/applications", id, "assignment"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) SubmitAssignment(ctx context.Context, id int64, req AssignmentRequest) (*ActionResult, error) {
	var out actionResponse
	if err := c.do(ctx, http.MethodPost, idPath("/applications", id, "assignment", "submit"), nil, req, &out); err != nil {
		return nil, err
	}
	return out.result(), nil
}

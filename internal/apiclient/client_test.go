package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type fakeServer struct {
	engine   *gin.Engine
	requests []*http.Request
	bodies   []map[string]interface{}
}

func newFakeServer(t *testing.T) (*fakeServer, *Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fakeServer{engine: gin.New()}
	f.engine.Use(func(c *gin.Context) {
		var body map[string]interface{}
		if c.Request.ContentLength > 0 {
			_ = json.NewDecoder(c.Request.Body).Decode(&body)
		}
		f.requests = append(f.requests, c.Request.Clone(context.Background()))
		f.bodies = append(f.bodies, body)
		c.Next()
	})

	srv := httptest.NewServer(f.engine)
	t.Cleanup(srv.Close)

	client := New(config.ClientConfig{BaseURL: srv.URL + "/v1/", Token: "staff-token", Timeout: 5 * time.Second})
	return f, client
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, gin.H{"success": false, "error": gin.H{"code": code, "message": message, "details": details}})
}

var storedApplication = gin.H{
	"id":               7,
	"property_id":      3,
	"tenant_name":      "Avery Chen",
	"status":           "approved",
	"application_date": "2024-01-15T00:00:00Z",
	"decision_notes":   workflow.ShortlistNotes,
	"viewings": []gin.H{{
		"id": 1, "scheduled_date": "2024-02-10T00:00:00Z", "scheduled_time": "14:30", "contact_person": "Robin",
	}},
	"lease": gin.H{"id": 4, "status": "draft"},
}

func TestUpdateApplicationSendsPatch(t *testing.T) {
	f, client := newFakeServer(t)
	f.engine.PATCH("/v1/applications/:id", func(c *gin.Context) {
		ok(c, gin.H{"message": "updated", "application": storedApplication})
	})

	status := workflow.StatusApproved
	notes := workflow.ShortlistNotes
	app, err := client.UpdateApplication(context.Background(), 7, workflow.ApplicationPatch{Status: &status, DecisionNotes: &notes})
	require.NoError(t, err)

	require.Len(t, f.requests, 1)
	assert.Equal(t, "Bearer staff-token", f.requests[0].Header.Get("Authorization"))
	assert.Equal(t, "/v1/applications/7", f.requests[0].URL.Path)
	assert.Equal(t, "approved", f.bodies[0]["status"])
	assert.Equal(t, notes, f.bodies[0]["decision_notes"])

	assert.Equal(t, int64(3), app.PropertyRef)
	assert.Equal(t, workflow.StatusApproved, app.Status)
	require.Len(t, app.Viewings, 1)
	assert.Equal(t, "Robin", app.Viewings[0].ContactPerson)
	require.NotNil(t, app.Lease)
	assert.Equal(t, "draft", app.Lease.Status)
}

func TestCheckTenantConflictsQuery(t *testing.T) {
	f, client := newFakeServer(t)
	f.engine.GET("/v1/properties/:id/tenant-conflicts", func(c *gin.Context) {
		ok(c, gin.H{"has_conflicts": true, "conflicts": []gin.H{{"tenant_name": "Devon Price"}}})
	})

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := client.CheckTenantConflicts(context.Background(), 3, start, start.AddDate(1, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", f.requests[0].URL.Query().Get("start_date"))
	assert.Equal(t, "2025-03-01", f.requests[0].URL.Query().Get("end_date"))
	assert.True(t, report.HasConflicts)
	assert.Equal(t, "Devon Price", report.Conflicts[0].TenantName)
}

func TestErrorsAreTyped(t *testing.T) {
	f, client := newFakeServer(t)
	f.engine.GET("/v1/applications/:id", func(c *gin.Context) {
		fail(c, http.StatusNotFound, "NOT_FOUND", "Application not found", nil)
	})
	f.engine.POST("/v1/applications/:id/actions/:action", func(c *gin.Context) {
		fail(c, http.StatusConflict, CodeConfirmationRequired, workflow.BackToPendingPrompt, gin.H{"prompt": workflow.BackToPendingPrompt})
	})

	_, err := client.GetApplication(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, isPrompt := ConfirmationPrompt(err)
	assert.False(t, isPrompt)

	_, err = client.Execute(context.Background(), 7, workflow.ActionBackToPending, ActionRequest{})
	prompt, isPrompt := ConfirmationPrompt(err)
	assert.True(t, isPrompt)
	assert.Equal(t, workflow.BackToPendingPrompt, prompt)
}

func TestValidationErrorsKeepFieldDetails(t *testing.T) {
	f, client := newFakeServer(t)
	f.engine.POST("/v1/applications/:id/actions/:action", func(c *gin.Context) {
		fail(c, http.StatusBadRequest, CodeValidation, "Validation failed", []gin.H{
			{"field": "date", "tag": "required", "message": "date is required"},
			{"field": "time", "tag": "datetime", "message": "time must be HH:MM"},
		})
	})

	_, err := client.Execute(context.Background(), 7, workflow.ActionScheduleViewing, ActionRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeValidation, apiErr.Code)
	assert.Equal(t, []FieldError{
		{Field: "date", Tag: "required", Message: "date is required"},
		{Field: "time", Tag: "datetime", Message: "time must be HH:MM"},
	}, apiErr.Fields)
	assert.Len(t, apiErr.Details, 2)
	assert.Contains(t, err.Error(), "date: date is required; time: time must be HH:MM")

	_, isPrompt := ConfirmationPrompt(err)
	assert.False(t, isPrompt)
}

func TestBoardAndAssignment(t *testing.T) {
	f, client := newFakeServer(t)
	f.engine.GET("/v1/board", func(c *gin.Context) {
		ok(c, gin.H{"columns": []gin.H{{
			"title":     workflow.ColumnPending,
			"sort_mode": "date",
			"cards": []gin.H{{
				"id": 7, "status": "pending", "tenant_name": "Avery Chen", "property_ref": 3,
				"actions": []gin.H{{"action": "review", "label": "Review"}},
			}},
		}}})
	})
	f.engine.POST("/v1/board/columns/:title/sort", func(c *gin.Context) {
		ok(c, gin.H{"title": c.Param("title"), "sort_mode": "name"})
	})
	f.engine.POST("/v1/applications/:id/assignment", func(c *gin.Context) {
		ok(c, gin.H{"action": "assign_to_property", "notices": []gin.H{}, "data": gin.H{
			"application": gin.H{"id": 7, "status": "approved"},
			"property":    gin.H{"id": 3, "name": "Maple House", "monthly_rent": 1500},
			"terms":       gin.H{"rent": 1500, "deposit": 3000, "start_date": "2024-03-01T00:00:00Z", "end_date": "2025-03-01T00:00:00Z"},
		}})
	})
	f.engine.POST("/v1/applications/:id/assignment/submit", func(c *gin.Context) {
		ok(c, gin.H{
			"action":      "assign_to_property",
			"notices":     []gin.H{{"level": "info", "message": "Avery Chen has been assigned to Maple House"}},
			"application": gin.H{"id": 7, "status": "moved_in", "property_id": 3},
		})
	})

	columns, err := client.Board(context.Background())
	require.NoError(t, err)
	require.Len(t, columns, 1)
	assert.Equal(t, workflow.SortDate, columns[0].SortMode)
	assert.Equal(t, "Avery Chen", columns[0].Cards[0].TenantName)
	assert.Equal(t, workflow.ActionReview, columns[0].Cards[0].Actions[0].Action)

	mode, err := client.ToggleSort(context.Background(), workflow.ColumnPending)
	require.NoError(t, err)
	assert.Equal(t, workflow.SortName, mode)

	draft, err := client.OpenAssignment(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Maple House", draft.Property.Name)
	assert.Equal(t, 3000.0, draft.Terms.Deposit)

	result, err := client.SubmitAssignment(context.Background(), 7, TermsRequest(draft.Terms))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", f.bodies[len(f.bodies)-1]["start_date"])
	assert.Equal(t, workflow.StatusMovedIn, result.Application.Status)
	assert.Equal(t, "info", result.Notices[0].Level)
}

func TestExecutorDrivesRemoteAPI(t *testing.T) {
	f, client := newFakeServer(t)
	var decided, patched map[string]interface{}
	f.engine.POST("/v1/applications/:id/decide", func(c *gin.Context) {
		decided = f.bodies[len(f.bodies)-1]
		ok(c, gin.H{"message": "updated", "application": storedApplication})
	})
	f.engine.PATCH("/v1/applications/:id", func(c *gin.Context) {
		patched = f.bodies[len(f.bodies)-1]
		ok(c, gin.H{"message": "updated", "application": storedApplication})
	})

	exec, err := workflow.NewExecutor(workflow.Options{
		API:       client,
		Confirmer: workflow.ConfirmFunc(func(context.Context, string) bool { return true }),
	})
	require.NoError(t, err)

	app := workflow.Application{ID: 7, Status: workflow.StatusPending, TenantName: "Avery Chen", PropertyRef: 3}
	require.NoError(t, exec.Execute(context.Background(), workflow.ActionShortlist, app))
	assert.Equal(t, "approve", decided["decision"])
	assert.Equal(t, workflow.ShortlistNotes, decided["decision_notes"])

	app.Status = workflow.StatusApproved
	require.NoError(t, exec.Execute(context.Background(), workflow.ActionBackToPending, app))
	assert.Equal(t, "pending", patched["status"])
	assert.NotContains(t, patched, "decision_notes")
}

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

type fakeAPI struct {
	mu     sync.Mutex
	engine *gin.Engine
	calls  []recordedCall
	status string
}

func newFakeAPI(t *testing.T, status string) (*fakeAPI, config.ClientConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fakeAPI{engine: gin.New(), status: status}
	f.engine.Use(func(c *gin.Context) {
		var body map[string]interface{}
		if c.Request.ContentLength > 0 {
			_ = json.NewDecoder(c.Request.Body).Decode(&body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: c.Request.Method, Path: c.Request.URL.Path, Body: body})
		f.mu.Unlock()
		c.Next()
	})

	respond := func(c *gin.Context, data interface{}) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
	}
	application := func() gin.H {
		return gin.H{
			"id":               7,
			"property_id":      3,
			"tenant_name":      "Avery Chen",
			"status":           f.status,
			"application_date": "2024-01-15T00:00:00Z",
		}
	}

	f.engine.GET("/v1/applications/:id", func(c *gin.Context) { respond(c, application()) })
	f.engine.PATCH("/v1/applications/:id", func(c *gin.Context) {
		body := f.last().Body
		if status, ok := body["status"].(string); ok {
			f.status = status
		}
		respond(c, gin.H{"message": "updated", "application": application()})
	})
	f.engine.DELETE("/v1/applications/:id", func(c *gin.Context) { respond(c, gin.H{"message": "deleted"}) })
	f.engine.GET("/v1/properties/:id", func(c *gin.Context) {
		respond(c, gin.H{"id": 3, "name": "Maple House", "monthly_rent": 1500, "security_deposit": 3000})
	})
	f.engine.GET("/v1/properties/:id/tenant-conflicts", func(c *gin.Context) {
		respond(c, gin.H{"has_conflicts": true, "conflicts": []gin.H{{"tenant_name": "Devon Price"}}})
	})
	f.engine.POST("/v1/applications/:id/actions/:action", func(c *gin.Context) {
		f.status = "viewing_scheduled"
		respond(c, gin.H{
			"action":      c.Param("action"),
			"notices":     []gin.H{},
			"application": application(),
		})
	})
	f.engine.GET("/v1/board", func(c *gin.Context) {
		respond(c, gin.H{"columns": []gin.H{
			{"title": "Pending", "sort_mode": "default", "cards": []gin.H{{
				"id": 7, "tenant_name": "Avery Chen", "status": "pending", "property_ref": 3,
				"application_date": "2024-01-15T00:00:00Z",
				"actions":          []gin.H{{"action": "review", "label": "Review"}, {"action": "shortlist", "label": "Shortlist"}},
			}}},
			{"title": "Shortlisted", "sort_mode": "name", "cards": []gin.H{}},
			{"title": "Active", "sort_mode": "default", "cards": []gin.H{}},
		}})
	})
	f.engine.POST("/v1/board/columns/:title/sort", func(c *gin.Context) {
		respond(c, gin.H{"title": c.Param("title"), "sort_mode": "date"})
	})

	srv := httptest.NewServer(f.engine)
	t.Cleanup(srv.Close)
	return f, config.ClientConfig{BaseURL: srv.URL + "/v1", Token: "staff-token", Timeout: 5 * time.Second}
}

func (f *fakeAPI) last() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeAPI) find(method, path string) (recordedCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if call.Method == method && call.Path == path {
			return call, true
		}
	}
	return recordedCall{}, false
}

func runCLI(t *testing.T, cfg config.ClientConfig, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(cfg, strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBackToPendingAsksFirst(t *testing.T) {
	api, cfg := newFakeAPI(t, "approved")

	out, err := runCLI(t, cfg, "y\n", "run", "7", "back_to_pending")
	require.NoError(t, err)

	assert.Contains(t, out, workflow.BackToPendingPrompt)
	assert.Contains(t, out, "Avery Chen is now pending")
	call, ok := api.find(http.MethodPatch, "/v1/applications/7")
	require.True(t, ok)
	assert.Equal(t, "pending", call.Body["status"])
}

func TestDeclinedDeleteSendsNothing(t *testing.T) {
	api, cfg := newFakeAPI(t, "pending")

	out, err := runCLI(t, cfg, "n\n", "run", "7", "delete")
	require.NoError(t, err)

	assert.Contains(t, out, "Avery Chen")
	assert.Contains(t, out, "Cancelled.")
	_, deleted := api.find(http.MethodDelete, "/v1/applications/7")
	assert.False(t, deleted)

	out, err = runCLI(t, cfg, "", "run", "7", "delete", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Avery Chen deleted")
	_, deleted = api.find(http.MethodDelete, "/v1/applications/7")
	assert.True(t, deleted)
}

func TestUnavailableActionListsAlternatives(t *testing.T) {
	_, cfg := newFakeAPI(t, "pending")

	_, err := runCLI(t, cfg, "", "run", "7", "move_out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "move_out is not available while pending")
	assert.Contains(t, err.Error(), "shortlist")

	_, err = runCLI(t, cfg, "", "run", "7", "teleport")
	assert.Error(t, err)
	_, err = runCLI(t, cfg, "", "run", "seven", "review")
	assert.Error(t, err)
}

func TestScheduleViewingIsForwarded(t *testing.T) {
	api, cfg := newFakeAPI(t, "approved")

	out, err := runCLI(t, cfg, "", "run", "7", "schedule_viewing",
		"--date", "2024-02-10", "--time", "14:30", "--contact", "Robin", "--attendee", "Sam", "--attendee", "Lee")
	require.NoError(t, err)

	call, ok := api.find(http.MethodPost, "/v1/applications/7/actions/schedule_viewing")
	require.True(t, ok)
	assert.Equal(t, "2024-02-10", call.Body["date"])
	assert.Equal(t, "Robin", call.Body["contact_person"])
	assert.Equal(t, []interface{}{"Sam", "Lee"}, call.Body["attendees"])
	assert.Contains(t, out, "Avery Chen is now viewing_scheduled")
}

func TestAssignPromptsForTermsAndConflicts(t *testing.T) {
	api, cfg := newFakeAPI(t, "viewing_completed")

	stdin := "1450\n\n2024-03-01\n2025-02-28\ny\n"
	out, err := runCLI(t, cfg, stdin, "assign", "7")
	require.NoError(t, err)

	assert.Contains(t, out, "Assign Avery Chen to Maple House")
	assert.Contains(t, out, "Security deposit [3000]")
	assert.Contains(t, out, "Devon Price (N/A onwards)")
	assert.Contains(t, out, "Avery Chen has been assigned to Maple House")

	call, ok := api.find(http.MethodPatch, "/v1/applications/7")
	require.True(t, ok)
	assert.Equal(t, "moved_in", call.Body["status"])
	assert.Equal(t,
		"Assigned to Maple House. Monthly rent: 1450, security deposit: 3000, lease term: 2024-03-01 to 2025-02-28",
		call.Body["decision_notes"])
}

func TestAssignRejectsBadTerms(t *testing.T) {
	api, cfg := newFakeAPI(t, "approved")

	_, err := runCLI(t, cfg, "1500\n3000\n2024-03-01\n2024-02-01\n", "assign", "7")
	assert.ErrorIs(t, err, workflow.ErrInvalidTerms)
	_, patched := api.find(http.MethodPatch, "/v1/applications/7")
	assert.False(t, patched)
}

func TestBoardAndSortCommands(t *testing.T) {
	_, cfg := newFakeAPI(t, "pending")

	out, err := runCLI(t, cfg, "", "board")
	require.NoError(t, err)
	for _, want := range []string{"Pending (1)", "Shortlisted (0)", "Active (0)", "#7 Avery Chen", "Review | Shortlist", "sort: name", "No applications"} {
		assert.Contains(t, out, want)
	}

	out, err = runCLI(t, cfg, "", "sort", "Pending")
	require.NoError(t, err)
	assert.Equal(t, "Pending sorted by date\n", out)
}

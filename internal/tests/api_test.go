// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/database"
	"github.com/javajoker/tink-backend/internal/events"
	"github.com/javajoker/tink-backend/internal/i18n"
	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/router"
	"github.com/javajoker/tink-backend/internal/services"
	"github.com/javajoker/tink-backend/internal/utils"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

type APITestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	cfg       *config.Config
	router    *gin.Engine
	outbox    *services.OutboxSMSSender
	recorder  *events.Recorder

	landlord      *models.User
	landlordToken string
	otherToken    string
	property      *models.Property
}

func TestAPITestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping API test in short mode")
	}
	suite.Run(t, new(APITestSuite))
}

func (suite *APITestSuite) SetupSuite() {
	ctx := context.Background()
	gin.SetMode(gin.TestMode)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tink"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	suite.Require().NoError(err)
	suite.container = container

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	suite.Require().Eventually(func() bool {
		suite.db, err = database.Open(gormpostgres.Open(connString), "silent")
		if err != nil {
			return false
		}
		sqlDB, err := suite.db.DB()
		return err == nil && sqlDB.Ping() == nil
	}, 30*time.Second, 500*time.Millisecond)
	suite.Require().NoError(database.RunMigrations(suite.db))

	suite.Require().NoError(i18n.Initialize("en"))

	suite.cfg = &config.Config{
		Environment: "test",
		JWT:         config.JWTConfig{SecretKey: "api-test-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24},
		OTP: config.OTPConfig{
			CodeTTL:        10 * time.Minute,
			ResendCooldown: time.Minute,
			MaxAttempts:    5,
			SelectionTTL:   5 * time.Minute,
		},
		Payment:  config.PaymentConfig{Currency: "usd"},
		Frontend: config.FrontendConfig{BaseURL: "https://app.tink.test", AllowedOrigins: []string{"https://app.tink.test"}},
	}
	utils.SetJWTSecret(suite.cfg.JWT.SecretKey)
}

func (suite *APITestSuite) TearDownSuite() {
	if suite.db != nil {
		database.Close(suite.db)
	}
	if suite.container != nil {
		_ = suite.container.Terminate(context.Background())
	}
}

func (suite *APITestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec(`TRUNCATE users, properties, rooms, applications, viewings, leases,
		tenants, otp_challenges, rent_payments, audit_logs RESTART IDENTITY CASCADE`).Error)

	suite.outbox = &services.OutboxSMSSender{}
	suite.recorder = &events.Recorder{}

	r, err := router.Initialize(suite.db, suite.cfg, router.Options{
		Publisher:     suite.recorder,
		SMSSender:     suite.outbox,
		Documents:     services.NewLocalStorageService(suite.cfg, suite.T().TempDir()),
		SkipRateLimit: true,
	})
	suite.Require().NoError(err)
	suite.router = r

	suite.landlord = suite.createUser("owner@tink.test", models.UserRoleLandlord)
	other := suite.createUser("other@tink.test", models.UserRoleLandlord)
	suite.landlordToken = suite.tokenFor(suite.landlord)
	suite.otherToken = suite.tokenFor(other)

	available := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.property = &models.Property{
		LandlordID:      suite.landlord.ID,
		Name:            "Maple House",
		MonthlyRent:     1500,
		SecurityDeposit: 3000,
		AvailableFrom:   &available,
	}
	suite.Require().NoError(suite.db.Create(suite.property).Error)
}

func (suite *APITestSuite) createUser(email string, role models.UserRole) *models.User {
	user := &models.User{Name: email, Email: email, Role: role, Status: models.UserStatusActive}
	suite.Require().NoError(user.SetPassword("TestPass123!"))
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *APITestSuite) tokenFor(user *models.User) string {
	token, err := utils.GenerateJWT(user.ID, user.Name, string(user.Role), 1)
	suite.Require().NoError(err)
	return token
}

func (suite *APITestSuite) createApplication(name string, status workflow.Status) *models.Application {
	app := &models.Application{
		PropertyID:      suite.property.ID,
		TenantName:      name,
		Status:          status,
		ApplicationDate: time.Now().UTC(),
	}
	suite.Require().NoError(suite.db.Create(app).Error)
	return app
}

func (suite *APITestSuite) request(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var payload bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}

	req, _ := http.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response envelope
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w, response
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (suite *APITestSuite) decode(raw json.RawMessage, out interface{}) {
	suite.Require().NoError(json.Unmarshal(raw, out))
}

func (suite *APITestSuite) TestHealth() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "healthy")
}

func (suite *APITestSuite) TestStaffRegistrationAndLogin() {
	w, resp := suite.request(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":     "New Landlord",
		"email":    "New@Tink.test",
		"password": "TestPass123!",
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.True(suite.T(), resp.Success)

	w, resp = suite.request(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":     "Again",
		"email":    "new@tink.test",
		"password": "TestPass123!",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "EMAIL_TAKEN", resp.Error.Code)

	w, resp = suite.request(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email":    "new@tink.test",
		"password": "TestPass123!",
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var login struct {
		Token string `json:"token"`
	}
	suite.decode(resp.Data, &login)
	assert.NotEmpty(suite.T(), login.Token)

	w, resp = suite.request(http.MethodGet, "/v1/auth/me", login.Token, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(resp.Data), `"role":"landlord"`)

	w, resp = suite.request(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email":    "new@tink.test",
		"password": "wrong",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.False(suite.T(), resp.Success)

	w, resp = suite.request(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":     "Weak",
		"email":    "weak@tink.test",
		"password": "password",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", resp.Error.Code)
}

func (suite *APITestSuite) TestBoardGroupsAndSorts() {
	suite.createApplication("Zed Young", workflow.StatusPending)
	suite.createApplication("Avery Chen", workflow.StatusViewingScheduled)
	suite.createApplication("Devon Price", workflow.StatusMovedIn)

	w, resp := suite.request(http.MethodGet, "/v1/board", suite.landlordToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var board struct {
		Columns []struct {
			Title    string `json:"title"`
			SortMode string `json:"sort_mode"`
			Cards    []struct {
				TenantName string `json:"tenant_name"`
				Actions    []struct {
					Action string `json:"action"`
					Label  string `json:"label"`
				} `json:"actions"`
			} `json:"cards"`
		} `json:"columns"`
	}
	suite.decode(resp.Data, &board)
	suite.Require().Len(board.Columns, 3)
	assert.Equal(suite.T(), "Pending", board.Columns[0].Title)
	suite.Require().Len(board.Columns[0].Cards, 1)

	var actions []string
	for _, a := range board.Columns[0].Cards[0].Actions {
		actions = append(actions, a.Action)
	}
	assert.Equal(suite.T(), []string{"review", "shortlist", "reject", "delete"}, actions)

	// Moved-in tenants can be viewed and moved out but never deleted.
	actions = nil
	for _, a := range board.Columns[2].Cards[0].Actions {
		actions = append(actions, a.Action)
	}
	assert.Equal(suite.T(), []string{"view_details", "move_out"}, actions)

	w, resp = suite.request(http.MethodPost, "/v1/board/columns/Pending/sort", suite.landlordToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(resp.Data), `"sort_mode":"date"`)

	// Sort modes are per user.
	_, resp = suite.request(http.MethodGet, "/v1/board", suite.otherToken, nil)
	suite.decode(resp.Data, &board)
	assert.Equal(suite.T(), "default", board.Columns[0].SortMode)
	assert.Empty(suite.T(), board.Columns[0].Cards)

	w, _ = suite.request(http.MethodPost, "/v1/board/columns/Archive/sort", suite.landlordToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestExecuteActionsWithConfirmation() {
	app := suite.createApplication("Avery Chen", workflow.StatusPending)
	base := "/v1/applications/" + itoa(app.ID)

	w, resp := suite.request(http.MethodPost, base+"/actions/shortlist", suite.landlordToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, resp)
	assert.Contains(suite.T(), string(resp.Data), `"status":"approved"`)
	assert.Contains(suite.T(), string(resp.Data), workflow.ShortlistNotes)

	w, resp = suite.request(http.MethodPost, base+"/actions/back_to_pending", suite.landlordToken, map[string]interface{}{})
	suite.Require().Equal(http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "CONFIRMATION_REQUIRED", resp.Error.Code)
	assert.Equal(suite.T(), workflow.BackToPendingPrompt, resp.Error.Details["prompt"])

	w, _ = suite.request(http.MethodPost, base+"/actions/back_to_pending", suite.landlordToken, map[string]interface{}{"confirm": true})
	suite.Require().Equal(http.StatusOK, w.Code)

	w, resp = suite.request(http.MethodPost, base+"/actions/move_out", suite.landlordToken, nil)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Equal(suite.T(), "ACTION_UNAVAILABLE", resp.Error.Code)

	w, resp = suite.request(http.MethodPost, base+"/actions/teleport", suite.landlordToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w, resp = suite.request(http.MethodPost, base+"/actions/delete", suite.landlordToken, nil)
	suite.Require().Equal(http.StatusConflict, w.Code)
	assert.Contains(suite.T(), resp.Error.Message, "Avery Chen")

	w, resp = suite.request(http.MethodPost, base+"/actions/delete", suite.landlordToken, map[string]interface{}{"confirm": true})
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.NotContains(suite.T(), string(resp.Data), `"application"`)

	w, _ = suite.request(http.MethodGet, base, suite.landlordToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	var to []string
	for _, e := range suite.recorder.Events() {
		to = append(to, e.To)
	}
	assert.Equal(suite.T(), []string{"approved", "pending"}, to)
}

func (suite *APITestSuite) TestScheduleViewingValidatesPayload() {
	app := suite.createApplication("Avery Chen", workflow.StatusApproved)
	path := "/v1/applications/" + itoa(app.ID) + "/actions/schedule_viewing"

	w, resp := suite.request(http.MethodPost, path, suite.landlordToken, map[string]interface{}{"date": "tomorrow"})
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", resp.Error.Code)

	w, resp = suite.request(http.MethodPost, path, suite.landlordToken, map[string]interface{}{
		"date":           "2024-02-10",
		"time":           "14:30",
		"contact_person": "Robin",
	})
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(resp.Data), `"status":"viewing_scheduled"`)
}

func (suite *APITestSuite) TestAssignmentModalRoundTrip() {
	suite.createApplication("Devon Price", workflow.StatusMovedIn)
	app := suite.createApplication("Avery Chen", workflow.StatusViewingCompleted)
	base := "/v1/applications/" + itoa(app.ID)

	w, resp := suite.request(http.MethodPost, base+"/assignment", suite.landlordToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var opened struct {
		Data struct {
			Terms struct {
				Rent      float64   `json:"rent"`
				Deposit   float64   `json:"deposit"`
				StartDate time.Time `json:"start_date"`
				EndDate   time.Time `json:"end_date"`
			} `json:"terms"`
		} `json:"data"`
		Application struct {
			Status string `json:"status"`
		} `json:"application"`
	}
	suite.decode(resp.Data, &opened)
	assert.Equal(suite.T(), 1500.0, opened.Data.Terms.Rent)
	assert.Equal(suite.T(), "2024-03-01", opened.Data.Terms.StartDate.Format("2006-01-02"))
	assert.Equal(suite.T(), "2025-03-01", opened.Data.Terms.EndDate.Format("2006-01-02"))
	assert.Equal(suite.T(), "viewing_completed", opened.Application.Status)

	submit := map[string]interface{}{
		"rent":       1450,
		"deposit":    2900,
		"start_date": "2024-03-01",
		"end_date":   "2025-02-28",
	}
	w, resp = suite.request(http.MethodPost, base+"/assignment/submit", suite.landlordToken, submit)
	suite.Require().Equal(http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "CONFIRMATION_REQUIRED", resp.Error.Code)
	assert.Contains(suite.T(), resp.Error.Message, "Devon Price (N/A onwards)")

	submit["confirm"] = true
	w, resp = suite.request(http.MethodPost, base+"/assignment/submit", suite.landlordToken, submit)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(resp.Data), `"status":"moved_in"`)
	assert.Contains(suite.T(), string(resp.Data), "Avery Chen has been assigned to Maple House")

	submit["end_date"] = "2023-01-01"
	w, _ = suite.request(http.MethodPost, base+"/assignment/submit", suite.landlordToken, submit)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code, "moved-in tenants no longer offer assignment")
}

func (suite *APITestSuite) TestLandlordIsolationAndDeleteProtection() {
	app := suite.createApplication("Devon Price", workflow.StatusMovedIn)
	path := "/v1/applications/" + itoa(app.ID)

	w, _ := suite.request(http.MethodGet, path, suite.otherToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w, resp := suite.request(http.MethodDelete, path, suite.landlordToken, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "DELETE_PROTECTED", resp.Error.Code)

	w, resp = suite.request(http.MethodPatch, path, suite.landlordToken, map[string]interface{}{"status": "archived"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w, resp = suite.request(http.MethodGet,
		"/v1/properties/"+itoa(suite.property.ID)+"/tenant-conflicts?start_date=2024-02-01&end_date=2025-01-31",
		suite.landlordToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(resp.Data), `"has_conflicts":true`)
}

var codePattern = regexp.MustCompile(`\d{6}`)

func (suite *APITestSuite) TestTenantLoginAndPortal() {
	tenant := &models.Tenant{Name: "Avery Chen", Phone: "+15550000001", Status: models.UserStatusActive}
	suite.Require().NoError(suite.db.Create(tenant).Error)

	w, resp := suite.request(http.MethodPost, "/v1/tenant/auth/request-code", "", map[string]interface{}{"phone": "+15559999999"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "phone_not_found", resp.Error.Code)

	w, resp = suite.request(http.MethodPost, "/v1/tenant/auth/request-code", "", map[string]interface{}{"phone": tenant.Phone})
	suite.Require().Equal(http.StatusOK, w.Code)
	var challenge struct {
		ChallengeID string `json:"challenge_id"`
	}
	suite.decode(resp.Data, &challenge)

	w, resp = suite.request(http.MethodPost, "/v1/tenant/auth/request-code", "", map[string]interface{}{"phone": tenant.Phone})
	assert.Equal(suite.T(), http.StatusTooManyRequests, w.Code)
	assert.Equal(suite.T(), "resend_too_soon", resp.Error.Code)
	assert.NotEmpty(suite.T(), w.Header().Get("Retry-After"))

	msg, ok := suite.outbox.Last()
	suite.Require().True(ok)
	code := codePattern.FindString(msg.Body)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	w, resp = suite.request(http.MethodPost, "/v1/tenant/auth/verify", "", map[string]interface{}{
		"challenge_id": challenge.ChallengeID, "code": wrong,
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "invalid_code", resp.Error.Code)
	assert.EqualValues(suite.T(), 4, resp.Error.Details["remaining_attempts"])

	w, resp = suite.request(http.MethodPost, "/v1/tenant/auth/verify", "", map[string]interface{}{
		"challenge_id": challenge.ChallengeID, "code": code,
	})
	suite.Require().Equal(http.StatusOK, w.Code)
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	suite.decode(resp.Data, &tokens)
	suite.Require().NotEmpty(tokens.AccessToken)

	w, resp = suite.request(http.MethodGet, "/v1/tenant/leases", tokens.AccessToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"leases":[]}`, string(resp.Data))

	// Staff and tenant tokens do not cross over.
	w, _ = suite.request(http.MethodGet, "/v1/tenant/leases", suite.landlordToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	w, _ = suite.request(http.MethodGet, "/v1/board", tokens.AccessToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestAdminRoutes() {
	admin := suite.createUser("admin@tink.test", models.UserRoleAdmin)
	adminToken := suite.tokenFor(admin)

	w, _ := suite.request(http.MethodGet, "/v1/admin/users", suite.landlordToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, resp := suite.request(http.MethodPost, "/v1/admin/users", adminToken, map[string]interface{}{
		"name": "Morgan Manager", "email": "manager@tink.test", "password": "TestPass123!", "role": "manager",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var manager struct {
		ID int64 `json:"id"`
	}
	suite.decode(resp.Data, &manager)

	w, _ = suite.request(http.MethodPut, "/v1/admin/users/"+itoa(manager.ID)+"/status", adminToken, map[string]interface{}{"status": "suspended"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, resp = suite.request(http.MethodPut, "/v1/admin/users/"+itoa(admin.ID)+"/status", adminToken, map[string]interface{}{"status": "suspended"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "SELF_UPDATE", resp.Error.Code)

	w, _ = suite.request(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email": "manager@tink.test", "password": "TestPass123!",
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, resp = suite.request(http.MethodGet, "/v1/admin/users?role=landlord", adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var users []models.User
	suite.decode(resp.Data, &users)
	assert.Len(suite.T(), users, 2)

	// Audit rows are written asynchronously.
	assert.Eventually(suite.T(), func() bool {
		var count int64
		suite.db.Model(&models.AuditLog{}).Where("resource_type = ?", "admin").Count(&count)
		return count >= 2
	}, 5*time.Second, 100*time.Millisecond)
}

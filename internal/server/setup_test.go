package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nextfinance/internal/logger"
	"nextfinance/internal/notify"
	"nextfinance/internal/testutil"
	"nextfinance/internal/validator"
)

const testPipelineKey = "test-pipeline-key"

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Mail   *mailbox
}

// mailbox records queued emails instead of delivering them.
type mailbox struct {
	mu   sync.Mutex
	sent map[string][]notify.Email
}

func (m *mailbox) Queue(to string, email notify.Email, onDelivered func()) error {
	m.mu.Lock()
	m.sent[to] = append(m.sent[to], email)
	m.mu.Unlock()
	if onDelivered != nil {
		onDelivered()
	}
	return nil
}

func (m *mailbox) count(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent[to])
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	mail := &mailbox{sent: make(map[string][]notify.Email)}
	router := NewRouter(Deps{
		DB:             db,
		Notifier:       mail,
		PipelineAPIKey: testPipelineKey,
	})
	return &testApp{DB: db, Router: router, Mail: mail}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// pipeline calls a pipeline endpoint with the API key.
func (app *testApp) pipeline(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline"+path, nil)
	req.Header.Set("X-API-Key", testPipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// expectStatus fails the test when rec does not carry the wanted status.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request(http.MethodPost, "/api/v1/auth/register", body, "")
	expectStatus(t, rec, http.StatusCreated)
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// createAccount creates an account and returns its ID.
func (app *testApp) createAccount(t *testing.T, token, name, balance string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":"CURRENT","balance":%q}`, name, balance)
	rec := app.request(http.MethodPost, "/api/v1/accounts", body, token)
	expectStatus(t, rec, http.StatusCreated)
	return parseJSON(t, rec)["account"].(map[string]interface{})["id"].(string)
}

// accountBalance reads an account's balance through the API.
func (app *testApp) accountBalance(t *testing.T, token, accountID string) float64 {
	t.Helper()
	rec := app.request(http.MethodGet, "/api/v1/accounts/"+accountID, "", token)
	expectStatus(t, rec, http.StatusOK)
	return parseJSON(t, rec)["account"].(map[string]interface{})["balance"].(float64)
}

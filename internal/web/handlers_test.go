package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"opencourt/internal/auth"
	"opencourt/internal/config"
	"opencourt/internal/core"
	"opencourt/internal/store"
	"opencourt/internal/web"
)

// testEnv wires a full server over the in-memory store with one seeded
// ADMIN and one seeded STAFF user.
type testEnv struct {
	router http.Handler
	store  *store.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemory()
	seedTestUser(t, st, "admin", core.RoleAdmin, "")
	seedTestUser(t, st, "staff", core.RoleStaff, "Mall Road")

	authSvc := auth.NewService(st, auth.Config{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		BcryptCost:      4,
	})
	svc := core.NewService(st, core.ServiceConfig{ResetWorkflowOnUpdate: true})

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Upload.MaxFileSize = 20971520
	cfg.Rate.Enabled = false

	srv := web.NewServer(svc, authSvc, cfg)
	return &testEnv{router: srv.Router(), store: st}
}

func seedTestUser(t *testing.T, st *store.Memory, username string, role core.Role, station string) {
	t.Helper()
	hash, err := auth.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	err = st.CreateUser(context.Background(), &core.User{
		ID:            uuid.NewString(),
		Username:      username,
		PasswordHash:  hash,
		Role:          role,
		PoliceStation: station,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

// do runs one request through the router and decodes the JSON body into out
// when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func (e *testEnv) login(t *testing.T, username string) (access, refresh string) {
	t.Helper()
	var resp struct {
		Access  string     `json:"access"`
		Refresh string     `json:"refresh"`
		User    *core.User `json:"user"`
	}
	rec := e.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": username, "password": "s3cret"}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
	return resp.Access, resp.Refresh
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		var resp struct {
			Access  string     `json:"access"`
			Refresh string     `json:"refresh"`
			User    *core.User `json:"user"`
		}
		rec := env.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"username": "admin", "password": "s3cret"}, &resp)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if resp.Access == "" || resp.Refresh == "" {
			t.Error("expected token pair in response")
		}
		if resp.User == nil || resp.User.Role != core.RoleAdmin {
			t.Errorf("user = %+v, want seeded admin", resp.User)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"username": "admin"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if msg := errorBody(t, rec); msg != "Please provide both username and password" {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"username": "admin", "password": "wrong"}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if msg := errorBody(t, rec); msg != "Invalid credentials" {
			t.Errorf("error = %q", msg)
		}
	})
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/applications/", "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if msg := errorBody(t, rec); msg != "Authentication credentials were not provided" {
		t.Errorf("error = %q", msg)
	}

	rec = env.do(t, http.MethodGet, "/api/applications/", "bogus-token", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "Invalid or expired token" {
		t.Errorf("error = %q", msg)
	}
}

func TestTokenRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	access, refresh := env.login(t, "admin")

	var refreshResp struct {
		Access string `json:"access"`
	}
	rec := env.do(t, http.MethodPost, "/api/auth/token/refresh", "",
		map[string]string{"refresh": refresh}, &refreshResp)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	if refreshResp.Access == "" || refreshResp.Access == access {
		t.Error("refresh should rotate the access token")
	}

	var logoutResp struct {
		Message string `json:"message"`
	}
	rec = env.do(t, http.MethodPost, "/api/auth/logout", refreshResp.Access,
		map[string]string{"refresh": refresh}, &logoutResp)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, body %s", rec.Code, rec.Body.String())
	}
	if logoutResp.Message != "Successfully logged out" {
		t.Errorf("message = %q", logoutResp.Message)
	}

	// The session is gone.
	rec = env.do(t, http.MethodGet, "/api/auth/user", refreshResp.Access, nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want 401", rec.Code)
	}
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "staff")

	var user core.User
	rec := env.do(t, http.MethodGet, "/api/auth/user", access, nil, &user)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if user.Username != "staff" || user.PoliceStation != "Mall Road" {
		t.Errorf("user = %+v", user)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Error("response leaks the password hash")
	}
}

func TestApplicationCRUD(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "admin")

	var created core.ApplicationRecord
	rec := env.do(t, http.MethodPost, "/api/applications/", access, map[string]interface{}{
		"sr_no":          "1001",
		"name":           "Asif Khan",
		"police_station": "Mall Road",
		"category":       "Theft",
		"date":           "2024-03-15",
	}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if created.ID == "" || created.Status != core.StatusPending {
		t.Errorf("created = %+v", created)
	}

	// A second record may not reuse the serial.
	rec = env.do(t, http.MethodPost, "/api/applications/", access,
		map[string]string{"sr_no": "1001"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate create status = %d, want 400", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "sr_no already exists" {
		t.Errorf("error = %q", msg)
	}

	var fetched core.ApplicationRecord
	rec = env.do(t, http.MethodGet, "/api/applications/"+created.ID+"/", access, nil, &fetched)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if fetched.SrNo != "1001" {
		t.Errorf("fetched = %+v", fetched)
	}

	var patched core.ApplicationRecord
	rec = env.do(t, http.MethodPatch, "/api/applications/"+created.ID+"/", access,
		map[string]string{"name": "Asif Ullah Khan"}, &patched)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	if patched.Name != "Asif Ullah Khan" || patched.Category != "Theft" {
		t.Errorf("patched = %+v", patched)
	}

	rec = env.do(t, http.MethodDelete, "/api/applications/"+created.ID+"/", access, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/applications/"+created.ID+"/", access, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestListApplications_StaffScoped(t *testing.T) {
	env := newTestEnv(t)
	adminAccess, _ := env.login(t, "admin")
	staffAccess, _ := env.login(t, "staff")

	for i, station := range []string{"Mall Road", "Civil Lines", "Mall Road"} {
		rec := env.do(t, http.MethodPost, "/api/applications/", adminAccess, map[string]interface{}{
			"sr_no":          fmt.Sprintf("%d", i+1),
			"police_station": station,
		}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed create status = %d", rec.Code)
		}
	}

	var all []core.ApplicationRecord
	env.do(t, http.MethodGet, "/api/applications/", adminAccess, nil, &all)
	if len(all) != 3 {
		t.Errorf("admin sees %d records, want 3", len(all))
	}

	var scoped []core.ApplicationRecord
	env.do(t, http.MethodGet, "/api/applications/", staffAccess, nil, &scoped)
	if len(scoped) != 2 {
		t.Errorf("staff sees %d records, want 2", len(scoped))
	}

	rec := env.do(t, http.MethodGet, "/api/applications/?status=BOGUS", adminAccess, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: status = %d, want 400", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "Invalid status" {
		t.Errorf("error = %q", msg)
	}
}

func TestWorkflowEndpoints(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "admin")

	var created core.ApplicationRecord
	env.do(t, http.MethodPost, "/api/applications/", access,
		map[string]string{"sr_no": "1001", "police_station": "Mall Road"}, &created)

	var updated core.ApplicationRecord
	rec := env.do(t, http.MethodPost, "/api/applications/"+created.ID+"/update_status", access,
		map[string]string{"status": "HEARD"}, &updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update_status status = %d, body %s", rec.Code, rec.Body.String())
	}
	if updated.Status != core.StatusHeard {
		t.Errorf("Status = %q, want HEARD", updated.Status)
	}

	rec = env.do(t, http.MethodPost, "/api/applications/"+created.ID+"/update_status", access,
		map[string]string{"status": "BOGUS"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: status = %d, want 400", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "Invalid status" {
		t.Errorf("error = %q", msg)
	}

	rec = env.do(t, http.MethodPost, "/api/applications/"+created.ID+"/update_feedback", access,
		map[string]string{"feedback": "POSITIVE", "remarks": "resolved amicably"}, &updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update_feedback status = %d, body %s", rec.Code, rec.Body.String())
	}
	if updated.Feedback != core.FeedbackPositive || updated.Remarks != "resolved amicably" {
		t.Errorf("updated = %+v", updated)
	}

	rec = env.do(t, http.MethodPost, "/api/applications/"+created.ID+"/update_feedback", access,
		map[string]string{"feedback": "PENDING"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("pending feedback: status = %d, want 400", rec.Code)
	}
}

func TestDashboardStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	adminAccess, _ := env.login(t, "admin")
	staffAccess, _ := env.login(t, "staff")

	env.do(t, http.MethodPost, "/api/applications/", adminAccess,
		map[string]string{"sr_no": "1", "police_station": "Mall Road", "division": "City", "category": "Theft"}, nil)
	env.do(t, http.MethodPost, "/api/applications/", adminAccess,
		map[string]string{"sr_no": "2", "police_station": "Civil Lines", "division": "City", "category": "Theft"}, nil)

	var stats core.DashboardStats
	rec := env.do(t, http.MethodGet, "/api/dashboard-stats", adminAccess, nil, &stats)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stats.Overall.Total != 2 || stats.Overall.Pending != 2 {
		t.Errorf("overall = %+v", stats.Overall)
	}
	if len(stats.PoliceStations) != 2 {
		t.Errorf("admin got %d station rows, want 2", len(stats.PoliceStations))
	}

	env.do(t, http.MethodGet, "/api/dashboard-stats", staffAccess, nil, &stats)
	if stats.Overall.Total != 1 {
		t.Errorf("staff overall total = %d, want 1", stats.Overall.Total)
	}
	if len(stats.PoliceStations) != 0 {
		t.Errorf("staff got %d station rows, want 0", len(stats.PoliceStations))
	}
}

func TestLookupEndpoints(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "admin")

	env.do(t, http.MethodPost, "/api/applications/", access,
		map[string]string{"sr_no": "1", "police_station": "Saddar", "category": "Theft"}, nil)
	env.do(t, http.MethodPost, "/api/applications/", access,
		map[string]string{"sr_no": "2", "police_station": "Mall Road", "category": "Theft"}, nil)

	var stations []string
	rec := env.do(t, http.MethodGet, "/api/police-stations", access, nil, &stations)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(stations) != 2 {
		t.Errorf("stations = %v", stations)
	}

	var categories []string
	env.do(t, http.MethodGet, "/api/categories", access, nil, &categories)
	if len(categories) != 1 || categories[0] != "Theft" {
		t.Errorf("categories = %v", categories)
	}
}

func TestUploadExcel(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "admin")

	t.Run("no file", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/upload-excel", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+access)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if msg := errorBody(t, rec); msg != "No file provided" {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("valid workbook", func(t *testing.T) {
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		header := []interface{}{"Sr No", "Dairy No", "Name", "Contact", "Marked To", "Date", "Marked By", "Timeline", "Police Station", "Division", "Category"}
		row := []interface{}{"1001", "D-1001", "Asif Khan", "0300-0000000", "SP City", "2024-03-15", "Reader", "7 days", "Mall Road", "City", "Theft"}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, "A2", &row); err != nil {
			t.Fatal(err)
		}
		wb, err := f.WriteToBuffer()
		f.Close()
		if err != nil {
			t.Fatal(err)
		}

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "records.xlsx")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(wb.Bytes()); err != nil {
			t.Fatal(err)
		}
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/upload-excel", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+access)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var result core.ImportResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("unmarshal result: %v", err)
		}
		if result.Created != 1 || result.Updated != 0 || len(result.Errors) != 0 {
			t.Errorf("result = %+v", result)
		}

		var records []core.ApplicationRecord
		env.do(t, http.MethodGet, "/api/applications/?search=Asif", access, nil, &records)
		if len(records) != 1 {
			t.Errorf("imported record not listed, got %d", len(records))
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil, nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

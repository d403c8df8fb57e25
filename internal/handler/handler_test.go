package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/metrics"
	"lending-service/internal/models"
	"lending-service/internal/repository"
	"lending-service/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type memoryIdempotency struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (m *memoryIdempotency) Begin(_ context.Context, scope, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+":"+key]
	if !ok {
		m.values[scope+":"+key] = nil
	}
	return v, nil
}

func (m *memoryIdempotency) Complete(_ context.Context, scope, key string, resp []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+":"+key] = resp
	return nil
}

func (m *memoryIdempotency) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, scope+":"+key)
	return nil
}

type fakeFiles struct{}

func (fakeFiles) Upload(_ context.Context, name, _ string, body io.Reader) (string, error) {
	io.Copy(io.Discard, body)
	return "https://cdn.test/" + name, nil
}

type testServer struct {
	router http.Handler
	admin  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &configs.Config{
		Server: configs.ServerConfig{CorsAllowedOrigins: []string{"*"}, MaxUploadMB: 5},
		JWT:    configs.JWTConfig{Secret: "handler-secret", TTL: 1},
		Admin:  configs.AdminConfig{Username: "admin", Email: "admin@test.local", Password: "admin-pass", FullName: "Admin"},
	}
	m := metrics.New()

	services := service.NewService(service.Dependencies{
		Repos:       repository.NewMemoryRepository(),
		Logger:      logger,
		Config:      cfg,
		Policy:      models.InterestPolicyTenure,
		Files:       fakeFiles{},
		Idempotency: &memoryIdempotency{values: map[string][]byte{}},
		Metrics:     m,
	})
	if err := services.Auth.SeedAdmin(context.Background()); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}

	deps := Dependencies{Services: services, Logger: logger, Config: cfg, Metrics: m}
	s := &testServer{router: NewRouter(NewHandler(deps), deps)}
	s.admin = s.login(t, "/api/v1/admin/login", "admin", "admin-pass")
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func (s *testServer) login(t *testing.T, path, username, password string) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, path, "", models.Login{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, env.Error)
	}
	var token models.TokenResponse
	if err := json.Unmarshal(env.Data, &token); err != nil {
		t.Fatal(err)
	}
	return token.Token
}

func (s *testServer) createAgent(t *testing.T, username string) (string, string) {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/agents", s.admin, models.AgentRegistration{
		FullName: "Agent " + username,
		Email:    username + "@test.local",
		Username: username,
		Password: "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create agent: %d %s", rec.Code, env.Error)
	}
	var agent models.Principal
	json.Unmarshal(env.Data, &agent)
	return agent.ID, s.login(t, "/api/v1/agent/login", username, "password123")
}

func (s *testServer) createClient(t *testing.T, token, name string) *models.Client {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/clients", token, map[string]interface{}{
		"client_name":          name,
		"client_phone_numbers": []string{"+91-" + name},
		"loans": []map[string]interface{}{
			{"loan_amount": 12000, "interest_rate": 12, "tenure_months": 12, "emi_type": "Monthly"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client: %d %s", rec.Code, env.Error)
	}
	var client models.Client
	json.Unmarshal(env.Data, &client)
	return &client
}

func collectBody(amount float64, status string) map[string]interface{} {
	return map[string]interface{}{
		"amount_collected": amount,
		"status":           status,
		"location":         map[string]float64{"lat": 28.61, "lng": 77.2},
		"payment_mode":     "Cash",
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Errorf("health = %d", rec.Code)
	}

	s.do(t, http.MethodGet, "/api/v1/clients", s.admin, nil)

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rec.Body.String(), `route="/api/v1/clients"`) {
		t.Errorf("metrics missing request route:\n%s", rec.Body.String())
	}
}

func TestAuthAndRoles(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/clients", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/clients", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodPost, "/api/v1/admin/login", "", models.Login{Username: "admin", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", rec.Code)
	}

	_, agentToken := s.createAgent(t, "ravi")

	rec, _ = s.do(t, http.MethodGet, "/api/v1/analytics", agentToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("agent on admin route = %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/clients", agentToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("agent listing clients = %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/analytics", s.admin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin dashboard = %d", rec.Code)
	}
}

func TestCreateClientErrors(t *testing.T) {
	s := newTestServer(t)
	s.createClient(t, s.admin, "Asha")

	rec, env := s.do(t, http.MethodPost, "/api/v1/clients", s.admin, map[string]interface{}{
		"client_name":          "Asha",
		"client_phone_numbers": []string{"999"},
	})
	if rec.Code != http.StatusConflict || env.Success {
		t.Errorf("duplicate = %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodPost, "/api/v1/clients", s.admin, map[string]interface{}{
		"client_name":          "Ravi",
		"client_phone_numbers": []string{"1"},
		"loans":                []map[string]interface{}{{"loan_amount": 0, "interest_rate": 12, "tenure_days": 10, "emi_type": "Daily"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid loan = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+s.admin)
	if rec, _ := s.serve(t, req); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d", rec.Code)
	}
}

func TestCreateClientMultipart(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("data", `{"client_name":"Asha","client_phone_numbers":["1"]}`)
	fw, _ := mw.CreateFormFile("client_photo", "face.jpg")
	fw.Write([]byte("jpeg"))
	fw, _ = mw.CreateFormFile("documents", "id.pdf")
	fw.Write([]byte("pdf"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.admin)

	rec, env := s.serve(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("multipart create = %d %s", rec.Code, env.Error)
	}

	var client models.Client
	json.Unmarshal(env.Data, &client)
	if client.ClientPhoto != "https://cdn.test/face.jpg" || len(client.Documents) != 1 {
		t.Errorf("client files = %q %v", client.ClientPhoto, client.Documents)
	}
}

func TestCollect(t *testing.T) {
	s := newTestServer(t)
	agentID, agentToken := s.createAgent(t, "ravi")
	client := s.createClient(t, agentToken, "Asha")
	path := "/api/v1/clients/" + client.ID + "/loans/" + client.Loans[0].ID + "/emis"

	rec, env := s.do(t, http.MethodPost, path, agentToken, collectBody(1120, "Paid"), IdempotencyHeader, "k1")
	if rec.Code != http.StatusOK {
		t.Fatalf("collect = %d %s", rec.Code, env.Error)
	}
	var result service.CollectionResult
	json.Unmarshal(env.Data, &result)
	if result.Loan.TotalCollected != 1120 || result.Loan.PaidEmis != 1 || result.Records[0].CollectedBy != agentID {
		t.Errorf("result = %+v", result.Loan)
	}

	rec, env = s.do(t, http.MethodPost, path, agentToken, collectBody(1120, "Paid"), IdempotencyHeader, "k1")
	json.Unmarshal(env.Data, &result)
	if rec.Code != http.StatusOK || !result.Replayed || result.Loan.TotalCollected != 1120 {
		t.Errorf("replay = %d %+v", rec.Code, result)
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/clients/"+client.ID+"/loans/"+client.Loans[0].ID+"/schedule", agentToken, nil)
	var schedule models.EmiSchedule
	json.Unmarshal(env.Data, &schedule)
	if rec.Code != http.StatusOK || len(schedule.Installments) != 12 || schedule.Installments[0].Status != models.InstallmentStatusPaid {
		t.Errorf("schedule = %d %+v", rec.Code, schedule.Summary)
	}

	for _, tc := range []struct {
		name string
		path string
		body map[string]interface{}
		want int
	}{
		{"zero amount", path, collectBody(0, "Paid"), http.StatusBadRequest},
		{"bad status", path, collectBody(100, "Skipped"), http.StatusBadRequest},
		{"overpayment", path, collectBody(1e6, "Paid"), http.StatusBadRequest},
		{"unknown loan", "/api/v1/clients/" + client.ID + "/loans/missing/emis", collectBody(100, "Paid"), http.StatusNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := s.do(t, http.MethodPost, tc.path, agentToken, tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestDefaultFlow(t *testing.T) {
	s := newTestServer(t)
	_, agentToken := s.createAgent(t, "ravi")
	client := s.createClient(t, s.admin, "Asha")
	path := "/api/v1/clients/" + client.ID + "/loans/" + client.Loans[0].ID + "/emis"

	if rec, env := s.do(t, http.MethodPost, path, agentToken, collectBody(1120, "Defaulted")); rec.Code != http.StatusOK {
		t.Fatalf("defaulted collect = %d %s", rec.Code, env.Error)
	}

	_, env := s.do(t, http.MethodGet, "/api/v1/clients/"+client.ID+"/defaults", agentToken, nil)
	var defaults []*models.DefaultedEMI
	json.Unmarshal(env.Data, &defaults)
	if len(defaults) != 1 {
		t.Fatalf("defaults = %d", len(defaults))
	}

	payBody := map[string]interface{}{"location": map[string]float64{"lat": 1, "lng": 2}, "payment_mode": "Online", "receiver_name": "Desk"}
	if rec, env := s.do(t, http.MethodPost, "/api/v1/defaults/"+defaults[0].ID+"/pay", agentToken, payBody); rec.Code != http.StatusOK {
		t.Fatalf("pay default = %d %s", rec.Code, env.Error)
	}
	if rec, _ := s.do(t, http.MethodPost, "/api/v1/defaults/"+defaults[0].ID+"/pay", agentToken, payBody); rec.Code != http.StatusNotFound {
		t.Errorf("second pay = %d", rec.Code)
	}
}

func TestAgentCollectionsReport(t *testing.T) {
	s := newTestServer(t)
	agentID, agentToken := s.createAgent(t, "ravi")
	otherID, _ := s.createAgent(t, "sita")
	client := s.createClient(t, s.admin, "Asha")
	s.do(t, http.MethodPost, "/api/v1/clients/"+client.ID+"/loans/"+client.Loans[0].ID+"/emis", agentToken, collectBody(1120, "Paid"))

	rec, _ := s.do(t, http.MethodGet, "/api/v1/agents/"+otherID+"/collections", agentToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other agent's report = %d", rec.Code)
	}

	rec, env := s.do(t, http.MethodGet, "/api/v1/agents/"+agentID+"/collections", agentToken, nil)
	var report models.AgentCollections
	json.Unmarshal(env.Data, &report)
	if rec.Code != http.StatusOK || report.TotalCollected != 1120 || len(report.EmiCollectionData) != 1 {
		t.Errorf("own report = %d %+v", rec.Code, report)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/agents/"+agentID+"/collections?format=xml", s.admin, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/xml" || !strings.Contains(rec.Body.String(), "<AgentCollections") {
		t.Errorf("xml report = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminLoanManagement(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, s.admin, "Asha")

	rec, env := s.do(t, http.MethodPost, "/api/v1/clients/"+client.ID+"/loans", s.admin, map[string]interface{}{
		"loan_amount": 5000, "interest_rate": 5, "tenure_days": 50, "emi_type": "Weekly",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add loan = %d %s", rec.Code, env.Error)
	}
	var loan models.Loan
	json.Unmarshal(env.Data, &loan)

	if rec, _ := s.do(t, http.MethodDelete, "/api/v1/clients/"+client.ID+"/loans/"+loan.ID, s.admin, nil); rec.Code != http.StatusOK {
		t.Errorf("delete loan = %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodDelete, "/api/v1/clients/"+client.ID, s.admin, nil); rec.Code != http.StatusOK {
		t.Errorf("delete client = %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodGet, "/api/v1/clients/"+client.ID, s.admin, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted client = %d", rec.Code)
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"handrating-backend/internal/config"
	"handrating-backend/internal/core"
	"handrating-backend/internal/db"
	"handrating-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	users     *MockUserService
	billing   *MockBillingService
	critiques *MockCritiqueService
	dashboard *MockDashboardService
	cfg       *config.Config
	router    *gin.Engine
}

func newTestServer(t *testing.T, debug bool) *testServer {
	t.Helper()
	s := &testServer{
		users:     &MockUserService{},
		billing:   &MockBillingService{},
		critiques: &MockCritiqueService{},
		dashboard: &MockDashboardService{},
		cfg: &config.Config{
			GinMode:              "test",
			UploadMaxMB:          1,
			EnableDebugEndpoints: debug,
			StripeSecretKey:      "sk_test_x",
			StripeWebhookSecret:  "whsec_x",
			FirebaseProjectID:    "demo",
		},
	}
	s.router = gin.New()
	SetupRoutes(s.router, Dependencies{
		Config:           s.cfg,
		Logger:           zap.NewNop(),
		TokenVerifier:    MockTokenVerifier{},
		UserService:      s.users,
		BillingService:   s.billing,
		CritiqueService:  s.critiques,
		DashboardService: s.dashboard,
		FirestorePing: func(context.Context) (*db.PingResult, error) {
			return &db.PingResult{ReadBack: true}, nil
		},
	})
	return s
}

func (s *testServer) do(method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body is not JSON: %s", w.Body.String())
	}
	return e
}

func TestHealthAndPing(t *testing.T) {
	s := newTestServer(t, false)
	if w := s.do(http.MethodGet, "/health", "", nil, ""); w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/ping", "", nil, ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("/ping = %d %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, false)
	for _, p := range []string{"/api/v1/users/me", "/api/v1/dashboard", "/api/v1/critiques"} {
		if w := s.do(http.MethodGet, p, "", nil, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", p, w.Code)
		}
	}
}

func TestInitializeUserProfile(t *testing.T) {
	s := newTestServer(t, false)
	var gotEmail string
	s.users.GetOrCreateFunc = func(_ context.Context, uid, email, _, _ string) (*models.User, bool, error) {
		gotEmail = email
		return &models.User{ID: uid, Email: email}, uid == "new", nil
	}

	if w := s.do(http.MethodPost, "/api/v1/users/initialize", "new", nil, ""); w.Code != http.StatusCreated {
		t.Errorf("new user status = %d, want 201", w.Code)
	}
	if gotEmail != "new@example.com" {
		t.Errorf("email from token = %q", gotEmail)
	}
	if w := s.do(http.MethodPost, "/api/v1/users/initialize", "old", nil, ""); w.Code != http.StatusOK {
		t.Errorf("existing user status = %d, want 200", w.Code)
	}

	s.users.GetOrCreateFunc = func(context.Context, string, string, string, string) (*models.User, bool, error) {
		return nil, false, fmt.Errorf("firestore down")
	}
	if w := s.do(http.MethodPost, "/api/v1/users/initialize", "u", nil, ""); w.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", w.Code)
	}
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	s.users.GetByIDFunc = func(_ context.Context, uid string) (*models.User, error) {
		if uid == "ghost" {
			return nil, fmt.Errorf("%w: %s", core.ErrUserNotFound, uid)
		}
		return &models.User{ID: uid, UploadsRemaining: 3}, nil
	}
	s.users.GetCreditsFunc = func(context.Context, string) (int, error) { return 7, nil }
	s.users.UpdateLanguageFunc = func(_ context.Context, uid, lang string) (*models.User, error) {
		return &models.User{ID: uid, Language: lang}, nil
	}
	var onboarding models.UpdateOnboardingRequest
	s.users.SaveOnboardingFunc = func(_ context.Context, uid string, req models.UpdateOnboardingRequest) (*models.User, error) {
		onboarding = req
		return &models.User{ID: uid, OnboardingCompleted: req.Completed}, nil
	}

	if w := s.do(http.MethodGet, "/api/v1/users/me", "u1", nil, ""); w.Code != http.StatusOK {
		t.Errorf("GET me = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/v1/users/me", "ghost", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("GET me for unknown user = %d, want 404", w.Code)
	}

	w := s.do(http.MethodGet, "/api/v1/users/me/credits", "u1", nil, "")
	var credits CreditsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &credits)
	if w.Code != http.StatusOK || credits.UploadsRemaining != 7 {
		t.Errorf("credits = %d %s", w.Code, w.Body.String())
	}

	if w := s.do(http.MethodPut, "/api/v1/users/me/language", "u1", []byte(`{"language":"fr"}`), "application/json"); w.Code != http.StatusOK {
		t.Errorf("PUT language fr = %d", w.Code)
	}
	if w := s.do(http.MethodPut, "/api/v1/users/me/language", "u1", []byte(`{"language":"de"}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Errorf("PUT language de = %d, want 400", w.Code)
	}

	body := []byte(`{"data":{"dreamInterest":"ads","obstacles":["nails"]},"completed":true}`)
	if w := s.do(http.MethodPut, "/api/v1/users/me/onboarding", "u1", body, "application/json"); w.Code != http.StatusOK {
		t.Errorf("PUT onboarding = %d", w.Code)
	}
	if !onboarding.Completed || onboarding.Data.DreamInterest != "ads" || len(onboarding.Data.Obstacles) != 1 {
		t.Errorf("onboarding request = %+v", onboarding)
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	s := newTestServer(t, false)
	var gotReq models.CreateCheckoutSessionRequest
	var gotEmail string
	s.billing.CreateCheckoutSessionFunc = func(_ context.Context, _ string, email string, req models.CreateCheckoutSessionRequest) (string, error) {
		gotReq, gotEmail = req, email
		return "cs_test_123", nil
	}

	w := s.do(http.MethodPost, "/api/v1/billing/create-checkout-session", "u1", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"sessionId":"cs_test_123"`) {
		t.Fatalf("empty body checkout = %d %s", w.Code, w.Body.String())
	}
	if gotEmail != "u1@example.com" {
		t.Errorf("customer email = %q", gotEmail)
	}

	body := []byte(`{"successUrl":"https://app.example.com/ok","cancelUrl":"https://app.example.com/no"}`)
	if w := s.do(http.MethodPost, "/api/v1/billing/create-checkout-session", "u1", body, "application/json"); w.Code != http.StatusOK {
		t.Errorf("checkout with urls = %d", w.Code)
	}
	if gotReq.SuccessURL != "https://app.example.com/ok" {
		t.Errorf("success url = %q", gotReq.SuccessURL)
	}

	if w := s.do(http.MethodPost, "/api/v1/billing/create-checkout-session", "u1", []byte(`{"successUrl":"nope"}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid url = %d, want 400", w.Code)
	}

	s.billing.CreateCheckoutSessionFunc = func(context.Context, string, string, models.CreateCheckoutSessionRequest) (string, error) {
		return "", fmt.Errorf("%w: card_declined", core.ErrStripeClient)
	}
	if w := s.do(http.MethodPost, "/api/v1/billing/create-checkout-session", "u1", nil, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("stripe failure = %d, want 503", w.Code)
	}
}

func TestStripeWebhookStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"bad signature", core.ErrWebhookSignature, http.StatusBadRequest},
		{"bad payload", core.ErrWebhookPayload, http.StatusBadRequest},
		{"missing user id", core.ErrMissingUserID, http.StatusBadRequest},
		{"not paid", core.ErrPaymentNotPaid, http.StatusBadRequest},
		{"unknown user", core.ErrUserNotFound, http.StatusNotFound},
		{"grant failed", core.ErrCreditGrant, http.StatusInternalServerError},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, false)
			s.billing.HandleStripeWebhookFunc = func(context.Context, string, []byte) (*core.WebhookResult, error) {
				return nil, fmt.Errorf("wrapped: %w", tt.err)
			}
			w := s.do(http.MethodPost, "/api/v1/billing/webhooks/stripe", "", []byte(`{}`), "application/json")
			// No Stripe-Signature header yet.
			if w.Code != http.StatusBadRequest {
				t.Fatalf("missing signature = %d, want 400", w.Code)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhooks/stripe", strings.NewReader(`{}`))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			w = httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if decodeError(t, w).Error == "" {
				t.Error("error body has no message")
			}
		})
	}
}

func TestStripeWebhookPassesRawBody(t *testing.T) {
	s := newTestServer(t, false)
	payload := `{"id":"evt_1","type":"checkout.session.completed"}`
	var gotSig string
	var gotPayload []byte
	s.billing.HandleStripeWebhookFunc = func(_ context.Context, sig string, p []byte) (*core.WebhookResult, error) {
		gotSig, gotPayload = sig, p
		return &core.WebhookResult{EventID: "evt_1", CreditsAdded: 25, UploadsRemaining: 25}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotSig != "t=1,v1=abc" || string(gotPayload) != payload {
		t.Errorf("service got sig %q payload %q", gotSig, gotPayload)
	}
	if !strings.Contains(w.Body.String(), `"creditsAdded":25`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func multipartUpload(t *testing.T, image []byte, language string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "hand.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(image); err != nil {
		t.Fatal(err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

func TestGenerateCritique_Multipart(t *testing.T) {
	s := newTestServer(t, false)
	var gotImage []byte
	var gotLang string
	s.critiques.GenerateFunc = func(_ context.Context, uid string, image []byte, lang string) (*models.Critique, error) {
		gotImage, gotLang = image, lang
		return &models.Critique{ID: "c1", UserID: uid, Score: 80}, nil
	}

	body, ct := multipartUpload(t, []byte("fake-jpeg"), "es")
	w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if string(gotImage) != "fake-jpeg" || gotLang != "es" {
		t.Errorf("service got image %q lang %q", gotImage, gotLang)
	}

	body, ct = multipartUpload(t, []byte("fake-jpeg"), " ES ")
	if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, ct); w.Code != http.StatusCreated || gotLang != "es" {
		t.Errorf("upper-case language = %d, service lang %q", w.Code, gotLang)
	}

	body, ct = multipartUpload(t, []byte("fake-jpeg"), "de")
	if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("unsupported language = %d, want 400", w.Code)
	}
}

func TestGenerateCritique_JSONLanguage(t *testing.T) {
	s := newTestServer(t, false)
	var gotLang string
	calls := 0
	s.critiques.GenerateFunc = func(_ context.Context, _ string, _ []byte, lang string) (*models.Critique, error) {
		calls++
		gotLang = lang
		return &models.Critique{ID: "c1", Score: 64}, nil
	}
	b64 := base64.StdEncoding.EncodeToString([]byte("raw-image"))

	body := []byte(`{"imageBase64":"` + b64 + `","language":"ES"}`)
	if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, "application/json"); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotLang != "es" {
		t.Errorf("service lang = %q, want es", gotLang)
	}

	body = []byte(`{"imageBase64":"` + b64 + `","language":"de"}`)
	w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unsupported language = %d, want 400", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "Unsupported language" {
		t.Errorf("error = %q, want Unsupported language", resp.Error)
	}
	if calls != 1 {
		t.Errorf("service called %d times, want 1", calls)
	}
}

func TestGenerateCritique_JSON(t *testing.T) {
	s := newTestServer(t, false)
	var gotImage []byte
	s.critiques.GenerateFunc = func(_ context.Context, _ string, image []byte, _ string) (*models.Critique, error) {
		gotImage = image
		return &models.Critique{ID: "c1", Score: 64}, nil
	}

	b64 := base64.StdEncoding.EncodeToString([]byte("raw-image"))
	body := []byte(`{"imageBase64":"data:image/png;base64,` + b64 + `"}`)
	if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, "application/json"); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if string(gotImage) != "raw-image" {
		t.Errorf("decoded image = %q", gotImage)
	}

	if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", []byte(`{"imageBase64":"%%%"}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Errorf("bad base64 = %d, want 400", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", []byte(`{}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Errorf("missing image = %d, want 400", w.Code)
	}
}

func TestGenerateCritique_TooLarge(t *testing.T) {
	s := newTestServer(t, false)
	s.critiques.GenerateFunc = func(context.Context, string, []byte, string) (*models.Critique, error) {
		t.Error("service must not be called for an oversized upload")
		return nil, nil
	}
	body, ct := multipartUpload(t, make([]byte, 3*1024*1024), "")
	if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, ct); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestGenerateCritique_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrNoCredits, http.StatusPaymentRequired},
		{core.ErrInvalidImage, http.StatusBadRequest},
		{core.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrCritiqueInProgress, http.StatusTooManyRequests},
		{core.ErrCritiqueProvider, http.StatusBadGateway},
		{core.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newTestServer(t, false)
			s.critiques.GenerateFunc = func(context.Context, string, []byte, string) (*models.Critique, error) {
				return nil, fmt.Errorf("generate: %w", tt.err)
			}
			body, ct := multipartUpload(t, []byte("img"), "")
			if w := s.do(http.MethodPost, "/api/v1/critiques", "u1", body, ct); w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestListAndGetCritiques(t *testing.T) {
	s := newTestServer(t, false)
	var gotLimit int
	s.critiques.ListFunc = func(_ context.Context, _ string, limit int) ([]*models.Critique, error) {
		gotLimit = limit
		return nil, nil
	}
	s.critiques.GetFunc = func(_ context.Context, _ string, id string) (*models.Critique, error) {
		if id != "c1" {
			return nil, core.ErrCritiqueNotFound
		}
		return &models.Critique{ID: id}, nil
	}

	w := s.do(http.MethodGet, "/api/v1/critiques?limit=5", "u1", nil, "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" || gotLimit != 5 {
		t.Errorf("list = %d %s limit %d", w.Code, w.Body.String(), gotLimit)
	}
	if w := s.do(http.MethodGet, "/api/v1/critiques?limit=abc", "u1", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/v1/critiques/c1", "u1", nil, ""); w.Code != http.StatusOK {
		t.Errorf("get c1 = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/v1/critiques/zzz", "u1", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("get unknown = %d, want 404", w.Code)
	}
}

func TestGetDashboard(t *testing.T) {
	s := newTestServer(t, false)
	s.dashboard.LoadFunc = func(_ context.Context, uid string) (*core.Dashboard, error) {
		if uid == "ghost" {
			return nil, core.ErrUserNotFound
		}
		return &core.Dashboard{User: &models.User{ID: uid}, UploadsRemaining: 4, BestScore: 91}, nil
	}
	w := s.do(http.MethodGet, "/api/v1/dashboard", "u1", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"bestScore":91`) {
		t.Errorf("dashboard = %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, "/api/v1/dashboard", "ghost", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown user dashboard = %d, want 404", w.Code)
	}
}

func TestDebugRoutes(t *testing.T) {
	off := newTestServer(t, false)
	if w := off.do(http.MethodGet, "/debug/env-check", "", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("debug disabled env-check = %d, want 404", w.Code)
	}

	s := newTestServer(t, true)
	w := s.do(http.MethodGet, "/debug/env-check", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("env-check = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "sk_test_x") || strings.Contains(w.Body.String(), "whsec_x") {
		t.Error("env-check leaked a secret value")
	}
	var env EnvCheckResponse
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if !env.StripeSecretKey || !env.StripeWebhookSecret || env.GeminiAPIKey || env.Mail != "log" {
		t.Errorf("env-check = %+v", env)
	}

	if w := s.do(http.MethodGet, "/debug/firestore", "", nil, ""); w.Code != http.StatusOK {
		t.Errorf("firestore ping = %d", w.Code)
	}
}

func TestDebugSimulateWebhook(t *testing.T) {
	s := newTestServer(t, true)
	var got *stripe.CheckoutSession
	s.billing.ProcessCheckoutCompletedFunc = func(_ context.Context, cs *stripe.CheckoutSession) (*core.WebhookResult, error) {
		got = cs
		return &core.WebhookResult{SessionID: cs.ID, CreditsAdded: 25}, nil
	}

	event := `{"id":"evt_sim","object":"event","type":"checkout.session.completed","data":{"object":` +
		`{"id":"cs_sim","object":"checkout.session","payment_status":"paid","metadata":{"user_id":"u1","credits_amount":"25"}}}}`
	w := s.do(http.MethodPost, "/debug/simulate-webhook", "", []byte(event), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("simulate = %d %s", w.Code, w.Body.String())
	}
	if got == nil || got.ID != "cs_sim" || got.Metadata["user_id"] != "u1" {
		t.Errorf("session passed to service = %+v", got)
	}

	other := `{"id":"evt_x","type":"invoice.paid","data":{"object":{}}}`
	if w := s.do(http.MethodPost, "/debug/simulate-webhook", "", []byte(other), "application/json"); w.Code != http.StatusBadRequest {
		t.Errorf("non-checkout event = %d, want 400", w.Code)
	}

	s.billing.ProcessCheckoutCompletedFunc = func(context.Context, *stripe.CheckoutSession) (*core.WebhookResult, error) {
		return nil, core.ErrMissingUserID
	}
	if w := s.do(http.MethodPost, "/debug/simulate-webhook", "", []byte(event), "application/json"); w.Code != http.StatusBadRequest {
		t.Errorf("missing user id = %d, want 400", w.Code)
	}
}

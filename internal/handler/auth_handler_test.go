package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/passgate/internal/credential"
	"github.com/hitoshi/passgate/internal/middleware"
	"github.com/hitoshi/passgate/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn       func(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome
	loginFn          func(ctx context.Context, email, password string) model.AuthOutcome
	resolveProfileFn func(ctx context.Context, email string) model.AuthOutcome
}

func (m *mockAuthService) Register(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return model.Failed(model.ReasonInternal, "not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) model.AuthOutcome {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return model.Failed(model.ReasonInternal, "not implemented")
}

func (m *mockAuthService) ResolveProfile(ctx context.Context, email string) model.AuthOutcome {
	if m.resolveProfileFn != nil {
		return m.resolveProfileFn(ctx, email)
	}
	return model.Failed(model.ReasonInternal, "not implemented")
}

var testNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func newTestAuthHandler(svc AuthServiceInterface) *AuthHandler {
	h := NewAuthHandler(svc)
	h.now = func() time.Time { return testNow }
	return h
}

func aliceAccount() *model.Account {
	return &model.Account{
		ID:           "6f1c2d7e-0000-4000-8000-000000000001",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$secret-hash",
		FirstName:    "Alice",
		LastName:     "Lee",
		PhoneNumber:  "0812345678",
		BirthDate:    time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    testNow.Add(-time.Hour),
	}
}

const aliceRegisterBody = `{"email":"alice@example.com","password":"pw123","firstName":"Alice","lastName":"Lee","phoneNumber":"0812345678","birthDate":"1990-01-01"}`

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// --- POST /api/register テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	var got credential.RegistrationInput
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome {
			got = in
			return model.AuthOutcome{Subject: in.Email, Account: aliceAccount()}
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(aliceRegisterBody))
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	if got.Email != "alice@example.com" || got.Password != "pw123" || got.PhoneNumber != "0812345678" {
		t.Errorf("service received %+v", got)
	}
	if !got.BirthDate.Equal(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("BirthDate = %v, want 1990-01-01", got.BirthDate)
	}

	body := decodeBody(t, resp)
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
	if body["message"] != "User registered successfully" {
		t.Errorf("message = %v", body["message"])
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("user = %v, want object", body["user"])
	}
	if user["email"] != "alice@example.com" {
		t.Errorf("user.email = %v", user["email"])
	}
	if user["fullName"] != "Alice Lee" {
		t.Errorf("user.fullName = %v, want Alice Lee", user["fullName"])
	}
	if user["birthDate"] != "1990-01-01" {
		t.Errorf("user.birthDate = %v, want 1990-01-01", user["birthDate"])
	}
	if user["isAdult"] != true {
		t.Errorf("user.isAdult = %v, want true", user["isAdult"])
	}
	if _, exists := user["passwordHash"]; exists {
		t.Error("response must not contain passwordHash")
	}
	if strings.Contains(w.Body.String(), "pw123") {
		t.Error("response must not echo the password")
	}
}

func TestAuthHandler_Register_MalformedJSON(t *testing.T) {
	called := false
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome {
			called = true
			return model.AuthOutcome{}
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"email":`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, w.Result())
	if body["code"] != model.ErrCodeMalformedRequest {
		t.Errorf("code = %v, want %s", body["code"], model.ErrCodeMalformedRequest)
	}
	if called {
		t.Error("service should not be called for malformed JSON")
	}
}

func TestAuthHandler_Register_InvalidBirthDateFormat(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	reqBody := strings.Replace(aliceRegisterBody, "1990-01-01", "01/01/1990", 1)
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(reqBody))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, w.Result())
	if body["code"] != model.ErrCodeInvalidInput {
		t.Errorf("code = %v, want %s", body["code"], model.ErrCodeInvalidInput)
	}
}

func TestAuthHandler_Register_FailureMapping(t *testing.T) {
	tests := []struct {
		name       string
		outcome    model.AuthOutcome
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid input",
			outcome:    model.InvalidInput(credential.FieldPhoneNumber, "Phone number must be 10 digits"),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidInput,
		},
		{
			name:       "conflict",
			outcome:    model.Failed(model.ReasonConflict, "email already exists"),
			wantStatus: http.StatusConflict,
			wantCode:   model.ErrCodeEmailAlreadyExists,
		},
		{
			name:       "store unavailable",
			outcome:    model.Failed(model.ReasonStoreUnavailable, "connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   model.ErrCodeStoreUnavailable,
		},
		{
			name:       "internal",
			outcome:    model.Failed(model.ReasonInternal, "hash failed"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   model.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				registerFn: func(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome {
					return tt.outcome
				},
			}
			h := newTestAuthHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(aliceRegisterBody))
			w := httptest.NewRecorder()

			h.Register(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := decodeBody(t, w.Result())
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
			if body["status"] != "error" {
				t.Errorf("status field = %v, want error", body["status"])
			}
		})
	}
}

func TestAuthHandler_Register_StoreFailureDetailNotLeaked(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome {
			return model.Failed(model.ReasonStoreUnavailable, "dial tcp 10.0.0.5:5432: connection refused")
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(aliceRegisterBody))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Errorf("response leaks store detail: %s", w.Body.String())
	}
}

// --- POST /api/login テスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) model.AuthOutcome {
			if email != "alice@example.com" || password != "pw123" {
				t.Errorf("Login(%q, %q)", email, password)
			}
			return model.AuthOutcome{Subject: email, Token: "signed.jwt.token", Account: aliceAccount()}
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"alice@example.com","password":"pw123"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w.Result())
	if body["token"] != "signed.jwt.token" {
		t.Errorf("token = %v", body["token"])
	}
	if body["email"] != "alice@example.com" {
		t.Errorf("email = %v", body["email"])
	}
	if body["message"] != "Login successful" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) model.AuthOutcome {
			return model.Failed(model.ReasonBadCredentials, "Invalid email or password")
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, w.Result())
	if body["code"] != model.ErrCodeBadCredentials {
		t.Errorf("code = %v, want %s", body["code"], model.ErrCodeBadCredentials)
	}
	if _, exists := body["token"]; exists {
		t.Error("failed login must not return a token")
	}
}

func TestAuthHandler_Login_MalformedJSON(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Login_OversizedBody(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	big := `{"email":"alice@example.com","password":"` + strings.Repeat("a", maxRequestBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(big))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/me テスト ---

func TestAuthHandler_Me_Authenticated(t *testing.T) {
	svc := &mockAuthService{
		resolveProfileFn: func(ctx context.Context, email string) model.AuthOutcome {
			if email != "alice@example.com" {
				t.Errorf("ResolveProfile(%q)", email)
			}
			return model.AuthOutcome{Subject: email, Account: aliceAccount()}
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(middleware.ContextWithSubject(req.Context(), "alice@example.com"))
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w.Result())
	user, _ := body["user"].(map[string]any)
	if user["email"] != "alice@example.com" {
		t.Errorf("user.email = %v", user["email"])
	}
}

func TestAuthHandler_Me_NoSubject_ReturnsUnauthorized(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Me_AccountNotFound(t *testing.T) {
	svc := &mockAuthService{
		resolveProfileFn: func(ctx context.Context, email string) model.AuthOutcome {
			return model.Failed(model.ReasonNotFound, "User not found")
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(middleware.ContextWithSubject(req.Context(), "gone@example.com"))
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		apiErr *model.APIError
		want   int
	}{
		{model.NewInvalidInputError("email", "Email should be valid"), http.StatusBadRequest},
		{model.NewMalformedRequestError(), http.StatusBadRequest},
		{model.NewEmailAlreadyExistsError("a@example.com"), http.StatusConflict},
		{model.NewAccountNotFoundError(), http.StatusNotFound},
		{model.NewBadCredentialsError(), http.StatusUnauthorized},
		{model.NewTokenInvalidError(), http.StatusUnauthorized},
		{model.NewTokenExpiredError(), http.StatusUnauthorized},
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewRateLimitExceededError(), http.StatusTooManyRequests},
		{model.NewStoreUnavailableError(), http.StatusServiceUnavailable},
		{model.NewInternalError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.apiErr.Code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.apiErr); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.apiErr.Code, got, tt.want)
			}
		})
	}
}

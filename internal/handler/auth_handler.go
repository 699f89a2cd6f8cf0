// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/passgate/internal/credential"
	"github.com/hitoshi/passgate/internal/middleware"
	"github.com/hitoshi/passgate/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome
	Login(ctx context.Context, email, password string) model.AuthOutcome
	ResolveProfile(ctx context.Context, email string) model.AuthOutcome
}

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	BirthDate   string `json:"birthDate"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	User    profileResponse `json:"user"`
}

type loginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Email   string `json:"email"`
}

// AuthHandler は登録・ログイン・プロフィール取得のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	now     func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
		now:     time.Now,
	}
}

// Register はアカウントを登録する。
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedRequestError())
		return
	}

	in := credential.RegistrationInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	}
	if req.BirthDate != "" {
		birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidInputError(credential.FieldBirthDate, "Birth date must be in YYYY-MM-DD format"))
			return
		}
		in.BirthDate = birthDate
	}

	outcome := h.service.Register(r.Context(), in)
	if !outcome.Succeeded() {
		writeFailure(w, outcome.Failure, req.Email)
		return
	}

	writeJSON(w, http.StatusCreated, profileEnvelope{
		Status:  statusSuccess,
		Message: "User registered successfully",
		User:    newProfileResponse(outcome.Account, h.now()),
	})
}

// Login は認証情報を照合してベアラートークンを発行する。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedRequestError())
		return
	}

	outcome := h.service.Login(r.Context(), req.Email, req.Password)
	if !outcome.Succeeded() {
		writeFailure(w, outcome.Failure, req.Email)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Status:  statusSuccess,
		Message: "Login successful",
		Token:   outcome.Token,
		Email:   outcome.Subject,
	})
}

// Me は認証済みsubjectのプロフィールを返す。
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := middleware.SubjectFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	outcome := h.service.ResolveProfile(r.Context(), subject)
	if !outcome.Succeeded() {
		if outcome.Failure.Reason == model.ReasonNotFound {
			slog.Warn("authenticated subject has no account", slog.String("subject", subject))
		}
		writeFailure(w, outcome.Failure, subject)
		return
	}

	writeJSON(w, http.StatusOK, profileEnvelope{
		Status:  statusSuccess,
		Message: "User profile retrieved successfully",
		User:    newProfileResponse(outcome.Account, h.now()),
	})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/passgate/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// CountAccounts は登録済みアカウント数を返す。
	CountAccounts(ctx context.Context) (int, error)
	// EmailExists はメールアドレスが登録済みかを返す。
	EmailExists(ctx context.Context, email string) (bool, error)
}

type userCountResponse struct {
	Message    string `json:"message"`
	TotalUsers int    `json:"totalUsers"`
}

type emailCheckResponse struct {
	Message      string `json:"message"`
	EmailAddress string `json:"emailAddress"`
	Exists       bool   `json:"exists"`
}

// UserHandler はアカウント集計系のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Count は登録済みアカウント数を返す。
// GET /api/users/count
func (h *UserHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountAccounts(r.Context())
	if err != nil {
		slog.Error("failed to count accounts", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableError())
		return
	}

	writeJSON(w, http.StatusOK, userCountResponse{
		Message:    "Total users retrieved successfully",
		TotalUsers: count,
	})
}

// CheckEmail はメールアドレスが登録済みかを返す。
// GET /api/users/check-email/{email}
func (h *UserHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email, err := emailPathParam(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("email", "Email path segment is not valid percent-encoding"))
		return
	}

	exists, err := h.service.EmailExists(r.Context(), email)
	if err != nil {
		slog.Error("failed to check email", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableError())
		return
	}

	writeJSON(w, http.StatusOK, emailCheckResponse{
		Message:      "Email check completed",
		EmailAddress: email,
		Exists:       exists,
	})
}

// emailPathParam はパス上の{email}を復号して返す。
// RawPathが設定されている場合、chiはエスケープされたままのセグメントを返すため
// （例: encodeURIComponentによる%40）、ここでパーセントエンコーディングを戻す。
func emailPathParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "email")
	if r.URL.RawPath == "" {
		return raw, nil
	}
	return url.PathUnescape(raw)
}

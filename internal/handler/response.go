package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/passgate/internal/middleware"
	"github.com/hitoshi/passgate/internal/model"
)

const (
	statusSuccess = "success"
	// birthDateLayout はリクエスト・レスポンスで使う生年月日の形式。
	birthDateLayout = "2006-01-02"
	// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
	maxRequestBodyBytes = 1 << 16
)

// profileResponse はアカウントの公開プロフィール。パスワードハッシュは含めない。
type profileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	FullName    string    `json:"fullName"`
	PhoneNumber string    `json:"phoneNumber"`
	BirthDate   string    `json:"birthDate"`
	IsAdult     bool      `json:"isAdult"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newProfileResponse(a *model.Account, now time.Time) profileResponse {
	return profileResponse{
		ID:          a.ID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		FullName:    a.FullName(),
		PhoneNumber: a.PhoneNumber,
		BirthDate:   a.BirthDate.Format(birthDateLayout),
		IsAdult:     a.IsAdult(now),
		CreatedAt:   a.CreatedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeFailure は認証処理の失敗結果をAPIErrorに変換して書き込む。
func writeFailure(w http.ResponseWriter, failure *model.AuthFailure, email string) {
	apiErr := apiErrorFromFailure(failure, email)
	writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// apiErrorFromFailure は失敗理由に対応するAPIErrorを返す。
func apiErrorFromFailure(failure *model.AuthFailure, email string) *model.APIError {
	switch failure.Reason {
	case model.ReasonInvalidInput:
		return model.NewInvalidInputError(failure.Field, failure.Detail)
	case model.ReasonConflict:
		return model.NewEmailAlreadyExistsError(email)
	case model.ReasonNotFound:
		return model.NewAccountNotFoundError()
	case model.ReasonBadCredentials:
		return model.NewBadCredentialsError()
	case model.ReasonStoreUnavailable:
		return model.NewStoreUnavailableError()
	default:
		return model.NewInternalError()
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidInput, model.ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case model.ErrCodeEmailAlreadyExists:
		return http.StatusConflict
	case model.ErrCodeAccountNotFound:
		return http.StatusNotFound
	case model.ErrCodeBadCredentials, model.ErrCodeTokenInvalid, model.ErrCodeTokenExpired, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はサイズ上限付きでリクエストボディをデコードする。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hitoshi/passgate/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Status:   "error",
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// bearerRealm はWWW-Authenticateヘッダーで通知する保護領域の名前。
const bearerRealm = "passgate"

// WriteAuthErrorResponse は認証失敗の401レスポンスをWWW-Authenticateヘッダー付きで書き込む。
// トークンが提示されなかった場合はerror属性を付けず、不正・期限切れの場合はinvalid_tokenを付ける。
func WriteAuthErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	challenge := fmt.Sprintf("Bearer realm=%q", bearerRealm)
	switch apiErr.Code {
	case model.ErrCodeTokenInvalid, model.ErrCodeTokenExpired:
		challenge += fmt.Sprintf(", error=\"invalid_token\", error_description=%q", apiErr.Message)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/passgate/internal/model"
)

// healthCheckTimeout はヘルスチェック1回あたりのストア疎通確認の上限時間。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はストアの疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SystemHandler は疎通確認用のHTTPハンドラー。
type SystemHandler struct {
	store HealthChecker
}

// NewSystemHandler はSystemHandlerを生成する。
func NewSystemHandler(store HealthChecker) *SystemHandler {
	return &SystemHandler{store: store}
}

// Hello は固定メッセージを返す。
// GET /api/hello
func (h *SystemHandler) Hello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

// Health はストアが応答するかどうかを返す。
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.store.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableError())
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

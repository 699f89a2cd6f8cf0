// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/passgate/internal/auth"
	"github.com/hitoshi/passgate/internal/model"
	"github.com/hitoshi/passgate/internal/token"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// subjectContextKey は認証済みsubject（メールアドレス）を格納するキー。
	subjectContextKey = contextKey("subject")
	// authErrorContextKey はトークン検証に失敗した理由を格納するキー。
	authErrorContextKey = contextKey("auth_error")
	// requestStateContextKey はロギングミドルウェアと共有するリクエスト状態のキー。
	requestStateContextKey = contextKey("request_state")
)

// requestState は内側のミドルウェアが外側のミドルウェアへ情報を返すための入れ物。
type requestState struct {
	subject string
}

// Authenticator はベアラートークンを検証し、認証済みsubjectを返す。
// auth.Serviceが実装する。
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証するミドルウェアを返す。
//
// 検証に成功した場合のみsubjectをコンテキストに注入する。
// ヘッダーが無い場合や検証に失敗した場合も未認証のまま後続へ渡し、自身はレスポンスを書かない。
// 認証を必須とするルートではRequireAuthを併用すること。
func NewBearerAuthMiddleware(authenticator Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := authenticator.Authenticate(r.Context(), tok)
			if err != nil {
				logAuthFailure(r, err)
				ctx := context.WithValue(r.Context(), authErrorContextKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if state, ok := r.Context().Value(requestStateContextKey).(*requestState); ok {
				state.subject = subject
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
func bearerToken(r *http.Request) (string, bool) {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func logAuthFailure(r *http.Request, err error) {
	switch {
	case errors.Is(err, token.ErrInvalid), errors.Is(err, token.ErrSubjectMismatch),
		errors.Is(err, token.ErrExpired), errors.Is(err, auth.ErrAccountGone):
		slog.Debug("bearer token rejected",
			slog.String("path", r.URL.Path),
			slog.String("reason", err.Error()),
		)
	default:
		slog.Error("failed to authenticate bearer token",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// RequireAuth は認証済みsubjectの無いリクエストを401で拒否するミドルウェア。
// NewBearerAuthMiddlewareの内側に配置する。
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := SubjectFromContext(r.Context()); err == nil {
			next.ServeHTTP(w, r)
			return
		}

		authErr, _ := r.Context().Value(authErrorContextKey).(error)
		switch {
		case authErr == nil:
			WriteAuthErrorResponse(w, model.NewUnauthorizedError())
		case errors.Is(authErr, token.ErrExpired):
			WriteAuthErrorResponse(w, model.NewTokenExpiredError())
		case errors.Is(authErr, token.ErrInvalid), errors.Is(authErr, token.ErrSubjectMismatch),
			errors.Is(authErr, auth.ErrAccountGone):
			WriteAuthErrorResponse(w, model.NewTokenInvalidError())
		default:
			WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableError())
		}
	})
}

// SubjectFromContext はリクエストコンテキストから認証済みsubjectを取得する。
// ベアラートークンの検証に成功したリクエストでのみ有効。
func SubjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("subject not found in context")
	}
	return subject, nil
}

// ContextWithSubject はコンテキストに認証済みsubjectを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

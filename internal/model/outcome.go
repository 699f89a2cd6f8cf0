package model

import "fmt"

// FailureReason は認証処理が失敗した理由の分類。
type FailureReason string

const (
	ReasonNotFound         FailureReason = "not_found"
	ReasonBadCredentials   FailureReason = "bad_credentials"
	ReasonConflict         FailureReason = "conflict"
	ReasonInvalidInput     FailureReason = "invalid_input"
	ReasonStoreUnavailable FailureReason = "store_unavailable"
	// ReasonInternal はハッシュ計算やトークン署名など、入力にもストアにも起因しない失敗。
	ReasonInternal FailureReason = "internal"
)

// AuthFailure は失敗した認証処理の詳細。
// Fieldは入力検証エラーの場合のみ設定される。
type AuthFailure struct {
	Reason FailureReason
	Field  string
	Detail string
}

// Error はerrorインターフェースを実装する。
func (f *AuthFailure) Error() string {
	if f.Field != "" {
		return fmt.Sprintf("%s: %s: %s", f.Reason, f.Field, f.Detail)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Detail)
}

// AuthOutcome は認証オーケストレーターの各操作が返す結果。
// Failureがnilなら成功で、Subject・Token・Accountのうち操作に応じたものが設定される。
type AuthOutcome struct {
	Subject string
	Token   string
	Account *Account
	Failure *AuthFailure
}

// Succeeded は成功結果かどうかを返す。
func (o AuthOutcome) Succeeded() bool {
	return o.Failure == nil
}

// Failed は指定理由の失敗結果を生成する。
func Failed(reason FailureReason, detail string) AuthOutcome {
	return AuthOutcome{Failure: &AuthFailure{Reason: reason, Detail: detail}}
}

// InvalidInput は入力検証エラーの失敗結果を生成する。
func InvalidInput(field, detail string) AuthOutcome {
	return AuthOutcome{Failure: &AuthFailure{Reason: ReasonInvalidInput, Field: field, Detail: detail}}
}

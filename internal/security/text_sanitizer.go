// Package security はアプリケーションのセキュリティ機能を提供する。
//
// PasswordHasher はパスワードの一方向ハッシュ化と照合を、
// TextSanitizer は利用者が入力した表示名からのマークアップ除去を担う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキストとして保存する入力値を無害化するインターフェース。
type TextSanitizer interface {
	// Sanitize はHTMLタグを全て除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
// 全てのタグを拒否するStrictPolicyを使用する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses は文字実体参照の多重エスケープを展開する上限回数。
const maxSanitizePasses = 8

// Sanitize はタグを除去したプレーンテキストを返す。
// 保存値はHTMLではないため文字実体参照は元の文字に戻す。
// 戻した結果がタグを含み得るので、出力が変化しなくなるまで除去と展開を繰り返す。
// 上限回数で収束しない入力は空文字列として扱う。
func (s *textSanitizer) Sanitize(raw string) string {
	out := strings.TrimSpace(raw)
	for range maxSanitizePasses {
		if out == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	return ""
}

// Package credential は登録入力の検証ルールを提供する。
//
// 各ルールは宣言順（email, password, firstName, lastName, phoneNumber, birthDate）に評価され、
// 最初に違反したルールのみを報告する。違反の集約は行わない。
package credential

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ドメイン部は空白・制御文字を除く印字可能ASCIIに限る
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[\x21-\x7E]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// フィールド名（JSONのキーと一致させる）
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldPhoneNumber = "phoneNumber"
	FieldBirthDate   = "birthDate"
)

// RegistrationInput はアカウント登録の入力値。
type RegistrationInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	BirthDate   time.Time
}

// ValidationError は検証ルール違反を表す。
type ValidationError struct {
	Field  string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate は登録入力を検証する。nowは誕生日の判定基準となる現在時刻。
// 全ルールを満たす場合はnilを返す。
func Validate(in RegistrationInput, now time.Time) *ValidationError {
	if strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: FieldEmail, Reason: "Email is required"}
	}
	if !emailPattern.MatchString(in.Email) {
		return &ValidationError{Field: FieldEmail, Reason: "Email should be valid"}
	}

	if strings.TrimSpace(in.Password) == "" {
		return &ValidationError{Field: FieldPassword, Reason: "Password is required"}
	}

	if strings.TrimSpace(in.FirstName) == "" {
		return &ValidationError{Field: FieldFirstName, Reason: "First name is required"}
	}
	if strings.TrimSpace(in.LastName) == "" {
		return &ValidationError{Field: FieldLastName, Reason: "Last name is required"}
	}

	if strings.TrimSpace(in.PhoneNumber) == "" {
		return &ValidationError{Field: FieldPhoneNumber, Reason: "Phone number is required"}
	}
	if !phonePattern.MatchString(in.PhoneNumber) {
		return &ValidationError{Field: FieldPhoneNumber, Reason: "Phone number must be 10 digits"}
	}

	if in.BirthDate.IsZero() {
		return &ValidationError{Field: FieldBirthDate, Reason: "Birthday is required"}
	}
	if !truncateToDate(in.BirthDate).Before(truncateToDate(now)) {
		return &ValidationError{Field: FieldBirthDate, Reason: "Birthday must be in the past"}
	}

	return nil
}

// truncateToDate はUTCの日付単位に切り捨てる。
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

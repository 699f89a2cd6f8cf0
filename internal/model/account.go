// Package model はドメインモデルを定義する。
package model

import "time"

// Account は認証対象となる利用者アカウントを表す。
// PasswordHashはbcryptのハッシュ文字列で、平文パスワードは保持しない。
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	BirthDate    time.Time
	CreatedAt    time.Time
}

// FullName は「名 姓」形式の表示名を返す。
func (a *Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

// IsAdult は基準時刻nowにおいて18歳以上かどうかを返す。
// 参照用の判定であり、登録時のゲートには使用しない。
func (a *Account) IsAdult(now time.Time) bool {
	if a.BirthDate.IsZero() {
		return false
	}
	return a.BirthDate.Before(now.AddDate(-18, 0, 0))
}

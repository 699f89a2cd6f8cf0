// Package repository はデータ永続化のインターフェースと実装を定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/passgate/internal/model"
)

// ErrDuplicateEmail は保存時にメールアドレスの一意制約に違反した場合に返される。
// 事前の存在確認と保存は原子的ではないため、呼び出し側はこのエラーを競合として扱う。
var ErrDuplicateEmail = errors.New("email already exists")

// AccountRepository はアカウントの永続化インターフェース。
// 各メソッドは実装側で並行実行に対して安全であること。
type AccountRepository interface {
	// Save はアカウントを新規作成する。IDとCreatedAtは実装側で採番して引数に設定する。
	// メールアドレスが既に存在する場合はErrDuplicateEmailを返す。
	Save(ctx context.Context, account *model.Account) error

	// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// ExistsByEmail はメールアドレスが登録済みかを返す。
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Count は登録済みアカウント数を返す。
	Count(ctx context.Context) (int, error)
}

// HealthChecker はストアの疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

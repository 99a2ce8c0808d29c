// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/zenport/internal/model"
)

// ErrTokenNotFound はアクセストークンが1件も保存されていないことを示す。
var ErrTokenNotFound = errors.New("access token not found")

// TokenRepository はアクセストークンの永続化インターフェース。
// トークンは追記のみで保存し、更新・削除は行わない。
type TokenRepository interface {
	// Insert はアクセストークンを追記保存する。
	Insert(ctx context.Context, token string) error

	// GetMostRecent は最後に保存されたアクセストークンを取得する。
	// 1件も保存されていない場合はErrTokenNotFoundを返す。
	GetMostRecent(ctx context.Context) (*model.AccessToken, error)
}

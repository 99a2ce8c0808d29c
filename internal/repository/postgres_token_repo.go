package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/zenport/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したアクセストークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// Insert はアクセストークンを追記保存する。
// 既存行は更新せず、常に新しい行を追加する。
func (r *PostgresTokenRepo) Insert(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (token) VALUES ($1)`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access token: %w", err)
	}
	return nil
}

// GetMostRecent は最後に保存されたアクセストークンを取得する。
// 1件も保存されていない場合はErrTokenNotFoundを返す。
func (r *PostgresTokenRepo) GetMostRecent(ctx context.Context) (*model.AccessToken, error) {
	token := &model.AccessToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, created_at
		 FROM access_tokens
		 ORDER BY id DESC
		 LIMIT 1`,
	).Scan(&token.ID, &token.Token, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access token: %w", err)
	}

	return token, nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)

package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shopcart-api/internal/domain/auth"
)

const (
	getTokenByHashSQL = `SELECT id, token_hash, user_id, name
		FROM auth_tokens WHERE token_hash = $1 AND active = TRUE`

	insertTokenSQL = `INSERT INTO auth_tokens (id, token_hash, user_id, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING`
)

var _ auth.Repository = (*TokenRepository)(nil)

// TokenRepository provides bearer-token lookups backed by PostgreSQL.
type TokenRepository struct {
	db DB
}

// NewTokenRepository returns a TokenRepository over the given pool.
func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindByHash looks up an active token by its HMAC-SHA256 hash.
func (r *TokenRepository) FindByHash(ctx context.Context, hash string) (*auth.TokenInfo, error) {
	var info auth.TokenInfo
	err := r.db.QueryRow(ctx, getTokenByHashSQL, hash).Scan(
		&info.ID, &info.TokenHash, &info.UserID, &info.Name,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("finding token by hash: %w", err)
	}
	return &info, nil
}

// Insert stores a token hash for a user. Used by the seeding tool.
func (r *TokenRepository) Insert(ctx context.Context, info *auth.TokenInfo) error {
	_, err := r.db.Exec(ctx, insertTokenSQL, info.ID, info.TokenHash, info.UserID, info.Name)
	if err != nil {
		return fmt.Errorf("inserting token %q: %w", info.Name, err)
	}
	return nil
}

package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrTokenNotFound is returned when no active token matches the given hash.
var ErrTokenNotFound = errors.New("token not found")

// TokenInfo identifies the user behind a validated bearer token. Token
// issuance (login, password flows) is handled outside this service; the API
// only ever looks tokens up.
type TokenInfo struct {
	ID        string
	TokenHash string
	UserID    string
	Name      string
}

// Repository provides lookup of bearer tokens by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*TokenInfo, error)
}

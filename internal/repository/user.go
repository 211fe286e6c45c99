package repository

import (
	"context"
	"fmt"
)

const upsertUserSQL = `INSERT INTO users (id, email, name)
	VALUES ($1, $2, $3)
	ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name`

// UserRepository manages user rows. Account management lives in a separate
// service; this repository exists for seeding and referential integrity.
type UserRepository struct {
	db DB
}

// NewUserRepository returns a UserRepository over the given pool.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts a user keyed by email.
func (r *UserRepository) Upsert(ctx context.Context, id, email, name string) error {
	if _, err := r.db.Exec(ctx, upsertUserSQL, id, email, name); err != nil {
		return fmt.Errorf("upserting user %q: %w", email, err)
	}
	return nil
}

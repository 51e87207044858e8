package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository/base"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// Upsert writes a user keyed by pennkey.
func (r *UserRepository) Upsert(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (pennkey, penn_id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pennkey) DO UPDATE
		SET penn_id = COALESCE(EXCLUDED.penn_id, users.penn_id),
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    email = EXCLUDED.email
	`
	_, err := r.ExecAffected(ctx, query,
		user.Pennkey, user.PennID, user.FirstName, user.LastName, user.Email)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetByPennkey returns a user by pennkey, or nil when unknown.
func (r *UserRepository) GetByPennkey(ctx context.Context, pennkey string) (*model.User, error) {
	query := `
		SELECT pennkey, penn_id, first_name, last_name, email, created_at
		FROM users
		WHERE pennkey = $1
	`
	var user model.User
	err := r.QueryRow(ctx, query, pennkey).Scan(
		&user.Pennkey,
		&user.PennID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by pennkey: %w", err)
	}
	return &user, nil
}

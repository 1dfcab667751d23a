package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/slotwise/scheduler-api/pkg/errors"

	"github.com/slotwise/scheduler-api/internal/model"
	"github.com/slotwise/scheduler-api/internal/repository"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, name, email, is_provider, created_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user", err)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to get user: %w", err))
	}
	return &user, nil
}

func (r *userRepository) ListProviders(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, name, email, is_provider, created_at
		FROM users
		WHERE is_provider = TRUE
		ORDER BY name ASC
	`
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list providers: %w", err))
	}
	return users, nil
}

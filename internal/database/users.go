package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"wasteroute-backend/internal/models"
)

const userColumns = `id, email, password, name, role, is_active, created_at, updated_at`

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, s.ext, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, s.ext, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "user", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :password, :name, :role, :is_active, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.ext, query, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpsertFCMToken registers a device token, moving it to userID if another account held it
func (s *Store) UpsertFCMToken(ctx context.Context, userID, token, deviceType string, now int64) error {
	query := `
		INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token)
		DO UPDATE SET user_id = EXCLUDED.user_id,
		              device_type = EXCLUDED.device_type,
		              updated_at = EXCLUDED.updated_at
	`
	if _, err := s.ext.ExecContext(ctx, query, userID, token, deviceType, now); err != nil {
		return fmt.Errorf("failed to save FCM token: %w", err)
	}
	return nil
}

func (s *Store) FCMTokensForUser(ctx context.Context, userID string) ([]string, error) {
	tokens := []string{}
	query := `SELECT token FROM fcm_tokens WHERE user_id = $1 ORDER BY updated_at DESC`
	if err := sqlx.SelectContext(ctx, s.ext, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get FCM tokens: %w", err)
	}
	return tokens, nil
}

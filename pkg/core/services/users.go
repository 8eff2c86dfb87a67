package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/db"
)

// UserInput holds the fields of a new user
type UserInput struct {
	Name  string `validate:"required,max=200"`
	Email string `validate:"required,email"`
}

// CreateUser registers a user. Emails are unique regardless of case.
func CreateUser(ctx context.Context, database db.Database, logger *zap.Logger, input UserInput) (*db.User, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var user *db.User
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		t := now()
		user = &db.User{
			ID:        newID(),
			Name:      input.Name,
			Email:     input.Email,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if err := q.InsertUser(ctx, user); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("a user with email %s already exists", input.Email)
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("User created",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email))

	return user, nil
}

// GetUser returns a user by id
func GetUser(ctx context.Context, database db.Database, userID string) (*db.User, error) {
	var user *db.User
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		var err error
		user, err = authz.Lookup(ctx, q.GetUser, "user", userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

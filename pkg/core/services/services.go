// Package services exposes the transaction-wrapped operations of the volunteer
// coordination core. Every exported function runs inside one db.Database
// transaction and returns either a record snapshot or an *apperr.Error.
package services

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
)

// now is swapped in tests for a fixed clock
var now = func() time.Time {
	return time.Now().UTC()
}

func newID() string {
	return uuid.New().String()
}

var validate = validator.New()

// validateInput runs struct validation, reporting failures as ValidationError
func validateInput(input any) error {
	if err := validate.Struct(input); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid input")
	}
	return nil
}

func resolver(cfg *config.Config, logger *zap.Logger) *authz.Resolver {
	return authz.NewResolver(logger, cfg.Authorization.LegacyGroupRoles)
}

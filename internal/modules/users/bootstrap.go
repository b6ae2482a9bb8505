package users

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arlen/stockpilot/internal/domain"
)

// DevToken is the fixed bearer token installed by BootstrapDev. Dev mode
// only; real tokens are issued by the auth service.
const DevToken = "dev-token"

// BootstrapDev creates a demo admin with a funded balance and a long-lived
// session so a fresh local database is usable immediately. Does nothing when
// the user already exists.
func BootstrapDev(userRepo *UserRepository, sessionRepo *SessionRepository, log zerolog.Logger) error {
	existing, err := userRepo.GetByID("dev")
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	err = userRepo.Create(domain.User{
		ID:          "dev",
		DisplayName: "Dev User",
		Role:        domain.RoleAdmin,
		Balance:     decimal.NewFromInt(10000),
	}, "dev@localhost")
	if err != nil {
		return err
	}

	if err := sessionRepo.Create(DevToken, "dev", time.Now().AddDate(0, 0, 30)); err != nil {
		return err
	}

	log.Info().Str("user_id", "dev").Msg("Bootstrapped dev user and session")
	return nil
}

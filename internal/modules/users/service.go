package users

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arlen/stockpilot/internal/database"
	"github.com/arlen/stockpilot/internal/domain"
)

// Service exposes account operations to the API facade. Besides lookups it
// carries the payment collaborator's credited-amount contract: a positive
// 2dp amount is added to the balance, nothing else about the gateway is
// known here.
type Service struct {
	db       *sql.DB
	userRepo *UserRepository
	log      zerolog.Logger
}

// NewService creates a new users service.
func NewService(db *sql.DB, userRepo *UserRepository, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		userRepo: userRepo,
		log:      log.With().Str("service", "users").Logger(),
	}
}

// Get returns the user, failing NOT_FOUND for an unknown id.
func (s *Service) Get(userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.Ef(domain.KindNotFound, "unknown user %s", userID)
	}
	return user, nil
}

// Credit adds a positive amount to the user's balance and returns the new
// balance.
func (s *Service) Credit(userID string, amount decimal.Decimal) (*domain.User, error) {
	rounded := domain.RoundMoney(amount)
	if !rounded.IsPositive() {
		return nil, domain.E(domain.KindInvalidInput, "credit amount must be positive")
	}

	if _, err := s.Get(userID); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		return s.userRepo.CreditBalanceTx(tx, userID, domain.ToUnits(rounded))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("amount", rounded.String()).
		Msg("Balance credited")

	return s.Get(userID)
}

package watchlist

import (
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/stocks"
)

// Service manages per-user watchlists.
type Service struct {
	watchlistRepo *WatchlistRepository
	stockRepo     *stocks.StockRepository
	cap           int
	log           zerolog.Logger
}

// NewService creates a new watchlist service. cap is the maximum number of
// symbols a single user may watch.
func NewService(watchlistRepo *WatchlistRepository, stockRepo *stocks.StockRepository, cap int, log zerolog.Logger) *Service {
	return &Service{
		watchlistRepo: watchlistRepo,
		stockRepo:     stockRepo,
		cap:           cap,
		log:           log.With().Str("service", "watchlist").Logger(),
	}
}

// Get returns the user's watched stocks with their cached quotes, in
// alphabetical order.
func (s *Service) Get(userID string) ([]domain.Stock, error) {
	symbols, err := s.watchlistRepo.GetSymbols(userID)
	if err != nil {
		return nil, err
	}

	watched := make([]domain.Stock, 0, len(symbols))
	for _, symbol := range symbols {
		stock, err := s.stockRepo.GetBySymbol(symbol)
		if err != nil {
			return nil, err
		}
		if stock != nil {
			watched = append(watched, *stock)
		}
	}
	return watched, nil
}

// Add puts a symbol on the user's watchlist.
func (s *Service) Add(userID, symbol string) ([]domain.Stock, error) {
	symbol = stocks.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.E(domain.KindInvalidInput, "symbol is required")
	}

	stock, err := s.stockRepo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, domain.Ef(domain.KindUnknownSymbol, "unknown symbol %s", symbol)
	}

	// Duplicate wins over capacity: re-adding a watched symbol on a full
	// list is still a duplicate.
	watched, err := s.watchlistRepo.Contains(userID, symbol)
	if err != nil {
		return nil, err
	}
	if watched {
		return nil, domain.Ef(domain.KindDuplicate, "%s is already on the watchlist", symbol)
	}

	count, err := s.watchlistRepo.Count(userID)
	if err != nil {
		return nil, err
	}
	if count >= s.cap {
		return nil, domain.Ef(domain.KindCapacity, "watchlist is full (limit %d)", s.cap)
	}

	added, err := s.watchlistRepo.Add(userID, symbol)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, domain.Ef(domain.KindDuplicate, "%s is already on the watchlist", symbol)
	}

	s.log.Debug().Str("user_id", userID).Str("symbol", symbol).Msg("Symbol added to watchlist")
	return s.Get(userID)
}

// Remove takes a symbol off the user's watchlist. Removing a symbol that is
// not watched succeeds without effect.
func (s *Service) Remove(userID, symbol string) ([]domain.Stock, error) {
	symbol = stocks.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.E(domain.KindInvalidInput, "symbol is required")
	}

	if err := s.watchlistRepo.Remove(userID, symbol); err != nil {
		return nil, err
	}
	return s.Get(userID)
}

package stocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/clients/marketdata"
	"github.com/arlen/stockpilot/internal/database"
	"github.com/arlen/stockpilot/internal/domain"
)

// QuoteProvider is the external market data collaborator. Implemented by
// marketdata.Client in production and by fakes in tests.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
	GetRemainingRequests() int
}

// Service coordinates the stock catalog, the cached quotes, and the price
// history. Quote writes go through here so a stock's current fields and its
// history point land in one commit.
type Service struct {
	db          *sql.DB
	stockRepo   *StockRepository
	historyRepo *HistoryRepository
	provider    QuoteProvider
	log         zerolog.Logger
}

// NewService creates a new stocks service.
func NewService(db *sql.DB, stockRepo *StockRepository, historyRepo *HistoryRepository, provider QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		db:          db,
		stockRepo:   stockRepo,
		historyRepo: historyRepo,
		provider:    provider,
		log:         log.With().Str("service", "stocks").Logger(),
	}
}

// List returns all stocks with their cached quotes.
func (s *Service) List() ([]domain.Stock, error) {
	return s.stockRepo.GetAll()
}

// Get returns one stock, failing UNKNOWN_SYMBOL if it does not exist.
func (s *Service) Get(symbol string) (*domain.Stock, error) {
	stock, err := s.stockRepo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, domain.Ef(domain.KindUnknownSymbol, "unknown symbol %s", NormalizeSymbol(symbol))
	}
	return stock, nil
}

// History returns OHLCV points for a symbol. A range selector ("1D".."1Y",
// "ALL") or an explicit from-time narrows the window; limit caps the count.
func (s *Service) History(symbol string, rangeSel string, from time.Time, limit int) ([]domain.PricePoint, error) {
	if _, err := s.Get(symbol); err != nil {
		return nil, err
	}

	start := from
	if rangeSel != "" {
		windowStart, err := RangeStart(rangeSel, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		start = windowStart
	}

	return s.historyRepo.GetHistory(symbol, start, limit)
}

// RefreshStock fetches a fresh quote for one symbol and commits the updated
// quote together with its history point. Each refresh is atomic per stock:
// the stock is either updated fully or left untouched.
func (s *Service) RefreshStock(ctx context.Context, symbol string) (*domain.Stock, error) {
	stock, err := s.Get(symbol)
	if err != nil {
		return nil, err
	}

	quote, err := s.provider.GetQuote(ctx, stock.Symbol)
	if err != nil {
		var budget marketdata.ErrRateLimitExceeded
		if errors.As(err, &budget) {
			return nil, domain.Wrap(domain.KindProviderError, "provider budget exhausted", err)
		}
		return nil, domain.Wrap(domain.KindProviderError, "quote fetch failed", err)
	}

	now := time.Now().UTC()
	updated := domain.Stock{
		Symbol:        stock.Symbol,
		Name:          stock.Name,
		Sector:        stock.Sector,
		CurrentPrice:  quote.Price,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
		Volume:        quote.Volume,
		LastUpdatedAt: now,
	}

	point := domain.PricePoint{
		Symbol:    stock.Symbol,
		Timestamp: now,
		Open:      quote.Open,
		High:      quote.High,
		Low:       quote.Low,
		Close:     quote.Price,
		Volume:    quote.Volume,
	}

	err = database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.stockRepo.UpdateQuoteTx(tx, updated); err != nil {
			return err
		}
		return s.historyRepo.AppendTx(tx, point)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit refreshed quote for %s: %w", stock.Symbol, err)
	}

	s.log.Info().
		Str("symbol", stock.Symbol).
		Str("price", quote.Price.String()).
		Msg("Quote refreshed")

	return &updated, nil
}

// StaleStocks lists the stocks whose quote is older than the staleness
// window, in stable symbol order.
func (s *Service) StaleStocks(staleAfter time.Duration) ([]domain.Stock, error) {
	cutoff := time.Now().UTC().Add(-staleAfter)
	return s.stockRepo.GetStale(cutoff)
}

// RemainingBudget reports the provider requests left today.
func (s *Service) RemainingBudget() int {
	return s.provider.GetRemainingRequests()
}

// RangeStart converts a range selector to the start of its window relative
// to now. "ALL" maps to the zero time.
func RangeStart(sel string, now time.Time) (time.Time, error) {
	switch sel {
	case "1D":
		return now.AddDate(0, 0, -1), nil
	case "1W":
		return now.AddDate(0, 0, -7), nil
	case "1M":
		return now.AddDate(0, -1, 0), nil
	case "3M":
		return now.AddDate(0, -3, 0), nil
	case "6M":
		return now.AddDate(0, -6, 0), nil
	case "1Y":
		return now.AddDate(-1, 0, 0), nil
	case "ALL":
		return time.Time{}, nil
	default:
		return time.Time{}, domain.Ef(domain.KindInvalidInput, "invalid range %q", sel)
	}
}

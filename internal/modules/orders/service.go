package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arlen/stockpilot/internal/database"
	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/portfolio"
	"github.com/arlen/stockpilot/internal/modules/stocks"
	"github.com/arlen/stockpilot/internal/modules/users"
)

// retryBackoff is the wait before optimistic retry n (0-based). Exhausting
// the budget fails the order with CONFLICT.
var retryBackoff = []time.Duration{
	10 * time.Millisecond,
	40 * time.Millisecond,
	160 * time.Millisecond,
}

// PlaceOrderResult carries everything a successful fill produced.
type PlaceOrderResult struct {
	Order       domain.Order       `json:"order"`
	Transaction domain.Transaction `json:"transaction"`
	Balance     decimal.Decimal    `json:"balance"`
	Position    *domain.Position   `json:"position"` // nil when the fill closed the position
}

// Service executes buy/sell orders. Every accepted order commits its balance
// change, position change, order row, and transaction row atomically; the
// funds and share guards are part of the commit's conditional predicates, so
// no interleaving can produce a negative balance or phantom shares.
type Service struct {
	db           *sql.DB
	orderRepo    *OrderRepository
	txnRepo      *TransactionRepository
	positionRepo *portfolio.PositionRepository
	stockRepo    *stocks.StockRepository
	userRepo     *users.UserRepository
	retryBudget  int
	log          zerolog.Logger
}

// NewService creates a new order engine.
func NewService(
	db *sql.DB,
	orderRepo *OrderRepository,
	txnRepo *TransactionRepository,
	positionRepo *portfolio.PositionRepository,
	stockRepo *stocks.StockRepository,
	userRepo *users.UserRepository,
	retryBudget int,
	log zerolog.Logger,
) *Service {
	if retryBudget < 0 {
		retryBudget = 0
	}
	return &Service{
		db:           db,
		orderRepo:    orderRepo,
		txnRepo:      txnRepo,
		positionRepo: positionRepo,
		stockRepo:    stockRepo,
		userRepo:     userRepo,
		retryBudget:  retryBudget,
		log:          log.With().Str("service", "orders").Logger(),
	}
}

// PlaceOrder validates and executes one market order at the cached last
// price. Lock contention retries with backoff up to the retry budget and
// then fails CONFLICT.
func (s *Service) PlaceOrder(ctx context.Context, userID, symbol string, orderType domain.OrderType, quantity int64) (*PlaceOrderResult, error) {
	if quantity < 1 {
		return nil, domain.E(domain.KindInvalidQuantity, "quantity must be a positive integer")
	}
	if orderType != domain.OrderBuy && orderType != domain.OrderSell {
		return nil, domain.Ef(domain.KindInvalidInput, "invalid order type %q", orderType)
	}

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
	if !stock.HasPrice() {
		return nil, domain.Ef(domain.KindStalePrice, "no usable price for %s", symbol)
	}

	var result *PlaceOrderResult
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, lastErr = s.execute(ctx, userID, symbol, orderType, quantity, stock.CurrentPrice)
		if lastErr == nil || !database.IsBusy(lastErr) {
			break
		}
		if attempt >= s.retryBudget {
			s.log.Warn().
				Str("user_id", userID).
				Str("symbol", symbol).
				Int("attempts", attempt+1).
				Msg("Order commit retries exhausted")
			return nil, domain.Wrap(domain.KindConflict, "order commit contended, retry budget exhausted", lastErr)
		}

		wait := retryBackoff[len(retryBackoff)-1]
		if attempt < len(retryBackoff) {
			wait = retryBackoff[attempt]
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	s.log.Info().
		Str("user_id", userID).
		Str("symbol", symbol).
		Str("type", string(orderType)).
		Int64("quantity", quantity).
		Str("price", result.Order.Price.String()).
		Msg("Order filled")

	return result, nil
}

// execute performs one atomic fill attempt. The transaction starts
// immediate, so the balance and position guards below run under the write
// lock; contention surfaces as a busy error the caller retries with fresh
// reads.
func (s *Service) execute(ctx context.Context, userID, symbol string, orderType domain.OrderType, quantity int64, price decimal.Decimal) (*PlaceOrderResult, error) {
	priceUnits := domain.ToUnits(price)
	totalUnits := priceUnits * quantity
	total := domain.FromUnits(totalUnits)
	now := time.Now().UTC()

	order := domain.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		Type:      orderType,
		Quantity:  quantity,
		Price:     price,
		Status:    domain.OrderFilled,
		CreatedAt: now,
	}
	txn := domain.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		Type:      orderType,
		Quantity:  quantity,
		UnitPrice: price,
		Amount:    total,
		CreatedAt: now,
	}

	var position *domain.Position

	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		switch orderType {
		case domain.OrderBuy:
			ok, err := s.userRepo.DebitBalanceTx(tx, userID, totalUnits)
			if err != nil {
				return err
			}
			if !ok {
				return domain.Ef(domain.KindInsufficientFunds, "balance below %s", total.StringFixed(domain.DisplayScale))
			}

			existing, err := s.positionRepo.GetTx(tx, userID, symbol)
			if err != nil {
				return err
			}
			if existing == nil {
				p := domain.Position{
					UserID:      userID,
					Symbol:      symbol,
					Quantity:    quantity,
					AvgBuyPrice: price.RoundBank(domain.MoneyScale),
				}
				if err := s.positionRepo.InsertTx(tx, p); err != nil {
					return err
				}
				position = &p
			} else {
				newQty := existing.Quantity + quantity
				newAvg := domain.WeightedAverage(existing.Quantity, existing.AvgBuyPrice, quantity, price)
				if err := s.positionRepo.SetQuantityAvgTx(tx, userID, symbol, newQty, domain.ToUnits(newAvg)); err != nil {
					return err
				}
				p := *existing
				p.Quantity = newQty
				p.AvgBuyPrice = newAvg
				position = &p
			}

		case domain.OrderSell:
			existing, err := s.positionRepo.GetTx(tx, userID, symbol)
			if err != nil {
				return err
			}
			if existing == nil || existing.Quantity < quantity {
				return domain.Ef(domain.KindInsufficientShares, "position holds fewer than %d shares", quantity)
			}

			if existing.Quantity == quantity {
				if err := s.positionRepo.DeleteTx(tx, userID, symbol); err != nil {
					return err
				}
				position = nil
			} else {
				ok, err := s.positionRepo.ReduceQuantityTx(tx, userID, symbol, quantity)
				if err != nil {
					return err
				}
				if !ok {
					return domain.Ef(domain.KindInsufficientShares, "position holds fewer than %d shares", quantity)
				}
				p := *existing
				p.Quantity -= quantity
				position = &p
			}

			if err := s.userRepo.CreditBalanceTx(tx, userID, totalUnits); err != nil {
				return err
			}
		}

		if err := s.orderRepo.InsertTx(tx, order); err != nil {
			return err
		}
		return s.txnRepo.InsertTx(tx, txn)
	})
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	balance := decimal.Zero
	if user != nil {
		balance = user.Balance
	}

	return &PlaceOrderResult{
		Order:       order,
		Transaction: txn,
		Balance:     balance,
		Position:    position,
	}, nil
}

// CancelOrder transitions a PENDING order to CANCELLED. Cancelling a FILLED
// or already-CANCELLED order fails ILLEGAL_STATE.
func (s *Service) CancelOrder(orderID, userID string) (*domain.Order, error) {
	ok, err := s.orderRepo.CancelPending(orderID, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.orderRepo.GetByID(orderID, userID)
	}

	existing, err := s.orderRepo.GetByID(orderID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.Ef(domain.KindNotFound, "unknown order %s", orderID)
	}
	return nil, domain.Ef(domain.KindIllegalState, "order is %s, only PENDING orders can be cancelled", existing.Status)
}

// ListOrders returns the user's orders, newest first, with optional status
// and type filters.
func (s *Service) ListOrders(userID, status, orderType string, limit int) ([]domain.Order, error) {
	if status != "" {
		switch domain.OrderStatus(status) {
		case domain.OrderPending, domain.OrderFilled, domain.OrderCancelled:
		default:
			return nil, domain.Ef(domain.KindInvalidInput, "invalid status filter %q", status)
		}
	}
	if orderType != "" {
		switch domain.OrderType(orderType) {
		case domain.OrderBuy, domain.OrderSell:
		default:
			return nil, domain.Ef(domain.KindInvalidInput, "invalid type filter %q", orderType)
		}
	}
	return s.orderRepo.ListByUser(userID, status, orderType, limit)
}

// ListTransactions returns the user's transaction history, newest first.
func (s *Service) ListTransactions(userID string, limit int) ([]domain.Transaction, error) {
	return s.txnRepo.ListByUser(userID, limit)
}

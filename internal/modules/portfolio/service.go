package portfolio

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/stocks"
)

// PositionView is a position joined with its stock's cached quote.
type PositionView struct {
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Quantity          int64           `json:"quantity"`
	AvgBuyPrice       decimal.Decimal `json:"avgBuyPrice"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	Value             decimal.Decimal `json:"value"`
	ProfitLoss        decimal.Decimal `json:"profitLoss"`
	ProfitLossPercent decimal.Decimal `json:"profitLossPercent"`
}

// Summary is the aggregate view of a user's portfolio.
type Summary struct {
	TotalPortfolioValue  decimal.Decimal `json:"totalPortfolioValue"`
	TotalInvested        decimal.Decimal `json:"totalInvested"`
	TotalProfitLoss      decimal.Decimal `json:"totalProfitLoss"`
	TotalProfitLossPct   decimal.Decimal `json:"totalProfitLossPercent"`
	DailyProfitLoss      decimal.Decimal `json:"dailyProfitLoss"`
	BestPerformingStock  *PositionView   `json:"bestPerformingStock"`
	WorstPerformingStock *PositionView   `json:"worstPerformingStock"`
}

// DistributionEntry is one slice of the per-stock value distribution.
type DistributionEntry struct {
	Symbol     string          `json:"symbol"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// GrowthPoint is one point of the portfolio growth series.
type GrowthPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// Service is the read-side analytics: it joins positions with current
// prices and snapshots, and never writes trading state.
type Service struct {
	positionRepo *PositionRepository
	snapshotRepo *SnapshotRepository
	stockRepo    *stocks.StockRepository
	historyRepo  *stocks.HistoryRepository
	log          zerolog.Logger
}

// NewService creates a new portfolio analytics service.
func NewService(
	positionRepo *PositionRepository,
	snapshotRepo *SnapshotRepository,
	stockRepo *stocks.StockRepository,
	historyRepo *stocks.HistoryRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		positionRepo: positionRepo,
		snapshotRepo: snapshotRepo,
		stockRepo:    stockRepo,
		historyRepo:  historyRepo,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// Positions returns the user's holdings joined with stock info.
func (s *Service) Positions(userID string) ([]PositionView, error) {
	positions, err := s.positionRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}

	stockIndex, err := s.stockIndex()
	if err != nil {
		return nil, err
	}

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, buildView(p, stockIndex[p.Symbol]))
	}
	return views, nil
}

// GetSummary computes the aggregate portfolio view. Total value is
// market-value-only; cash balance is reported separately by the account
// endpoints.
func (s *Service) GetSummary(userID string) (Summary, error) {
	positions, err := s.positionRepo.GetByUser(userID)
	if err != nil {
		return Summary{}, err
	}

	stockIndex, err := s.stockIndex()
	if err != nil {
		return Summary{}, err
	}

	totalValue := decimal.Zero
	totalInvested := decimal.Zero
	dailyPL := decimal.Zero
	dayStart := startOfDayUTC(time.Now().UTC())

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		stock := stockIndex[p.Symbol]
		view := buildView(p, stock)
		views = append(views, view)

		totalValue = totalValue.Add(view.Value)
		totalInvested = totalInvested.Add(p.AvgBuyPrice.Mul(decimal.NewFromInt(p.Quantity)))

		// Daily P/L against the latest close strictly before today's
		// boundary; a symbol with no prior point contributes zero.
		prevClose, err := s.historyRepo.LatestCloseBefore(p.Symbol, dayStart)
		if err != nil {
			return Summary{}, err
		}
		if prevClose != nil {
			move := view.CurrentPrice.Sub(*prevClose).Mul(decimal.NewFromInt(p.Quantity))
			dailyPL = dailyPL.Add(move)
		}
	}

	totalPL := totalValue.Sub(totalInvested)
	plPct := decimal.Zero
	if !domain.IsZeroAmount(totalInvested) {
		plPct = totalPL.Div(totalInvested).Mul(decimal.NewFromInt(100)).RoundBank(domain.MoneyScale)
	}

	summary := Summary{
		TotalPortfolioValue: domain.RoundMoney(totalValue),
		TotalInvested:       domain.RoundMoney(totalInvested),
		TotalProfitLoss:     domain.RoundMoney(totalPL),
		TotalProfitLossPct:  plPct.RoundBank(domain.DisplayScale),
		DailyProfitLoss:     domain.RoundMoney(dailyPL),
	}

	if len(views) > 0 {
		best := views[0]
		worst := views[0]
		for _, v := range views[1:] {
			if outperforms(v, best) {
				best = v
			}
			if underperforms(v, worst) {
				worst = v
			}
		}
		summary.BestPerformingStock = &best
		summary.WorstPerformingStock = &worst
	}

	return summary, nil
}

// Distribution computes the per-stock value split. Zero-priced positions
// are still listed with zero value; when the whole portfolio is worth zero
// every percentage is zero.
func (s *Service) Distribution(userID string) ([]DistributionEntry, error) {
	positions, err := s.positionRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}

	stockIndex, err := s.stockIndex()
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	values := make([]decimal.Decimal, len(positions))
	for i, p := range positions {
		price := decimal.Zero
		if stock, ok := stockIndex[p.Symbol]; ok {
			price = stock.CurrentPrice
		}
		values[i] = price.Mul(decimal.NewFromInt(p.Quantity))
		total = total.Add(values[i])
	}

	entries := make([]DistributionEntry, 0, len(positions))
	for i, p := range positions {
		pct := decimal.Zero
		if !domain.IsZeroAmount(total) {
			pct = values[i].Div(total).Mul(decimal.NewFromInt(100)).RoundBank(domain.DisplayScale)
		}
		entries = append(entries, DistributionEntry{
			Symbol:     p.Symbol,
			Value:      domain.RoundMoney(values[i]),
			Percentage: pct,
		})
	}

	return entries, nil
}

// Growth returns the portfolio value series for a period selector. Days
// without a snapshot are omitted; 1D drops to intraday points derived from
// today's price history.
func (s *Service) Growth(userID, period string) ([]GrowthPoint, error) {
	if period == "1D" {
		return s.intradayGrowth(userID)
	}

	now := time.Now().UTC()
	start, err := stocks.RangeStart(period, now)
	if err != nil {
		return nil, err
	}

	fromDate := ""
	if !start.IsZero() {
		fromDate = start.Format("2006-01-02")
	}

	snaps, err := s.snapshotRepo.GetSince(userID, fromDate)
	if err != nil {
		return nil, err
	}

	points := make([]GrowthPoint, 0, len(snaps))
	for _, snap := range snaps {
		points = append(points, GrowthPoint{
			Date:  snap.Date,
			Value: domain.RoundMoney(snap.Value),
		})
	}
	return points, nil
}

// MarketValue computes the user's current market value (positions only,
// cash excluded). The refresh pipeline snapshots exactly this quantity.
func (s *Service) MarketValue(userID string) (decimal.Decimal, error) {
	positions, err := s.positionRepo.GetByUser(userID)
	if err != nil {
		return decimal.Zero, err
	}

	stockIndex, err := s.stockIndex()
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, p := range positions {
		if stock, ok := stockIndex[p.Symbol]; ok {
			total = total.Add(stock.CurrentPrice.Mul(decimal.NewFromInt(p.Quantity)))
		}
	}
	return total, nil
}

// intradayGrowth walks today's history points across the user's symbols and
// values the portfolio at each distinct timestamp, carrying each symbol's
// last known close between points.
func (s *Service) intradayGrowth(userID string) ([]GrowthPoint, error) {
	positions, err := s.positionRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return []GrowthPoint{}, nil
	}

	stockIndex, err := s.stockIndex()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dayStart := startOfDayUTC(now)

	type series struct {
		quantity int64
		points   []domain.PricePoint
		carry    decimal.Decimal
		idx      int
	}

	bySymbol := make(map[string]*series, len(positions))
	timestamps := map[int64]struct{}{}
	for _, p := range positions {
		pts, err := s.historyRepo.GetBetween(p.Symbol, dayStart, now.Add(time.Second))
		if err != nil {
			return nil, err
		}

		carry := decimal.Zero
		if prev, err := s.historyRepo.LatestCloseBefore(p.Symbol, dayStart); err != nil {
			return nil, err
		} else if prev != nil {
			carry = *prev
		} else if stock, ok := stockIndex[p.Symbol]; ok {
			carry = stock.CurrentPrice
		}

		bySymbol[p.Symbol] = &series{quantity: p.Quantity, points: pts, carry: carry}
		for _, pt := range pts {
			timestamps[pt.Timestamp.Unix()] = struct{}{}
		}
	}

	ordered := make([]int64, 0, len(timestamps))
	for ts := range timestamps {
		ordered = append(ordered, ts)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	points := make([]GrowthPoint, 0, len(ordered))
	for _, ts := range ordered {
		value := decimal.Zero
		for _, sr := range bySymbol {
			for sr.idx < len(sr.points) && sr.points[sr.idx].Timestamp.Unix() <= ts {
				sr.carry = sr.points[sr.idx].Close
				sr.idx++
			}
			value = value.Add(sr.carry.Mul(decimal.NewFromInt(sr.quantity)))
		}
		points = append(points, GrowthPoint{
			Date:  time.Unix(ts, 0).UTC().Format(time.RFC3339),
			Value: domain.RoundMoney(value),
		})
	}

	return points, nil
}

func (s *Service) stockIndex() (map[string]domain.Stock, error) {
	all, err := s.stockRepo.GetAll()
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.Stock, len(all))
	for _, stock := range all {
		index[stock.Symbol] = stock
	}
	return index, nil
}

func buildView(p domain.Position, stock domain.Stock) PositionView {
	qty := decimal.NewFromInt(p.Quantity)
	value := stock.CurrentPrice.Mul(qty)
	pl := stock.CurrentPrice.Sub(p.AvgBuyPrice).Mul(qty)

	plPct := decimal.Zero
	invested := p.AvgBuyPrice.Mul(qty)
	if !domain.IsZeroAmount(invested) {
		plPct = pl.Div(invested).Mul(decimal.NewFromInt(100)).RoundBank(domain.DisplayScale)
	}

	return PositionView{
		Symbol:            p.Symbol,
		Name:              stock.Name,
		Quantity:          p.Quantity,
		AvgBuyPrice:       p.AvgBuyPrice,
		CurrentPrice:      stock.CurrentPrice,
		Value:             domain.RoundMoney(value),
		ProfitLoss:        domain.RoundMoney(pl),
		ProfitLossPercent: plPct,
	}
}

// outperforms reports whether a beats b: higher absolute profit first, then
// larger position value, then lexicographically smaller symbol.
func outperforms(a, b PositionView) bool {
	if !a.ProfitLoss.Equal(b.ProfitLoss) {
		return a.ProfitLoss.GreaterThan(b.ProfitLoss)
	}
	return breaksTie(a, b)
}

// underperforms reports whether a is a worse performer than b. Ties on
// profit break the same way as for the best pick.
func underperforms(a, b PositionView) bool {
	if !a.ProfitLoss.Equal(b.ProfitLoss) {
		return a.ProfitLoss.LessThan(b.ProfitLoss)
	}
	return breaksTie(a, b)
}

func breaksTie(a, b PositionView) bool {
	if !a.Value.Abs().Equal(b.Value.Abs()) {
		return a.Value.Abs().GreaterThan(b.Value.Abs())
	}
	return a.Symbol < b.Symbol
}

func startOfDayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

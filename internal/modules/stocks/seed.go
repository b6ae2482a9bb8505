package stocks

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

// defaultCatalog is the tradeable universe installed on first start. Prices
// start at zero and stay untradeable until the refresh pipeline fills them.
var defaultCatalog = []domain.Stock{
	{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Sector: "Technology"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Sector: "Technology"},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Sector: "Consumer Cyclical"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Sector: "Technology"},
	{Symbol: "TSLA", Name: "Tesla Inc.", Sector: "Consumer Cyclical"},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Sector: "Financial Services"},
	{Symbol: "V", Name: "Visa Inc.", Sector: "Financial Services"},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Sector: "Healthcare"},
	{Symbol: "XOM", Name: "Exxon Mobil Corporation", Sector: "Energy"},
}

// SeedCatalog populates an empty stock table with the default universe.
// A non-empty table is left alone.
func SeedCatalog(repo *StockRepository, log zerolog.Logger) error {
	existing, err := repo.GetAll()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, stock := range defaultCatalog {
		stock.LastUpdatedAt = time.Unix(0, 0)
		if err := repo.Create(stock); err != nil {
			return err
		}
	}

	log.Info().Int("count", len(defaultCatalog)).Msg("Seeded stock catalog")
	return nil
}

// Package main is the entry point for the StockPilot paper-trading server.
// It wires configuration, the SQLite ledger, the market data client, module
// services and the HTTP API, then runs until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arlen/stockpilot/internal/clients/marketdata"
	"github.com/arlen/stockpilot/internal/config"
	"github.com/arlen/stockpilot/internal/database"
	"github.com/arlen/stockpilot/internal/modules/orders"
	ordershandlers "github.com/arlen/stockpilot/internal/modules/orders/handlers"
	"github.com/arlen/stockpilot/internal/modules/portfolio"
	portfoliohandlers "github.com/arlen/stockpilot/internal/modules/portfolio/handlers"
	"github.com/arlen/stockpilot/internal/modules/stocks"
	stockshandlers "github.com/arlen/stockpilot/internal/modules/stocks/handlers"
	"github.com/arlen/stockpilot/internal/modules/users"
	usershandlers "github.com/arlen/stockpilot/internal/modules/users/handlers"
	"github.com/arlen/stockpilot/internal/modules/watchlist"
	watchlisthandlers "github.com/arlen/stockpilot/internal/modules/watchlist/handlers"
	"github.com/arlen/stockpilot/internal/scheduler"
	"github.com/arlen/stockpilot/internal/server"
	"github.com/arlen/stockpilot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.DevMode)

	log.Info().
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Str("data_dir", cfg.DataDir).
		Msg("Starting StockPilot")

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "stockpilot",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	conn := db.Conn()

	// Clients
	quoteClient := marketdata.NewClient(marketdata.Config{
		BaseURL:     cfg.ProviderBaseURL,
		APIKey:      cfg.ProviderAPIKey,
		DailyBudget: cfg.ProviderDailyBudget,
		Timeout:     cfg.ProviderTimeout,
	}, log)

	// Repositories
	stockRepo := stocks.NewStockRepository(conn, log)
	historyRepo := stocks.NewHistoryRepository(conn, log)
	userRepo := users.NewUserRepository(conn, log)
	sessionRepo := users.NewSessionRepository(conn, log)
	positionRepo := portfolio.NewPositionRepository(conn, log)
	snapshotRepo := portfolio.NewSnapshotRepository(conn, log)
	orderRepo := orders.NewOrderRepository(conn, log)
	txnRepo := orders.NewTransactionRepository(conn, log)
	watchlistRepo := watchlist.NewWatchlistRepository(conn, log)

	if err := stocks.SeedCatalog(stockRepo, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed stock catalog")
	}
	if cfg.DevMode {
		if err := users.BootstrapDev(userRepo, sessionRepo, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap dev user")
		}
	}

	// Services
	stocksService := stocks.NewService(conn, stockRepo, historyRepo, quoteClient, log)
	usersService := users.NewService(conn, userRepo, log)
	portfolioService := portfolio.NewService(positionRepo, snapshotRepo, stockRepo, historyRepo, log)
	ordersService := orders.NewService(conn, orderRepo, txnRepo, positionRepo, stockRepo, userRepo, cfg.OrderRetryBudget, log)
	watchlistService := watchlist.NewService(watchlistRepo, stockRepo, cfg.WatchlistCap, log)

	authenticator := users.NewSessionAuthenticator(sessionRepo, log)

	srv := server.New(server.Config{
		Log:           log,
		DB:            db,
		Port:          cfg.Port,
		DevMode:       cfg.DevMode,
		Authenticator: authenticator,

		StocksHandler:    stockshandlers.NewHandler(stocksService, log),
		OrdersHandler:    ordershandlers.NewHandler(ordersService, log),
		PortfolioHandler: portfoliohandlers.NewHandler(portfolioService, log),
		WatchlistHandler: watchlisthandlers.NewHandler(watchlistService, log),
		UsersHandler:     usershandlers.NewHandler(usersService, log),
		SystemHandlers:   server.NewSystemHandlers(db, stocksService, log),
	})

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob("30 3 * * *", users.NewSessionSweepJob(sessionRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register session sweep job")
	}
	if cfg.RefreshCronEnabled {
		refreshJob := scheduler.NewRefreshJob(
			stocksService,
			portfolioService,
			snapshotRepo,
			positionRepo,
			cfg.PriceStaleAfter,
			cfg.SnapshotHourUTC,
			log,
		)
		if err := sched.AddJob(cfg.RefreshCronSchedule, refreshJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register refresh job")
		}
		// Prime the price cache instead of waiting for the first tick.
		go func() {
			if err := sched.RunNow(refreshJob); err != nil {
				log.Error().Err(err).Msg("Initial refresh failed")
			}
		}()
	}
	sched.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

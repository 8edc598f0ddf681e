package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"artmarket-auction-service/internal/adapters/broadcaster"
	"artmarket-auction-service/internal/adapters/db"
	"artmarket-auction-service/internal/adapters/redis"
	"artmarket-auction-service/internal/adapters/scheduler"
	"artmarket-auction-service/internal/adapters/ws"
	"artmarket-auction-service/internal/app"
	"artmarket-auction-service/internal/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Art Market Auction Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	// Create repositories
	repoFactory := db.NewRepositoryFactory(dbConn)
	auctionRepo := repoFactory.GetAuctionRepository()
	bidRepo := repoFactory.GetBidRepository()
	paintingRepo := repoFactory.GetPaintingRepository()
	walletRepo := repoFactory.GetWalletRepository()
	settlementStore := repoFactory.GetSettlementStore()

	log.Info().Msg("Database repositories initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis broadcaster
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis broadcaster initialized")

	// Create business services
	settlement := app.NewSettlementProcessor(app.SettlementProcessorParams{
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		Store:       settlementStore,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})
	biddingEngine := app.NewBiddingEngine(app.BiddingEngineParams{
		BidRepo:     bidRepo,
		AuctionRepo: auctionRepo,
		WalletRepo:  walletRepo,
		Settlement:  settlement,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo:  auctionRepo,
		PaintingRepo: paintingRepo,
		WalletRepo:   walletRepo,
		Settlement:   settlement,
		Broadcaster:  redisBroadcaster,
		Logger:       log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create expiry scanner
	expiryScanner := scheduler.NewExpiryScanner(scheduler.ExpiryScannerParams{
		RedisClient: redisClient,
		AuctionRepo: auctionRepo,
		Settlement:  settlement,
		Interval:    cfg.Scanner.Interval,
		BatchSize:   cfg.Scanner.BatchSize,
		Workers:     cfg.Scanner.Workers,
		Logger:      log.Logger,
	})

	// Start expiry scanner
	expiryScanner.Start()
	log.Info().Msg("Expiry scanner started")

	// Update auction service with scheduler
	auctionService.SetScheduler(expiryScanner)

	wsServer := ws.NewServer(ws.ServerParams{
		Config:         cfg,
		AuctionService: auctionService,
		BiddingService: biddingEngine,
		Broadcaster:    redisBroadcaster,
		Logger:         log.Logger,
	})

	log.Info().Msg("WebSocket server initialized")

	// Start WebSocket server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting WebSocket server")
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop expiry scanner
	expiryScanner.Stop()
	log.Info().Msg("Expiry scanner stopped")

	// Stop WebSocket server
	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}

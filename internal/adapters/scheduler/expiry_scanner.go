package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const expirationKey = "auction:expirations"

// SettlementService is the settlement entry point the scanner funnels expired
// auctions into.
type SettlementService interface {
	SettleExpired(ctx context.Context, auctionID uuid.UUID) (*shared.SettlementResult, error)
}

// ExpiryScanner closes auctions whose end time has passed. Two triggers feed
// the same settlement path: a Redis sorted set holding precise end times for
// auctions scheduled at creation, and a periodic sweep of the auction store
// that catches anything the schedule missed (auctions created before a
// restart, Redis unavailability at creation time).
type ExpiryScanner struct {
	redis       *redis.Client
	auctionRepo outbound.AuctionRepository
	settlement  SettlementService
	interval    time.Duration
	batchSize   int
	pool        *pond.WorkerPool
	logger      zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

type ExpiryScannerParams struct {
	RedisClient *redis.Client
	AuctionRepo outbound.AuctionRepository
	Settlement  SettlementService
	Interval    time.Duration
	BatchSize   int
	Workers     int
	Logger      zerolog.Logger
}

func NewExpiryScanner(params ExpiryScannerParams) *ExpiryScanner {
	ctx, cancel := context.WithCancel(context.Background())

	interval := params.Interval
	if interval <= 0 {
		interval = time.Second
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	workers := params.Workers
	if workers <= 0 {
		workers = 4
	}

	return &ExpiryScanner{
		redis:       params.RedisClient,
		auctionRepo: params.AuctionRepo,
		settlement:  params.Settlement,
		interval:    interval,
		batchSize:   batchSize,
		pool:        pond.New(workers, batchSize*2, pond.Context(ctx)),
		logger:      params.Logger.With().Str("component", "expiry_scanner").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ScheduleAuction adds an auction to the precise expiration schedule
func (s *ExpiryScanner) ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error {
	err := s.redis.ZAdd(s.ctx, expirationKey, redis.Z{
		Score:  float64(endTime.Unix()),
		Member: auctionID.String(),
	}).Err()

	if err != nil {
		return fmt.Errorf("failed to schedule auction: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("end_time", endTime).
		Msg("Auction scheduled for expiration")

	return nil
}

// Start begins the scanner loop
func (s *ExpiryScanner) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting expiry scanner")

	s.wg.Add(1)
	go s.scanLoop()
}

// Stop gracefully stops the scanner
func (s *ExpiryScanner) Stop() {
	s.logger.Info().Msg("Stopping expiry scanner")
	s.cancel()
	s.wg.Wait()
	s.pool.Stop()
}

func (s *ExpiryScanner) scanLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.drainSchedule()
			if report, err := s.ScanAndClose(s.ctx); err != nil {
				s.logger.Error().Err(err).Msg("Expiry sweep failed")
			} else if report.Processed > 0 {
				s.logger.Info().
					Int("processed", report.Processed).
					Int("settled", report.Settled).
					Int("failed", report.Failed).
					Msg("Expiry sweep completed")
			}
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scanner loop stopped")
			return
		}
	}
}

// drainSchedule settles auctions whose scheduled end time is due
func (s *ExpiryScanner) drainSchedule() {
	if s.redis == nil {
		return
	}

	now := time.Now().Unix()

	due, err := s.redis.ZRangeByScore(s.ctx, expirationKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: int64(s.batchSize),
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read expiration schedule")
		return
	}

	for _, member := range due {
		auctionID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Error().Err(err).Str("member", member).Msg("Invalid auction ID in schedule")
			s.redis.ZRem(s.ctx, expirationKey, member)
			continue
		}

		s.pool.Submit(func() {
			defer s.redis.ZRem(s.ctx, expirationKey, auctionID.String())
			s.settleOne(auctionID)
		})
	}
}

// ScanAndClose sweeps the store for expired-but-open auctions and funnels
// each into settlement. Auctions are processed independently: one failing
// settlement is counted and logged, never aborts the sweep.
func (s *ExpiryScanner) ScanAndClose(ctx context.Context) (*shared.ScanReport, error) {
	expired, err := s.auctionRepo.ListExpiredActive(ctx, time.Now(), s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}

	var settled, failed int32

	group := s.pool.Group()
	for _, auc := range expired {
		auctionID := auc.ID
		group.Submit(func() {
			if s.settleOne(auctionID) {
				atomic.AddInt32(&settled, 1)
			} else {
				atomic.AddInt32(&failed, 1)
			}
		})
	}
	group.Wait()

	return &shared.ScanReport{
		Processed: len(expired),
		Settled:   int(atomic.LoadInt32(&settled)),
		Failed:    int(atomic.LoadInt32(&failed)),
	}, nil
}

// settleOne settles a single expired auction. Losing the settlement race to
// a concurrent buyout or another scanner pass counts as success.
func (s *ExpiryScanner) settleOne(auctionID uuid.UUID) bool {
	result, err := s.settlement.SettleExpired(s.ctx, auctionID)
	if err != nil {
		if errors.Is(err, shared.ErrAuctionAlreadySettled) {
			s.logger.Debug().Str("auction_id", auctionID.String()).Msg("Auction settled elsewhere")
			return true
		}
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to settle expired auction")
		return false
	}

	logEvent := s.logger.Info().Str("auction_id", auctionID.String())
	if result.WinnerID != nil {
		logEvent = logEvent.Str("winner_id", result.WinnerID.String())
	}
	if result.FinalPrice != nil {
		logEvent = logEvent.Int64("final_price", *result.FinalPrice)
	}
	logEvent.Msg("Expired auction settled")

	return true
}

package app

import (
	"context"
	"time"

	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/inbound"
	"artmarket-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExpiryScheduler registers an auction for precise expiry processing. The
// DB sweep in the scanner covers auctions scheduled before a restart.
type ExpiryScheduler interface {
	ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error
}

// AuctionService implements the auction lifecycle use cases
type AuctionService struct {
	auctionRepo  outbound.AuctionRepository
	paintingRepo outbound.PaintingRepository
	walletRepo   outbound.WalletRepository
	settlement   *SettlementProcessor
	scheduler    ExpiryScheduler
	broadcaster  outbound.Broadcaster
	logger       zerolog.Logger
	now          func() time.Time
}

type AuctionServiceParams struct {
	AuctionRepo  outbound.AuctionRepository
	PaintingRepo outbound.PaintingRepository
	WalletRepo   outbound.WalletRepository
	Settlement   *SettlementProcessor
	Scheduler    ExpiryScheduler
	Broadcaster  outbound.Broadcaster
	Logger       zerolog.Logger
	Now          func() time.Time
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &AuctionService{
		auctionRepo:  params.AuctionRepo,
		paintingRepo: params.PaintingRepo,
		walletRepo:   params.WalletRepo,
		settlement:   params.Settlement,
		scheduler:    params.Scheduler,
		broadcaster:  params.Broadcaster,
		logger:       params.Logger.With().Str("component", "auction_service").Logger(),
		now:          now,
	}
}

// CreateAuction creates a new auction listing for a painting
func (service *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	service.logger.Info().
		Str("painting_id", req.PaintingID.String()).
		Str("owner_id", req.OwnerID.String()).
		Int64("starting_price", req.StartingPrice).
		Int64("buyout_price", req.BuyoutPrice).
		Str("end_time", req.EndTime).
		Msg("Attempting to create auction")

	painting, err := service.paintingRepo.GetByID(ctx, req.PaintingID)
	if err != nil {
		service.logger.Warn().Err(err).Str("painting_id", req.PaintingID.String()).Msg("Painting not found")
		return nil, shared.ErrPaintingNotFound
	}

	if painting.OwnerID != req.OwnerID {
		service.logger.Warn().
			Str("painting_id", painting.ID.String()).
			Str("painting_owner", painting.OwnerID.String()).
			Str("creator", req.OwnerID.String()).
			Msg("Auction creator does not own the painting")
		return nil, shared.ErrPaintingNotOwned
	}

	owner, err := service.walletRepo.GetByID(ctx, req.OwnerID)
	if err != nil {
		return nil, shared.ErrUserNotFound
	}

	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		service.logger.Warn().Err(err).Str("end_time", req.EndTime).Msg("Invalid end time format")
		return nil, shared.ErrInvalidTimeFormat
	}

	now := service.now()
	if !endTime.After(now) {
		return nil, shared.ErrInvalidEndTime
	}
	if req.StartingPrice <= 0 {
		return nil, shared.ErrInvalidStartingPrice
	}
	if req.BuyoutPrice <= req.StartingPrice {
		return nil, shared.ErrInvalidBuyoutPrice
	}

	activeAuctions, err := service.auctionRepo.GetActiveByPaintingID(ctx, req.PaintingID)
	if err != nil {
		service.logger.Error().Err(err).Str("painting_id", req.PaintingID.String()).Msg("Failed to check for active auctions")
		return nil, err
	}
	if len(activeAuctions) > 0 {
		return nil, shared.ErrPaintingAlreadyListed
	}

	auc := &auction.Auction{
		ID:            uuid.New(),
		PaintingID:    painting.ID,
		OwnerID:       owner.ID,
		StartingPrice: req.StartingPrice,
		BuyoutPrice:   req.BuyoutPrice,
		EndTime:       endTime,
		Status:        auction.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := service.auctionRepo.Create(ctx, auc); err != nil {
		service.logger.Error().Err(err).Str("auction_id", auc.ID.String()).Msg("Failed to save auction")
		return nil, err
	}

	if service.scheduler != nil {
		if err := service.scheduler.ScheduleAuction(auc.ID, auc.EndTime); err != nil {
			// The periodic DB sweep still closes this auction; scheduling is
			// only the precise trigger.
			service.logger.Error().Err(err).Str("auction_id", auc.ID.String()).Msg("Failed to schedule auction expiry")
		}
	}

	service.publishCreated(ctx, auc)

	service.logger.Info().
		Str("auction_id", auc.ID.String()).
		Time("end_time", auc.EndTime).
		Msg("Auction created")

	return auc, nil
}

// GetAuction retrieves an auction by ID
func (service *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	return service.auctionRepo.GetByID(ctx, auctionID)
}

// ListAuctions retrieves a list of auctions
func (service *AuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) ([]*auction.Auction, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	return service.auctionRepo.List(ctx, req.Status, req.Page, req.PageSize)
}

// EndAuction closes an auction manually, settling it with the current highest
// bidder as winner or fund-free when the ledger is empty. Racing against a
// buyout or the expiry scanner is safe: settlement happens at most once.
func (service *AuctionService) EndAuction(ctx context.Context, auctionID uuid.UUID) (*shared.SettlementResult, error) {
	service.logger.Info().Str("auction_id", auctionID.String()).Msg("Ending auction manually")
	return service.settlement.SettleExpired(ctx, auctionID)
}

// SetScheduler sets the expiry scheduler
func (service *AuctionService) SetScheduler(scheduler ExpiryScheduler) {
	service.scheduler = scheduler
}

func (service *AuctionService) publishCreated(ctx context.Context, auc *auction.Auction) {
	if service.broadcaster == nil {
		return
	}

	event := outbound.Event{
		Type:      outbound.EventTypeAuctionCreated,
		AuctionID: auc.ID,
		Data: map[string]interface{}{
			"painting_id":    auc.PaintingID,
			"owner_id":       auc.OwnerID,
			"starting_price": auc.StartingPrice,
			"buyout_price":   auc.BuyoutPrice,
			"end_time":       auc.EndTime,
		},
		Timestamp: auc.CreatedAt.Unix(),
	}

	if err := service.broadcaster.Publish(ctx, auc.ID, event); err != nil {
		service.logger.Error().Err(err).Str("auction_id", auc.ID.String()).Msg("Failed to broadcast auction created event")
	}
}

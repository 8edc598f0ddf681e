package app

import (
	"context"
	"time"

	"artmarket-auction-service/internal/domain/bid"
	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/inbound"
	"artmarket-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BiddingEngine implements inbound.BiddingService. It is the single entry
// point for bid admission: every transport funnels through PlaceBid / BuyOut /
// LeaveAuction, and all coordination between concurrent bidders happens
// through the store's conditional updates, never through in-process state.
type BiddingEngine struct {
	bidRepo     outbound.BidRepository
	auctionRepo outbound.AuctionRepository
	walletRepo  outbound.WalletRepository
	settlement  *SettlementProcessor
	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
	now         func() time.Time
}

type BiddingEngineParams struct {
	BidRepo     outbound.BidRepository
	AuctionRepo outbound.AuctionRepository
	WalletRepo  outbound.WalletRepository
	Settlement  *SettlementProcessor
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewBiddingEngine creates a new bidding engine
func NewBiddingEngine(params BiddingEngineParams) *BiddingEngine {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &BiddingEngine{
		bidRepo:     params.BidRepo,
		auctionRepo: params.AuctionRepo,
		walletRepo:  params.WalletRepo,
		settlement:  params.Settlement,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "bidding_engine").Logger(),
		now:         now,
	}
}

// PlaceBid validates and admits a bid against the auction's current state.
// An amount at or above the buyout price settles the auction immediately with
// this bidder as winner.
func (engine *BiddingEngine) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*inbound.PlaceBidResult, error) {
	engine.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("user_id", req.UserID.String()).
		Int64("amount", req.Amount).
		Msg("Attempting to place bid")

	if req.Amount <= 0 {
		return nil, shared.ErrBidAmountInvalid
	}

	auc, err := engine.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		engine.logger.Warn().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Auction lookup failed")
		return nil, err
	}

	if !auc.IsActive() {
		return nil, shared.ErrAuctionClosed
	}
	if auc.IsExpired(engine.now()) {
		return nil, shared.ErrAuctionExpired
	}

	if req.Amount < auc.MinimumAcceptableBid() {
		engine.logger.Warn().
			Str("auction_id", req.AuctionID.String()).
			Int64("amount", req.Amount).
			Int64("minimum", auc.MinimumAcceptableBid()).
			Msg("Bid amount too low")
		return nil, shared.ErrBidTooLow
	}

	user, err := engine.walletRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	// Affordability check at placement time. Nothing is reserved; settlement
	// re-checks the balance inside its own transaction.
	if !user.CanAfford(req.Amount) {
		engine.logger.Warn().
			Str("user_id", req.UserID.String()).
			Int64("amount", req.Amount).
			Int64("balance", user.Balance).
			Msg("Bidder cannot afford bid")
		return nil, shared.ErrInsufficientFunds
	}

	newBid := &bid.Bid{
		ID:        uuid.New(),
		AuctionID: req.AuctionID,
		UserID:    user.ID,
		Username:  user.Name,
		Amount:    req.Amount,
		IsBuyout:  auc.ReachesBuyout(req.Amount),
		CreatedAt: engine.now(),
	}

	if newBid.IsBuyout {
		result, err := engine.settlement.SettleBuyout(ctx, auc, newBid)
		if err != nil {
			return nil, err
		}
		return &inbound.PlaceBidResult{Bid: newBid, TookLead: true, Settlement: result}, nil
	}

	tookLead, err := engine.bidRepo.AdmitBid(ctx, newBid)
	if err != nil {
		engine.logger.Error().Err(err).Str("bid_id", newBid.ID.String()).Msg("Failed to admit bid")
		return nil, err
	}

	engine.publishBidAdmitted(ctx, newBid, tookLead)

	engine.logger.Info().
		Str("bid_id", newBid.ID.String()).
		Str("auction_id", newBid.AuctionID.String()).
		Int64("amount", newBid.Amount).
		Bool("took_lead", tookLead).
		Msg("Bid admitted")

	return &inbound.PlaceBidResult{Bid: newBid, TookLead: tookLead}, nil
}

// BuyOut closes the auction instantly at the buyout price. If the auction is
// already closed when the settlement transaction runs, the call reports
// shared.ErrAuctionAlreadySettled and performs no state change.
func (engine *BiddingEngine) BuyOut(ctx context.Context, req inbound.BuyOutRequest) (*shared.SettlementResult, error) {
	engine.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("user_id", req.UserID.String()).
		Msg("Attempting buyout")

	auc, err := engine.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	if !auc.IsActive() {
		return nil, shared.ErrAuctionAlreadySettled
	}
	if auc.IsExpired(engine.now()) {
		return nil, shared.ErrAuctionExpired
	}

	user, err := engine.walletRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanAfford(auc.BuyoutPrice) {
		return nil, shared.ErrInsufficientFunds
	}

	buyoutBid := &bid.Bid{
		ID:        uuid.New(),
		AuctionID: req.AuctionID,
		UserID:    user.ID,
		Username:  user.Name,
		Amount:    auc.BuyoutPrice,
		IsBuyout:  true,
		CreatedAt: engine.now(),
	}

	return engine.settlement.SettleBuyout(ctx, auc, buyoutBid)
}

// LeaveAuction withdraws all of the user's bids from an auction and recomputes
// the current highest bid from the remaining ledger. Withdrawing as a
// non-leader never changes the leader: the recompute re-selects the same
// maximum from a ledger that still contains it.
func (engine *BiddingEngine) LeaveAuction(ctx context.Context, auctionID, userID uuid.UUID) error {
	engine.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("user_id", userID.String()).
		Msg("User leaving auction")

	auc, err := engine.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if !auc.IsActive() {
		return shared.ErrAuctionClosed
	}

	if err := engine.bidRepo.WithdrawUserBids(ctx, auctionID, userID); err != nil {
		engine.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to withdraw user bids")
		return err
	}

	engine.publishAuctionUpdated(ctx, auctionID)
	return nil
}

// GetBids retrieves the bid ledger for an auction, highest first
func (engine *BiddingEngine) GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	return engine.bidRepo.GetByAuctionID(ctx, auctionID)
}

// GetHighestBid retrieves the current winning bid for an auction
func (engine *BiddingEngine) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	return engine.bidRepo.GetHighestBid(ctx, auctionID)
}

func (engine *BiddingEngine) publishBidAdmitted(ctx context.Context, newBid *bid.Bid, tookLead bool) {
	if engine.broadcaster == nil {
		return
	}

	event := outbound.Event{
		Type:      outbound.EventTypeBidAdmitted,
		AuctionID: newBid.AuctionID,
		Data: map[string]interface{}{
			"bid_id":    newBid.ID,
			"user_id":   newBid.UserID,
			"username":  newBid.Username,
			"amount":    newBid.Amount,
			"took_lead": tookLead,
		},
		Timestamp: newBid.CreatedAt.Unix(),
	}

	if err := engine.broadcaster.Publish(ctx, newBid.AuctionID, event); err != nil {
		// The bid is already committed; a failed notification never fails
		// the admission.
		engine.logger.Error().Err(err).Str("bid_id", newBid.ID.String()).Msg("Failed to broadcast bid event")
	}
}

func (engine *BiddingEngine) publishAuctionUpdated(ctx context.Context, auctionID uuid.UUID) {
	if engine.broadcaster == nil {
		return
	}

	data := map[string]interface{}{}
	if highest, err := engine.bidRepo.GetHighestBid(ctx, auctionID); err == nil {
		data["current_highest_bid"] = highest.Amount
		data["current_highest_bidder"] = highest.UserID
	}

	event := outbound.Event{
		Type:      outbound.EventTypeAuctionUpdated,
		AuctionID: auctionID,
		Data:      data,
		Timestamp: engine.now().Unix(),
	}

	if err := engine.broadcaster.Publish(ctx, auctionID, event); err != nil {
		engine.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to broadcast auction update")
	}
}

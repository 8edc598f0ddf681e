package app

import (
	"context"
	"errors"
	"time"

	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/bid"
	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementProcessor finalizes closed auctions: funds move from winner to
// owner, the painting moves into the winner's inventory, and the auction
// transitions to closed exactly once. All of it runs as one transaction in
// the settlement store; concurrent triggers (buyout, expiry scanner, manual
// end) race on the store's conditional status transition and at most one wins.
type SettlementProcessor struct {
	auctionRepo outbound.AuctionRepository
	bidRepo     outbound.BidRepository
	store       outbound.SettlementStore
	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
}

type SettlementProcessorParams struct {
	AuctionRepo outbound.AuctionRepository
	BidRepo     outbound.BidRepository
	Store       outbound.SettlementStore
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewSettlementProcessor creates a new settlement processor
func NewSettlementProcessor(params SettlementProcessorParams) *SettlementProcessor {
	return &SettlementProcessor{
		auctionRepo: params.AuctionRepo,
		bidRepo:     params.BidRepo,
		store:       params.Store,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "settlement_processor").Logger(),
	}
}

// Settle finalizes an auction with the given winner, or closes it fund-free
// when winnerID is nil. The winning amount is the winner's best admitted bid.
func (p *SettlementProcessor) Settle(ctx context.Context, auctionID uuid.UUID, winnerID *uuid.UUID) (*shared.SettlementResult, error) {
	auc, err := p.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auc.IsClosed() {
		return nil, shared.ErrAuctionAlreadySettled
	}

	var amount int64
	if winnerID != nil {
		winningBid, err := p.bestBidByUser(ctx, auctionID, *winnerID)
		if err != nil {
			return nil, err
		}
		amount = winningBid.Amount
	}

	params := outbound.SettlementParams{
		AuctionID:  auc.ID,
		OwnerID:    auc.OwnerID,
		PaintingID: auc.PaintingID,
		WinnerID:   winnerID,
		Amount:     amount,
	}

	return p.execute(ctx, params)
}

// SettleExpired resolves the winner for an expired auction from the bid
// ledger (max amount, earliest-timestamp tie-break) and settles it. Used by
// the expiry scanner and by manual auction end.
func (p *SettlementProcessor) SettleExpired(ctx context.Context, auctionID uuid.UUID) (*shared.SettlementResult, error) {
	highest, err := p.bidRepo.GetHighestBid(ctx, auctionID)
	if err != nil && !errors.Is(err, shared.ErrNoBidsFound) {
		return nil, err
	}

	if highest == nil {
		return p.Settle(ctx, auctionID, nil)
	}
	return p.Settle(ctx, auctionID, &highest.UserID)
}

// SettleBuyout finalizes an auction through the buyout override: the buyout
// bid is appended, unconditionally made the highest, and settled, all in the
// store's single transaction. Idempotent against an already-closed auction.
func (p *SettlementProcessor) SettleBuyout(ctx context.Context, auc *auction.Auction, buyoutBid *bid.Bid) (*shared.SettlementResult, error) {
	params := outbound.SettlementParams{
		AuctionID:  auc.ID,
		OwnerID:    auc.OwnerID,
		PaintingID: auc.PaintingID,
		WinnerID:   &buyoutBid.UserID,
		Amount:     buyoutBid.Amount,
		BuyoutBid:  buyoutBid,
	}

	return p.execute(ctx, params)
}

func (p *SettlementProcessor) execute(ctx context.Context, params outbound.SettlementParams) (*shared.SettlementResult, error) {
	if err := p.store.Settle(ctx, params); err != nil {
		if errors.Is(err, shared.ErrAuctionAlreadySettled) {
			p.logger.Info().
				Str("auction_id", params.AuctionID.String()).
				Msg("Auction already settled, no-op")
		} else {
			p.logger.Error().Err(err).
				Str("auction_id", params.AuctionID.String()).
				Msg("Settlement failed")
		}
		return nil, err
	}

	result := &shared.SettlementResult{
		AuctionID: params.AuctionID,
		WinnerID:  params.WinnerID,
		Status:    string(auction.StatusClosed),
	}
	if params.WinnerID != nil {
		amount := params.Amount
		result.FinalPrice = &amount
	}

	p.publishSettled(ctx, result)

	logEvent := p.logger.Info().Str("auction_id", params.AuctionID.String())
	if params.WinnerID != nil {
		logEvent = logEvent.Str("winner_id", params.WinnerID.String()).Int64("final_price", params.Amount)
	}
	logEvent.Msg("Auction settled")

	return result, nil
}

// bestBidByUser returns the given user's highest admitted bid for an auction
func (p *SettlementProcessor) bestBidByUser(ctx context.Context, auctionID, userID uuid.UUID) (*bid.Bid, error) {
	bids, err := p.bidRepo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	// Ledger comes back highest first
	for _, b := range bids {
		if b.UserID == userID {
			return b, nil
		}
	}
	return nil, shared.ErrNoBidsFound
}

func (p *SettlementProcessor) publishSettled(ctx context.Context, result *shared.SettlementResult) {
	if p.broadcaster == nil {
		return
	}

	data := map[string]interface{}{
		"auction_id": result.AuctionID.String(),
		"status":     result.Status,
	}
	if result.WinnerID != nil {
		data["winner_id"] = result.WinnerID.String()
	}
	if result.FinalPrice != nil {
		data["final_price"] = *result.FinalPrice
	}

	event := outbound.Event{
		Type:      outbound.EventTypeAuctionSettled,
		AuctionID: result.AuctionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	if err := p.broadcaster.Publish(ctx, result.AuctionID, event); err != nil {
		p.logger.Error().Err(err).Str("auction_id", result.AuctionID.String()).Msg("Failed to broadcast settlement event")
	}
}

package app

import (
	"context"
	"testing"
	"time"

	"artmarket-auction-service/internal/adapters/memory"
	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingScheduler struct {
	scheduled []uuid.UUID
}

func (r *recordingScheduler) ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error {
	r.scheduled = append(r.scheduled, auctionID)
	return nil
}

func newAuctionService(env *testEnv, scheduler ExpiryScheduler) *AuctionService {
	return NewAuctionService(AuctionServiceParams{
		AuctionRepo:  env.store.Auctions(),
		PaintingRepo: env.store.Paintings(),
		WalletRepo:   env.store.Wallets(),
		Settlement:   env.settlement,
		Scheduler:    scheduler,
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return env.now },
	})
}

func TestAuctionService_CreateAuction(t *testing.T) {
	ctx := context.Background()

	validEndTime := func(env *testEnv) string {
		return env.now.Add(time.Hour).Format(time.RFC3339)
	}

	tests := []struct {
		name        string
		mutate      func(env *testEnv, req *inbound.CreateAuctionRequest)
		expectedErr error
	}{
		{
			name: "valid_auction",
		},
		{
			name: "painting_not_found",
			mutate: func(env *testEnv, req *inbound.CreateAuctionRequest) {
				req.PaintingID = uuid.New()
			},
			expectedErr: shared.ErrPaintingNotFound,
		},
		{
			name: "creator_does_not_own_painting",
			mutate: func(env *testEnv, req *inbound.CreateAuctionRequest) {
				req.OwnerID = env.seedUser(t, "intruder", 100)
			},
			expectedErr: shared.ErrPaintingNotOwned,
		},
		{
			name: "invalid_end_time_format",
			mutate: func(env *testEnv, req *inbound.CreateAuctionRequest) {
				req.EndTime = "tomorrow"
			},
			expectedErr: shared.ErrInvalidTimeFormat,
		},
		{
			name: "end_time_in_the_past",
			mutate: func(env *testEnv, req *inbound.CreateAuctionRequest) {
				req.EndTime = env.now.Add(-time.Hour).Format(time.RFC3339)
			},
			expectedErr: shared.ErrInvalidEndTime,
		},
		{
			name: "zero_starting_price",
			mutate: func(env *testEnv, req *inbound.CreateAuctionRequest) {
				req.StartingPrice = 0
			},
			expectedErr: shared.ErrInvalidStartingPrice,
		},
		{
			name: "buyout_not_above_starting_price",
			mutate: func(env *testEnv, req *inbound.CreateAuctionRequest) {
				req.BuyoutPrice = req.StartingPrice
			},
			expectedErr: shared.ErrInvalidBuyoutPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			scheduler := &recordingScheduler{}
			service := newAuctionService(env, scheduler)

			ownerID := env.seedUser(t, "owner", 0)
			paintingID := uuid.New()
			require.NoError(t, env.store.Paintings().Create(ctx, &shared.Painting{
				ID:      paintingID,
				OwnerID: ownerID,
				Title:   "Still Life with Apples",
			}))

			req := inbound.CreateAuctionRequest{
				PaintingID:    paintingID,
				OwnerID:       ownerID,
				StartingPrice: 100,
				BuyoutPrice:   500,
				EndTime:       validEndTime(env),
			}
			if tt.mutate != nil {
				tt.mutate(env, &req)
			}

			auc, err := service.CreateAuction(ctx, req)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				require.Empty(t, scheduler.scheduled)
				return
			}

			require.NoError(t, err)
			require.Equal(t, auction.StatusActive, auc.Status)
			require.Equal(t, paintingID, auc.PaintingID)
			require.Equal(t, []uuid.UUID{auc.ID}, scheduler.scheduled)
		})
	}
}

func TestAuctionService_CreateAuction_PaintingAlreadyListed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	service := newAuctionService(env, &recordingScheduler{})

	ownerID := env.seedUser(t, "owner", 0)
	paintingID := uuid.New()
	require.NoError(t, env.store.Paintings().Create(ctx, &shared.Painting{
		ID:      paintingID,
		OwnerID: ownerID,
	}))

	req := inbound.CreateAuctionRequest{
		PaintingID:    paintingID,
		OwnerID:       ownerID,
		StartingPrice: 100,
		BuyoutPrice:   500,
		EndTime:       env.now.Add(time.Hour).Format(time.RFC3339),
	}

	_, err := service.CreateAuction(ctx, req)
	require.NoError(t, err)

	_, err = service.CreateAuction(ctx, req)
	require.ErrorIs(t, err, shared.ErrPaintingAlreadyListed)
}

func TestAuctionService_ListAuctions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	service := newAuctionService(env, nil)

	ownerID := env.seedUser(t, "owner", 0)
	for i := 0; i < 3; i++ {
		env.seedAuction(t, ownerID, 100, 500)
	}

	// Zero paging falls back to the first page of ten.
	auctions, err := service.ListAuctions(ctx, inbound.ListAuctionsRequest{})
	require.NoError(t, err)
	require.Len(t, auctions, 3)

	active := auction.StatusActive
	auctions, err = service.ListAuctions(ctx, inbound.ListAuctionsRequest{Status: &active, Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, auctions, 2)

	closed := auction.StatusClosed
	auctions, err = service.ListAuctions(ctx, inbound.ListAuctionsRequest{Status: &closed})
	require.NoError(t, err)
	require.Empty(t, auctions)
}

func TestAuctionService_EndAuction(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	service := newAuctionService(env, nil)

	ownerID := env.seedUser(t, "owner", 0)
	alice := env.seedUser(t, "alice", 1000)
	auc := env.seedAuction(t, ownerID, 100, 500)

	_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
	require.NoError(t, err)

	result, err := service.EndAuction(ctx, auc.ID)
	require.NoError(t, err)
	require.Equal(t, alice, *result.WinnerID)
	require.Equal(t, int64(150), *result.FinalPrice)

	_, err = service.EndAuction(ctx, auc.ID)
	require.ErrorIs(t, err, shared.ErrAuctionAlreadySettled)
}

func TestAuctionService_GetAuction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := NewAuctionService(AuctionServiceParams{
		AuctionRepo: store.Auctions(),
		Logger:      zerolog.Nop(),
	})

	_, err := service.GetAuction(ctx, uuid.New())
	require.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

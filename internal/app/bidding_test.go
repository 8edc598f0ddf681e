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

// testEnv wires the engine and processor against the in-memory store with a
// fixed clock.
type testEnv struct {
	store      *memory.Store
	engine     *BiddingEngine
	settlement *SettlementProcessor
	now        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	settlement := NewSettlementProcessor(SettlementProcessorParams{
		AuctionRepo: store.Auctions(),
		BidRepo:     store.Bids(),
		Store:       store.Settlements(),
		Logger:      zerolog.Nop(),
	})

	engine := NewBiddingEngine(BiddingEngineParams{
		BidRepo:     store.Bids(),
		AuctionRepo: store.Auctions(),
		WalletRepo:  store.Wallets(),
		Settlement:  settlement,
		Logger:      zerolog.Nop(),
		Now:         func() time.Time { return now },
	})

	return &testEnv{
		store:      store,
		engine:     engine,
		settlement: settlement,
		now:        now,
	}
}

func (env *testEnv) seedUser(t *testing.T, name string, balance int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := env.store.Wallets().Create(context.Background(), &shared.User{
		ID:      id,
		Name:    name,
		Balance: balance,
	})
	require.NoError(t, err)
	return id
}

func (env *testEnv) seedAuction(t *testing.T, ownerID uuid.UUID, startingPrice, buyoutPrice int64) *auction.Auction {
	t.Helper()

	ctx := context.Background()
	paintingID := uuid.New()
	err := env.store.Paintings().Create(ctx, &shared.Painting{
		ID:      paintingID,
		OwnerID: ownerID,
		Title:   "Composition in Red",
	})
	require.NoError(t, err)

	auc := &auction.Auction{
		ID:            uuid.New(),
		PaintingID:    paintingID,
		OwnerID:       ownerID,
		StartingPrice: startingPrice,
		BuyoutPrice:   buyoutPrice,
		EndTime:       env.now.Add(time.Hour),
		Status:        auction.StatusActive,
		CreatedAt:     env.now,
		UpdatedAt:     env.now,
	}
	require.NoError(t, env.store.Auctions().Create(ctx, auc))
	return auc
}

func TestBiddingEngine_PlaceBid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		amount      int64
		balance     int64
		setup       func(t *testing.T, env *testEnv, auc *auction.Auction)
		expectedErr error
	}{
		{
			name:    "valid_first_bid",
			amount:  150,
			balance: 1000,
		},
		{
			name:        "zero_amount",
			amount:      0,
			balance:     1000,
			expectedErr: shared.ErrBidAmountInvalid,
		},
		{
			name:        "negative_amount",
			amount:      -50,
			balance:     1000,
			expectedErr: shared.ErrBidAmountInvalid,
		},
		{
			name:        "amount_equal_to_starting_price",
			amount:      100,
			balance:     1000,
			expectedErr: shared.ErrBidTooLow,
		},
		{
			name:        "insufficient_balance",
			amount:      150,
			balance:     149,
			expectedErr: shared.ErrInsufficientFunds,
		},
		{
			name:    "auction_closed",
			amount:  150,
			balance: 1000,
			setup: func(t *testing.T, env *testEnv, auc *auction.Auction) {
				auc.Status = auction.StatusClosed
				require.NoError(t, env.store.Auctions().Create(context.Background(), auc))
			},
			expectedErr: shared.ErrAuctionClosed,
		},
		{
			name:    "auction_expired",
			amount:  150,
			balance: 1000,
			setup: func(t *testing.T, env *testEnv, auc *auction.Auction) {
				auc.EndTime = env.now.Add(-time.Minute)
				require.NoError(t, env.store.Auctions().Create(context.Background(), auc))
			},
			expectedErr: shared.ErrAuctionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ownerID := env.seedUser(t, "owner", 0)
			bidderID := env.seedUser(t, "bidder", tt.balance)
			auc := env.seedAuction(t, ownerID, 100, 500)

			if tt.setup != nil {
				tt.setup(t, env, auc)
			}

			result, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{
				AuctionID: auc.ID,
				UserID:    bidderID,
				Amount:    tt.amount,
			})

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			require.True(t, result.TookLead)
			require.Equal(t, tt.amount, result.Bid.Amount)
			require.Nil(t, result.Settlement)

			updated, err := env.store.Auctions().GetByID(ctx, auc.ID)
			require.NoError(t, err)
			require.NotNil(t, updated.CurrentHighestBid)
			require.Equal(t, tt.amount, *updated.CurrentHighestBid)
			require.Equal(t, bidderID, *updated.CurrentHighestBidder)
		})
	}
}

func TestBiddingEngine_PlaceBid_UnknownAuction(t *testing.T) {
	env := newTestEnv(t)
	bidderID := env.seedUser(t, "bidder", 1000)

	_, err := env.engine.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: uuid.New(),
		UserID:    bidderID,
		Amount:    150,
	})
	require.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

// Walks an auction through its full life: a leading bid, a rejected low bid,
// a buyout-priced bid that settles, and a late bid against the closed auction.
func TestBiddingEngine_AuctionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ownerID := env.seedUser(t, "owner", 0)
	alice := env.seedUser(t, "alice", 1000)
	bob := env.seedUser(t, "bob", 1000)
	carol := env.seedUser(t, "carol", 1000)
	dave := env.seedUser(t, "dave", 1000)

	auc := env.seedAuction(t, ownerID, 100, 500)

	// Alice opens the bidding above the starting price and takes the lead.
	result, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
	require.NoError(t, err)
	require.True(t, result.TookLead)

	// Bob undercuts the current highest and is rejected.
	_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: bob, Amount: 120})
	require.ErrorIs(t, err, shared.ErrBidTooLow)

	// Carol bids the buyout price, which settles the auction immediately.
	result, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: carol, Amount: 500})
	require.NoError(t, err)
	require.True(t, result.TookLead)
	require.NotNil(t, result.Settlement)
	require.Equal(t, carol, *result.Settlement.WinnerID)
	require.Equal(t, int64(500), *result.Settlement.FinalPrice)

	// Dave arrives too late.
	_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: dave, Amount: 600})
	require.ErrorIs(t, err, shared.ErrAuctionClosed)

	// Funds moved from Carol to the owner.
	carolWallet, err := env.store.Wallets().GetByID(ctx, carol)
	require.NoError(t, err)
	require.Equal(t, int64(500), carolWallet.Balance)

	ownerWallet, err := env.store.Wallets().GetByID(ctx, ownerID)
	require.NoError(t, err)
	require.Equal(t, int64(500), ownerWallet.Balance)

	// The painting changed hands and landed in Carol's inventory.
	painting, err := env.store.Paintings().GetByID(ctx, auc.PaintingID)
	require.NoError(t, err)
	require.Equal(t, carol, painting.OwnerID)

	inventory, err := env.store.Paintings().ListInventory(ctx, carol)
	require.NoError(t, err)
	require.Len(t, inventory, 1)
	require.Equal(t, auc.PaintingID, inventory[0].PaintingID)

	// Both sides of the transfer are on the wallet ledger.
	transactions := env.store.Transactions()
	require.Len(t, transactions, 2)

	// Alice's losing bid never touched her balance.
	aliceWallet, err := env.store.Wallets().GetByID(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(1000), aliceWallet.Balance)
}

func TestBiddingEngine_BuyOut(t *testing.T) {
	ctx := context.Background()

	t.Run("settles_at_buyout_price", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		buyer := env.seedUser(t, "buyer", 600)
		auc := env.seedAuction(t, ownerID, 100, 500)

		result, err := env.engine.BuyOut(ctx, inbound.BuyOutRequest{AuctionID: auc.ID, UserID: buyer})
		require.NoError(t, err)
		require.Equal(t, buyer, *result.WinnerID)
		require.Equal(t, int64(500), *result.FinalPrice)

		closed, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.True(t, closed.IsClosed())
		require.Equal(t, int64(500), *closed.CurrentHighestBid)
	})

	t.Run("overrides_a_higher_standing_bid", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 1000)
		buyer := env.seedUser(t, "buyer", 600)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 450})
		require.NoError(t, err)

		result, err := env.engine.BuyOut(ctx, inbound.BuyOutRequest{AuctionID: auc.ID, UserID: buyer})
		require.NoError(t, err)
		require.Equal(t, buyer, *result.WinnerID)

		closed, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.Equal(t, buyer, *closed.CurrentHighestBidder)
	})

	t.Run("second_buyout_is_a_no_op", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		buyer := env.seedUser(t, "buyer", 600)
		rival := env.seedUser(t, "rival", 600)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.BuyOut(ctx, inbound.BuyOutRequest{AuctionID: auc.ID, UserID: buyer})
		require.NoError(t, err)

		_, err = env.engine.BuyOut(ctx, inbound.BuyOutRequest{AuctionID: auc.ID, UserID: rival})
		require.ErrorIs(t, err, shared.ErrAuctionAlreadySettled)

		// The rival's wallet is untouched.
		rivalWallet, err := env.store.Wallets().GetByID(ctx, rival)
		require.NoError(t, err)
		require.Equal(t, int64(600), rivalWallet.Balance)
	})

	t.Run("insufficient_funds", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		buyer := env.seedUser(t, "buyer", 499)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.BuyOut(ctx, inbound.BuyOutRequest{AuctionID: auc.ID, UserID: buyer})
		require.ErrorIs(t, err, shared.ErrInsufficientFunds)

		still, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.True(t, still.IsActive())
	})
}

func TestBiddingEngine_LeaveAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("leader_withdraws_and_highest_recomputes", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 1000)
		bob := env.seedUser(t, "bob", 1000)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
		require.NoError(t, err)
		_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: bob, Amount: 200})
		require.NoError(t, err)

		require.NoError(t, env.engine.LeaveAuction(ctx, auc.ID, bob))

		updated, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.Equal(t, int64(150), *updated.CurrentHighestBid)
		require.Equal(t, alice, *updated.CurrentHighestBidder)
	})

	t.Run("non_leader_withdraws_and_leader_is_unchanged", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 1000)
		bob := env.seedUser(t, "bob", 1000)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
		require.NoError(t, err)
		_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: bob, Amount: 200})
		require.NoError(t, err)

		require.NoError(t, env.engine.LeaveAuction(ctx, auc.ID, alice))

		updated, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.Equal(t, int64(200), *updated.CurrentHighestBid)
		require.Equal(t, bob, *updated.CurrentHighestBidder)
	})

	t.Run("last_bidder_withdraws_and_highest_resets", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 1000)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
		require.NoError(t, err)

		require.NoError(t, env.engine.LeaveAuction(ctx, auc.ID, alice))

		updated, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.Nil(t, updated.CurrentHighestBid)
		require.Nil(t, updated.CurrentHighestBidder)

		_, err = env.engine.GetHighestBid(ctx, auc.ID)
		require.ErrorIs(t, err, shared.ErrNoBidsFound)
	})

	t.Run("closed_auction", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 1000)
		auc := env.seedAuction(t, ownerID, 100, 500)
		auc.Status = auction.StatusClosed
		require.NoError(t, env.store.Auctions().Create(ctx, auc))

		err := env.engine.LeaveAuction(ctx, auc.ID, alice)
		require.ErrorIs(t, err, shared.ErrAuctionClosed)
	})
}

func TestBiddingEngine_GetBids(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ownerID := env.seedUser(t, "owner", 0)
	alice := env.seedUser(t, "alice", 1000)
	bob := env.seedUser(t, "bob", 1000)
	auc := env.seedAuction(t, ownerID, 100, 500)

	_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
	require.NoError(t, err)
	_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: bob, Amount: 200})
	require.NoError(t, err)

	bids, err := env.engine.GetBids(ctx, auc.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, int64(200), bids[0].Amount)
	require.Equal(t, int64(150), bids[1].Amount)

	highest, err := env.engine.GetHighestBid(ctx, auc.ID)
	require.NoError(t, err)
	require.Equal(t, bob, highest.UserID)
}

package app

import (
	"context"
	"testing"
	"time"

	"artmarket-auction-service/internal/domain/bid"
	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSettlementProcessor_SettleExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("settles_with_highest_bidder", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 1000)
		bob := env.seedUser(t, "bob", 1000)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
		require.NoError(t, err)
		_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: bob, Amount: 200})
		require.NoError(t, err)

		result, err := env.settlement.SettleExpired(ctx, auc.ID)
		require.NoError(t, err)
		require.Equal(t, bob, *result.WinnerID)
		require.Equal(t, int64(200), *result.FinalPrice)

		closed, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.True(t, closed.IsClosed())
		require.Equal(t, bob, *closed.WinnerID)

		bobWallet, err := env.store.Wallets().GetByID(ctx, bob)
		require.NoError(t, err)
		require.Equal(t, int64(800), bobWallet.Balance)

		ownerWallet, err := env.store.Wallets().GetByID(ctx, ownerID)
		require.NoError(t, err)
		require.Equal(t, int64(200), ownerWallet.Balance)
	})

	t.Run("no_bids_closes_fund_free", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		auc := env.seedAuction(t, ownerID, 100, 500)

		result, err := env.settlement.SettleExpired(ctx, auc.ID)
		require.NoError(t, err)
		require.Nil(t, result.WinnerID)
		require.Nil(t, result.FinalPrice)

		closed, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.True(t, closed.IsClosed())
		require.Nil(t, closed.WinnerID)

		require.Empty(t, env.store.Transactions())
		require.Empty(t, env.store.Inventory())
	})

	t.Run("second_settlement_is_rejected", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 1000)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
		require.NoError(t, err)

		_, err = env.settlement.SettleExpired(ctx, auc.ID)
		require.NoError(t, err)

		_, err = env.settlement.SettleExpired(ctx, auc.ID)
		require.ErrorIs(t, err, shared.ErrAuctionAlreadySettled)

		// Funds moved exactly once.
		aliceWallet, err := env.store.Wallets().GetByID(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, int64(850), aliceWallet.Balance)
		require.Len(t, env.store.Transactions(), 2)
	})

	t.Run("broke_winner_aborts_with_no_state_change", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := env.seedUser(t, "owner", 0)
		alice := env.seedUser(t, "alice", 200)
		auc := env.seedAuction(t, ownerID, 100, 500)

		_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
		require.NoError(t, err)

		// Alice spends her balance elsewhere between bidding and settlement.
		require.NoError(t, env.store.Wallets().Create(ctx, &shared.User{ID: alice, Name: "alice", Balance: 100}))

		_, err = env.settlement.SettleExpired(ctx, auc.ID)
		require.ErrorIs(t, err, shared.ErrInsufficientFunds)

		// The auction stays active so a later pass can retry.
		still, err := env.store.Auctions().GetByID(ctx, auc.ID)
		require.NoError(t, err)
		require.True(t, still.IsActive())
		require.Empty(t, env.store.Transactions())

		painting, err := env.store.Paintings().GetByID(ctx, auc.PaintingID)
		require.NoError(t, err)
		require.Equal(t, ownerID, painting.OwnerID)
	})
}

func TestSettlementProcessor_Settle_WinnerAmountFromLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ownerID := env.seedUser(t, "owner", 0)
	alice := env.seedUser(t, "alice", 1000)
	bob := env.seedUser(t, "bob", 1000)
	auc := env.seedAuction(t, ownerID, 100, 500)

	// Alice bids twice; her best admitted bid is what she pays.
	_, err := env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 150})
	require.NoError(t, err)
	_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: bob, Amount: 200})
	require.NoError(t, err)
	_, err = env.engine.PlaceBid(ctx, inbound.PlaceBidRequest{AuctionID: auc.ID, UserID: alice, Amount: 250})
	require.NoError(t, err)

	result, err := env.settlement.Settle(ctx, auc.ID, &alice)
	require.NoError(t, err)
	require.Equal(t, int64(250), *result.FinalPrice)

	aliceWallet, err := env.store.Wallets().GetByID(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(750), aliceWallet.Balance)
}

func TestSettlementProcessor_Settle_WinnerWithoutBids(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ownerID := env.seedUser(t, "owner", 0)
	stranger := env.seedUser(t, "stranger", 1000)
	auc := env.seedAuction(t, ownerID, 100, 500)

	_, err := env.settlement.Settle(ctx, auc.ID, &stranger)
	require.ErrorIs(t, err, shared.ErrNoBidsFound)
}

func TestSettlementProcessor_SettleBuyout_RecordsBidOnLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ownerID := env.seedUser(t, "owner", 0)
	alice := env.seedUser(t, "alice", 1000)
	auc := env.seedAuction(t, ownerID, 100, 500)

	buyoutBid := &bid.Bid{
		ID:        uuid.New(),
		AuctionID: auc.ID,
		UserID:    alice,
		Username:  "alice",
		Amount:    auc.BuyoutPrice,
		IsBuyout:  true,
		CreatedAt: time.Now(),
	}

	result, err := env.settlement.SettleBuyout(ctx, auc, buyoutBid)
	require.NoError(t, err)
	require.Equal(t, alice, *result.WinnerID)

	// The buyout bid landed on the ledger as the highest.
	bids, err := env.store.Bids().GetByAuctionID(ctx, auc.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.True(t, bids[0].IsBuyout)
}

package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuction_MinimumAcceptableBid(t *testing.T) {
	auc := &Auction{StartingPrice: 100}
	require.Equal(t, int64(101), auc.MinimumAcceptableBid())

	current := int64(250)
	auc.CurrentHighestBid = &current
	require.Equal(t, int64(251), auc.MinimumAcceptableBid())
}

func TestAuction_IsExpired(t *testing.T) {
	end := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	auc := &Auction{EndTime: end}

	require.False(t, auc.IsExpired(end.Add(-time.Second)))
	require.True(t, auc.IsExpired(end))
	require.True(t, auc.IsExpired(end.Add(time.Second)))
}

func TestAuction_ReachesBuyout(t *testing.T) {
	auc := &Auction{BuyoutPrice: 500}

	require.False(t, auc.ReachesBuyout(499))
	require.True(t, auc.ReachesBuyout(500))
	require.True(t, auc.ReachesBuyout(600))
}

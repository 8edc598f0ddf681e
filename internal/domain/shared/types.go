package shared

import "github.com/google/uuid"

// SettlementResult represents the outcome of settling an auction
type SettlementResult struct {
	AuctionID  uuid.UUID
	WinnerID   *uuid.UUID
	FinalPrice *int64
	Status     string
}

// ScanReport aggregates the outcome of one expiry sweep. Failures are counted
// per auction so one bad record never halts the sweep.
type ScanReport struct {
	Processed int
	Settled   int
	Failed    int
}

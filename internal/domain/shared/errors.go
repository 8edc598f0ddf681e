package shared

import "errors"

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound        = errors.New("auction not found")
	ErrAuctionClosed          = errors.New("auction is closed")
	ErrAuctionExpired         = errors.New("auction end time has passed")
	ErrAuctionAlreadySettled  = errors.New("auction already settled")
	ErrInvalidEndTime         = errors.New("end time must be in the future")
	ErrInvalidStartingPrice   = errors.New("starting price must be greater than 0")
	ErrInvalidBuyoutPrice     = errors.New("buyout price must be greater than starting price")
	ErrPaintingAlreadyListed  = errors.New("painting is already in an active auction")

	// Bid errors
	ErrBidTooLow        = errors.New("bid amount must be higher than current highest bid")
	ErrBidAmountInvalid = errors.New("bid amount must be greater than 0")
	ErrNoBidsFound      = errors.New("no bids found")

	// Wallet errors
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Painting errors
	ErrPaintingNotFound = errors.New("painting not found")
	ErrPaintingNotOwned = errors.New("painting is not owned by the auction creator")

	// Validation errors
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidRequest    = errors.New("invalid request")

	// Database errors
	ErrDatabaseConnection  = errors.New("database connection failed")
	ErrDatabaseQuery       = errors.New("database query failed")
	ErrDatabaseTransaction = errors.New("database transaction failed")

	// WebSocket errors
	ErrWebSocketConnection = errors.New("websocket connection failed")
	ErrWebSocketMessage    = errors.New("websocket message error")

	// WebSocket message validation errors
	ErrMessageTypeRequired   = errors.New("message type is required")
	ErrAuctionIDRequired     = errors.New("auction_id is required")
	ErrInvalidAmount         = errors.New("valid amount is required")
	ErrPaintingIDRequired    = errors.New("painting_id is required")
	ErrEndTimeRequired       = errors.New("end_time is required")
	ErrStartingPriceRequired = errors.New("starting_price is required")
	ErrBuyoutPriceRequired   = errors.New("buyout_price is required")
	ErrUnknownMessageType    = errors.New("unknown message type")

	// Broadcasting errors
	ErrBroadcastFailed   = errors.New("broadcast failed")
	ErrUserNotSubscribed = errors.New("user not subscribed to auction")

	// WebSocket handler specific errors
	ErrClientEventChannelNotFound = errors.New("client event channel not found")
)

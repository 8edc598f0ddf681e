package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"artmarket-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypeUnsubscribe   MessageType = "unsubscribe"
	MessageTypePlaceBid      MessageType = "place_bid"
	MessageTypeBuyOut        MessageType = "buy_out"
	MessageTypeLeaveAuction  MessageType = "leave_auction"
	MessageTypeCreateAuction MessageType = "create_auction"
	MessageTypeEndAuction    MessageType = "end_auction"
	MessageTypeGetAuction    MessageType = "get_auction"
	MessageTypeListAuctions  MessageType = "list_auctions"
	MessageTypePing          MessageType = "ping"

	// Server to Client message types
	MessageTypeBidAdmitted    MessageType = "bid_admitted"
	MessageTypeAuctionSettled MessageType = "auction_settled"
	MessageTypeAuctionUpdate  MessageType = "auction_update"
	MessageTypeAuctionCreated MessageType = "auction_created"
	MessageTypeError          MessageType = "error"
	MessageTypePong           MessageType = "pong"
)

type ClientMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, auctionID *uuid.UUID) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		AuctionID: auctionID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// NewAuctionSettledMessage creates an auction settled message
func NewAuctionSettledMessage(auctionID uuid.UUID, winnerID *uuid.UUID, finalPrice *int64) *ServerMessage {
	msg := NewServerMessage(MessageTypeAuctionSettled)
	msg.AuctionID = &auctionID
	if winnerID != nil {
		msg.Data["winner_id"] = winnerID
	}
	if finalPrice != nil {
		msg.Data["final_price"] = *finalPrice
	}
	return msg
}

func (m *ClientMessage) validateAuctionID() error {
	if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}
	return nil
}

// Amount extracts the integer bid amount from the message data. JSON numbers
// arrive as float64; only whole positive values are accepted.
func (m *ClientMessage) Amount() (int64, error) {
	raw, ok := m.Data["amount"].(float64)
	if !ok || raw <= 0 || raw != float64(int64(raw)) {
		return 0, shared.ErrInvalidAmount
	}
	return int64(raw), nil
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	// Validate required fields
	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe, MessageTypeBuyOut,
		MessageTypeLeaveAuction, MessageTypeEndAuction, MessageTypeGetAuction:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
	case MessageTypePlaceBid:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
		if _, err := m.Amount(); err != nil {
			return err
		}
	case MessageTypeCreateAuction:
		if m.Data["painting_id"] == nil {
			return shared.ErrPaintingIDRequired
		}
		if m.Data["end_time"] == nil {
			return shared.ErrEndTimeRequired
		}
		if m.Data["starting_price"] == nil {
			return shared.ErrStartingPriceRequired
		}
		if m.Data["buyout_price"] == nil {
			return shared.ErrBuyoutPriceRequired
		}
	case MessageTypeListAuctions:

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}

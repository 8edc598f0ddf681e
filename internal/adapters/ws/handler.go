package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/inbound"
	"artmarket-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler manages WebSocket connections and routes client commands into the
// auction and bidding services. The user identity on every command is the
// trusted user_id the session layer put on the connection; the core never
// reads ambient state.
type WsHandler struct {
	clients        map[string]*WsClient // clientID -> Client
	clientsMu      sync.RWMutex
	eventChannels  map[string]chan outbound.Event // clientID -> local event channel
	channelsMu     sync.RWMutex
	upgrader       websocket.Upgrader
	auctionService inbound.AuctionService
	biddingService inbound.BiddingService
	broadcaster    outbound.Broadcaster
	logger         zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader       websocket.Upgrader
	AuctionService inbound.AuctionService
	BiddingService inbound.BiddingService
	Broadcaster    outbound.Broadcaster
	Logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:        make(map[string]*WsClient),
		eventChannels:  make(map[string]chan outbound.Event),
		upgrader:       params.Upgrader,
		auctionService: params.AuctionService,
		biddingService: params.BiddingService,
		broadcaster:    params.Broadcaster,
		logger:         params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		UserID:  userID,
		Conn:    conn,
		Handler: handler,
		Logger:  handler.logger,
	})

	handler.registerClient(client)
	handler.createEventChannel(client.id)

	client.Start()

	go handler.listenForClientEvents(client)

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Msg("WebSocket client connected")
}

// createEventChannel creates a local event channel for a client
func (handler *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if eventChan, exists := handler.eventChannels[clientID]; exists {
		return eventChan
	}

	eventChan := make(chan outbound.Event, 100)
	handler.eventChannels[clientID] = eventChan
	return eventChan
}

func (handler *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.RLock()
	defer handler.channelsMu.RUnlock()

	return handler.eventChannels[clientID]
}

func (handler *WsHandler) removeEventChannel(clientID string) {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if eventChan, exists := handler.eventChannels[clientID]; exists {
		close(eventChan)
		delete(handler.eventChannels, clientID)
	}
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()

	delete(handler.clients, client.id)

	client.Stop()
	handler.removeEventChannel(client.id)

	handler.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Int("total_clients", len(handler.clients)).Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the client's connection
func (handler *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	for {
		select {
		case event := <-eventChan:
			wsMessage := handler.convertEventToMessage(event)

			if err := client.Send(wsMessage); err != nil {
				handler.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to send event to WebSocket client")
			}

		case <-client.ctx.Done():
			return
		}
	}
}

func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return handler.handleSubscribe(client, msg)

	case MessageTypeUnsubscribe:
		return handler.handleUnsubscribe(client, msg)

	case MessageTypePlaceBid:
		return handler.handlePlaceBid(client, msg)

	case MessageTypeBuyOut:
		return handler.handleBuyOut(client, msg)

	case MessageTypeLeaveAuction:
		return handler.handleLeaveAuction(client, msg)

	case MessageTypeCreateAuction:
		return handler.handleCreateAuction(client, msg)

	case MessageTypeEndAuction:
		return handler.handleEndAuction(client, msg)

	case MessageTypeGetAuction:
		return handler.handleGetAuction(client, msg)

	case MessageTypeListAuctions:
		return handler.handleListAuctions(client, msg)

	default:
		handler.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return shared.ErrUnknownMessageType
	}
}

func (handler *WsHandler) convertEventToMessage(event outbound.Event) *ServerMessage {
	switch event.Type {
	case outbound.EventTypeBidAdmitted:
		return &ServerMessage{
			Type:      MessageTypeBidAdmitted,
			AuctionID: &event.AuctionID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	case outbound.EventTypeAuctionSettled:
		return &ServerMessage{
			Type:      MessageTypeAuctionSettled,
			AuctionID: &event.AuctionID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	case outbound.EventTypeAuctionCreated:
		return &ServerMessage{
			Type:      MessageTypeAuctionCreated,
			AuctionID: &event.AuctionID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	default:
		return &ServerMessage{
			Type:      MessageTypeAuctionUpdate,
			AuctionID: &event.AuctionID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

func (handler *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		return shared.ErrClientEventChannelNotFound
	}

	if err := handler.broadcaster.Subscribe(ctx, *msg.AuctionID, client.id, eventChan); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Str("auction_id", msg.AuctionID.String()).Msg("Failed to subscribe to auction")
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "subscribed"

	return client.Send(response)
}

// handleUnsubscribe handles unsubscription from auction events
func (handler *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	if err := handler.broadcaster.Unsubscribe(ctx, *msg.AuctionID, client.id); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "unsubscribed"

	return client.Send(response)
}

// handlePlaceBid handles bid placement
func (handler *WsHandler) handlePlaceBid(client *WsClient, msg *ClientMessage) error {
	amount, err := msg.Amount()
	if err != nil {
		return err
	}

	ctx := context.Background()

	result, err := handler.biddingService.PlaceBid(ctx, inbound.PlaceBidRequest{
		AuctionID: *msg.AuctionID,
		UserID:    client.userID,
		Amount:    amount,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeBidAdmitted)
	response.AuctionID = msg.AuctionID
	response.Data["bid_id"] = result.Bid.ID
	response.Data["amount"] = result.Bid.Amount
	response.Data["took_lead"] = result.TookLead
	if result.Settlement != nil {
		response.Data["settled"] = true
	}

	handler.logger.Info().
		Str("bid_id", result.Bid.ID.String()).
		Str("auction_id", msg.AuctionID.String()).
		Str("user_id", client.userID.String()).
		Int64("amount", amount).
		Bool("took_lead", result.TookLead).
		Msg("Bid placed")

	return client.Send(response)
}

// handleBuyOut handles an instant buyout
func (handler *WsHandler) handleBuyOut(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	result, err := handler.biddingService.BuyOut(ctx, inbound.BuyOutRequest{
		AuctionID: *msg.AuctionID,
		UserID:    client.userID,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	handler.logger.Info().
		Str("auction_id", msg.AuctionID.String()).
		Str("user_id", client.userID.String()).
		Msg("Auction bought out")

	return client.Send(NewAuctionSettledMessage(result.AuctionID, result.WinnerID, result.FinalPrice))
}

// handleLeaveAuction withdraws the user's bids from an auction
func (handler *WsHandler) handleLeaveAuction(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	if err := handler.biddingService.LeaveAuction(ctx, *msg.AuctionID, client.userID); err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "left"

	return client.Send(response)
}

// handleCreateAuction handles auction creation
func (handler *WsHandler) handleCreateAuction(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	paintingIDStr, ok := msg.Data["painting_id"].(string)
	if !ok {
		return shared.ErrPaintingIDRequired
	}

	paintingID, err := uuid.Parse(paintingIDStr)
	if err != nil {
		return shared.ErrPaintingIDRequired
	}

	endTimeStr, ok := msg.Data["end_time"].(string)
	if !ok {
		return shared.ErrEndTimeRequired
	}

	startingPrice, ok := msg.Data["starting_price"].(float64)
	if !ok {
		return shared.ErrStartingPriceRequired
	}

	buyoutPrice, ok := msg.Data["buyout_price"].(float64)
	if !ok {
		return shared.ErrBuyoutPriceRequired
	}

	auc, err := handler.auctionService.CreateAuction(ctx, inbound.CreateAuctionRequest{
		PaintingID:    paintingID,
		OwnerID:       client.userID,
		StartingPrice: int64(startingPrice),
		BuyoutPrice:   int64(buyoutPrice),
		EndTime:       endTimeStr,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	response := handler.createAuctionResponse(auc, MessageTypeAuctionCreated, nil)

	handler.logger.Info().Str("auction_id", auc.ID.String()).Str("user_id", client.userID.String()).Msg("Auction created")
	return client.Send(response)
}

// handleEndAuction closes an auction manually; only the owner may do it
func (handler *WsHandler) handleEndAuction(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	auc, err := handler.auctionService.GetAuction(ctx, *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}
	if auc.OwnerID != client.userID {
		return client.Send(NewErrorMessage("only the auction owner can end it", msg.AuctionID))
	}

	result, err := handler.auctionService.EndAuction(ctx, *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	return client.Send(NewAuctionSettledMessage(result.AuctionID, result.WinnerID, result.FinalPrice))
}

// handleGetAuction handles getting auction details
func (handler *WsHandler) handleGetAuction(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	auc, err := handler.auctionService.GetAuction(ctx, *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	return client.Send(handler.createAuctionResponse(auc, MessageTypeAuctionUpdate, msg.AuctionID))
}

// handleListAuctions handles listing auctions
func (handler *WsHandler) handleListAuctions(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	limit := 10
	if limitVal, ok := msg.Data["limit"].(float64); ok {
		limit = int(limitVal)
	}

	offset := 0
	if offsetVal, ok := msg.Data["offset"].(float64); ok {
		offset = int(offsetVal)
	}

	auctions, err := handler.auctionService.ListAuctions(ctx, inbound.ListAuctionsRequest{
		Page:     offset/limit + 1, // Convert offset to page
		PageSize: limit,
		Status:   nil,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.Data["auctions"] = auctions
	response.Data["count"] = len(auctions)

	return client.Send(response)
}

func (handler *WsHandler) createAuctionResponse(auc *auction.Auction, msgType MessageType, auctionID *uuid.UUID) *ServerMessage {
	response := NewServerMessage(msgType)
	if auctionID != nil {
		response.AuctionID = auctionID
	}

	response.Data["auction_id"] = auc.ID
	response.Data["painting_id"] = auc.PaintingID
	response.Data["owner_id"] = auc.OwnerID
	response.Data["end_time"] = auc.EndTime.Format(time.RFC3339)
	response.Data["starting_price"] = auc.StartingPrice
	response.Data["buyout_price"] = auc.BuyoutPrice
	response.Data["status"] = auc.Status
	if auc.CurrentHighestBid != nil {
		response.Data["current_highest_bid"] = *auc.CurrentHighestBid
	}
	if auc.CurrentHighestBidder != nil {
		response.Data["current_highest_bidder"] = *auc.CurrentHighestBidder
	}
	if auc.WinnerID != nil {
		response.Data["winner_id"] = *auc.WinnerID
	}

	return response
}

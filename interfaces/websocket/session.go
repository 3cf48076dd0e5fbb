package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"shoplist-backend/application/services"
	"shoplist-backend/domain/history"
	"shoplist-backend/domain/list"
	appErrors "shoplist-backend/pkg/errors"
	"shoplist-backend/pkg/observability"
)

// ListService is the slice of the application service the session layer
// needs.
type ListService interface {
	Document(ctx context.Context) (*list.Document, error)
	History(ctx context.Context) (history.Log, error)
	ReplaceDocument(ctx context.Context, doc *list.Document) error
	AppendEntry(ctx context.Context, entry history.Entry) (history.Log, error)
	UndoLast(ctx context.Context) (services.UndoResult, error)
}

// Session relays client-submitted messages to the application service and
// sends per-client replies. Broadcasts happen inside the service; the
// session only ever answers the requester directly.
type Session struct {
	service  ListService
	validate *validator.Validate
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewSession creates the message dispatcher shared by all connections.
// metrics may be nil.
func NewSession(service ListService, metrics *observability.Metrics, logger *zap.Logger) *Session {
	return &Session{
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger,
	}
}

// updateListPayload mirrors the document with presence-checked top-level
// fields: update-list is rejected when either is missing.
type updateListPayload struct {
	Stores            *[]list.Store `json:"stores" validate:"required"`
	ActiveStoreFilter *string       `json:"activeStoreFilter" validate:"required"`
}

// SendInitialState pushes the current document and log to a freshly
// connected client.
func (s *Session) SendInitialState(ctx context.Context, client *Client) {
	doc, err := s.service.Document(ctx)
	if err != nil {
		s.logger.Error("failed to load initial list data", zap.Error(err))
		client.Send(errorMessage("Failed to load initial list data."))
		return
	}
	if data, err := encodeMessage(MessageInitialData, doc); err == nil {
		client.Send(data)
	}

	log, err := s.service.History(ctx)
	if err != nil {
		s.logger.Error("failed to load initial history data", zap.Error(err))
		return
	}
	if data, err := encodeMessage(MessageHistoryUpdated, log); err == nil {
		client.Send(data)
	}
}

// HandleMessage dispatches one inbound wire message.
func (s *Session) HandleMessage(client *Client, message []byte) {
	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		s.logger.Error("failed to parse client message",
			zap.String("connectionID", client.ID()), zap.Error(err))
		client.Send(errorMessage("Server error processing your request."))
		return
	}

	if s.metrics != nil {
		s.metrics.MessagesReceived.WithLabelValues(envelope.Type).Inc()
	}
	s.logger.Debug("received message",
		zap.String("type", envelope.Type),
		zap.String("connectionID", client.ID()),
	)

	ctx := context.Background()
	switch envelope.Type {
	case MessageUpdateList:
		s.handleUpdateList(ctx, client, envelope.Payload)
	case MessageAddHistory:
		s.handleAddHistory(ctx, client, envelope.Payload)
	case MessageGetHistory:
		s.handleGetHistory(ctx, client)
	case MessageUndoLastAction:
		s.handleUndoLastAction(ctx, client, envelope.Payload)
	default:
		s.logger.Warn("unknown message type",
			zap.String("type", envelope.Type),
			zap.String("connectionID", client.ID()),
		)
	}
}

func (s *Session) handleUpdateList(ctx context.Context, client *Client, raw json.RawMessage) {
	var payload updateListPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		client.Send(errorMessage("Invalid data format for update-list."))
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		client.Send(errorMessage("Invalid data format for update-list."))
		return
	}

	doc := &list.Document{
		Stores:            *payload.Stores,
		ActiveStoreFilter: *payload.ActiveStoreFilter,
	}
	if err := s.service.ReplaceDocument(ctx, doc); err != nil {
		s.replyError(client, err, "Failed to update the list.")
		return
	}
}

func (s *Session) handleAddHistory(ctx context.Context, client *Client, raw json.RawMessage) {
	var entry history.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		client.Send(errorMessage("Invalid data format for add-history."))
		return
	}
	if _, err := s.service.AppendEntry(ctx, entry); err != nil {
		s.replyError(client, err, "Failed to record the action.")
		return
	}
}

func (s *Session) handleGetHistory(ctx context.Context, client *Client) {
	log, err := s.service.History(ctx)
	if err != nil {
		s.replyError(client, err, "Failed to load history.")
		return
	}
	if data, err := encodeMessage(MessageHistoryUpdated, log); err == nil {
		client.Send(data)
	}
}

func (s *Session) handleUndoLastAction(ctx context.Context, client *Client, raw json.RawMessage) {
	// The client names an action id, but undo always targets the head of
	// the log; the id is only logged.
	var payload undoPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err == nil && payload.ActionID != "" {
			s.logger.Debug("undo requested",
				zap.String("requestedActionID", payload.ActionID))
		}
	}

	result, err := s.service.UndoLast(ctx)
	if err != nil {
		s.replyError(client, err, "Failed to undo the last action.")
		return
	}
	if result.Empty {
		client.Send(infoMessage("No actions to undo."))
	}
}

// replyError sends a per-client error message. Validation failures carry
// their own message; anything else gets the generic fallback.
func (s *Session) replyError(client *Client, err error, fallback string) {
	if appErrors.IsValidation(err) {
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			client.Send(errorMessage(appErr.Message))
			return
		}
	}
	s.logger.Error("request failed",
		zap.String("connectionID", client.ID()), zap.Error(err))
	client.Send(errorMessage(fallback))
}

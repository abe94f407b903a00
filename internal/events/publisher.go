package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"estatehub/listings/internal/models"
)

// Subjects published for listing lifecycle changes.
const (
	SubjectListingCreated  = "listing.created"
	SubjectListingUpdated  = "listing.updated"
	SubjectListingApproved = "listing.approved"
	SubjectListingRejected = "listing.rejected"
	SubjectListingDeleted  = "listing.deleted"
)

const (
	connectWait   = 5 * time.Second
	maxReconnects = 5
	reconnectWait = 2 * time.Second
)

// ListingEvent is the payload sent on every listing subject.
type ListingEvent struct {
	ListingID  string               `json:"listingId"`
	Status     models.ListingStatus `json:"status,omitempty"`
	CreatedBy  string               `json:"createdBy,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// NewListingEvent builds the event payload for l.
func NewListingEvent(l *models.Listing) ListingEvent {
	ev := ListingEvent{
		ListingID:  l.ID.Hex(),
		Status:     l.Status,
		OccurredAt: time.Now().UTC(),
	}
	if l.CreatedBy != nil {
		ev.CreatedBy = l.CreatedBy.Hex()
	}
	return ev
}

// IPublisher publishes listing events.
type IPublisher interface {
	Publish(ctx context.Context, subject string, event ListingEvent) error
	Close()
}

// NatsPublisher publishes JSON-encoded events on a NATS connection.
type NatsPublisher struct {
	conn *nats.Conn
}

// NewNatsPublisher connects to url with reconnect handling logged through logger.
func NewNatsPublisher(url string, logger *zap.Logger) (*NatsPublisher, error) {
	opts := []nats.Option{
		nats.Name("listings publisher"),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NatsPublisher{conn: conn}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, event ListingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages before closing the connection.
func (p *NatsPublisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// NoopPublisher discards events. Used when NATS_URL is empty.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, ListingEvent) error { return nil }
func (NoopPublisher) Close()                                              {}

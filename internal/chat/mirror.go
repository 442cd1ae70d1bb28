package chat

import (
	"context"
	"time"
)

// MirrorDocument is the denormalized copy of an exchange kept in the
// secondary store, keyed by the stringified user id.
type MirrorDocument struct {
	ExchangeID uint64    `json:"exchange_id"`
	UserID     string    `json:"user_id"`
	Message    string    `json:"message"`
	Response   string    `json:"response"`
	Provider   string    `json:"provider"`
	Timestamp  time.Time `json:"timestamp"`
}

// Mirror is the best-effort path to the secondary store. Neither call may
// ever fail or block the primary path: the service logs and swallows every
// error from here. The production implementation publishes to RabbitMQ;
// the worker applies the events to Redis.
type Mirror interface {
	AppendExchange(ctx context.Context, doc MirrorDocument) error
	DeleteHistory(ctx context.Context, userID string) error
}

// NopMirror is used when no mirror transport is configured.
type NopMirror struct{}

func (NopMirror) AppendExchange(ctx context.Context, doc MirrorDocument) error { return nil }

func (NopMirror) DeleteHistory(ctx context.Context, userID string) error { return nil }

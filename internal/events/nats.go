package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	apperrors "github.com/in-c0/langtern/internal/errors"
)

const connectTimeout = 10 * time.Second

type natsConn interface {
	Publish(subject string, data []byte) error
	Close()
}

type NATSPublisher struct {
	conn    natsConn
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("langtern"),
		nats.Timeout(connectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	return newNATSPublisher(nc, subject, logger), nil
}

func newNATSPublisher(conn natsConn, subject string, logger *zap.Logger) *NATSPublisher {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

func (p *NATSPublisher) PublishMatchesServed(ctx context.Context, event MatchesServed) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return apperrors.Internal("marshaling matches event", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("failed to publish matches event",
			zap.String("profile_id", event.ProfileID),
			zap.Error(err))
		return apperrors.Unavailable("publishing matches event", err)
	}

	p.logger.Debug("published matches event",
		zap.String("profile_id", event.ProfileID),
		zap.String("subject", p.subject),
		zap.Int("count", event.Count))
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

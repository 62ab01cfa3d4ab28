package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/in-c0/langtern/internal/errors"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	closed  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func (c *fakeConn) Close() { c.closed = true }

func TestNATSPublisherPublishesJSON(t *testing.T) {
	conn := &fakeConn{}
	pub := newNATSPublisher(conn, "", nil)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := pub.PublishMatchesServed(context.Background(), MatchesServed{
		ProfileID: "p1", Source: "ai", Count: 2, JobIDs: []string{"3", "1"}, At: at,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultSubject, conn.subject)

	var got MatchesServed
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, "p1", got.ProfileID)
	assert.Equal(t, []string{"3", "1"}, got.JobIDs)
	assert.True(t, got.At.Equal(at))

	require.NoError(t, pub.Close())
	assert.True(t, conn.closed)
}

func TestNATSPublisherWrapsPublishFailure(t *testing.T) {
	pub := newNATSPublisher(&fakeConn{err: errors.New("disconnected")}, "custom", nil)

	err := pub.PublishMatchesServed(context.Background(), MatchesServed{ProfileID: "p1"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeUnavailable, apperrors.TypeOf(err))
}

func TestNATSPublisherSkipsCancelledContext(t *testing.T) {
	conn := &fakeConn{}
	pub := newNATSPublisher(conn, "s", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, pub.PublishMatchesServed(ctx, MatchesServed{}), context.Canceled)
	assert.Empty(t, conn.subject)
}

// Package events publishes notifications about served matches.
package events

import (
	"context"
	"time"
)

const DefaultSubject = "langtern.matches"

// MatchesServed is emitted after every matching request.
type MatchesServed struct {
	ProfileID string    `json:"profileId"`
	Source    string    `json:"source"`
	Count     int       `json:"count"`
	JobIDs    []string  `json:"jobIds"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	PublishMatchesServed(ctx context.Context, event MatchesServed) error
	Close() error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishMatchesServed(context.Context, MatchesServed) error { return nil }

func (Nop) Close() error { return nil }

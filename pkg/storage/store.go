package storage

import (
	"context"
	"time"
)

// TokenRecord stores one provider access token keyed by account identity.
// Re-authentication overwrites the record: last write wins, no versioning.
type TokenRecord struct {
	Identity    string
	AccessToken string
	Scopes      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TokenStore defines persistence for issued tokens. Get returns (nil, nil)
// when no record exists for the identity.
type TokenStore interface {
	Upsert(ctx context.Context, record TokenRecord) error
	Get(ctx context.Context, identity string) (*TokenRecord, error)
	Close() error
}

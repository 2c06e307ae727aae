package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories so a transaction scoped Store can hand out the same
// repositories bound to the transaction.
type Store interface {
	Tenants() Tenants
	Clients() Clients
	Users() Users
	AuthorizationRequests() AuthorizationRequests
	AuthorizationCodes() AuthorizationCodes
	AuthorizationGranted() AuthorizationGranted
	Tokens() Tokens
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit or
	// Rollback on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, rolling back when fn returns an
	// error and committing otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tenants interface {
	Get(ctx context.Context, id string) (domain.Tenant, error)
	List(ctx context.Context) ([]domain.Tenant, error)
	// Upsert creates the tenant or replaces its configuration.
	Upsert(ctx context.Context, t domain.Tenant) error
}

type Clients interface {
	Get(ctx context.Context, tenantID, clientID string) (domain.Client, error)
	Upsert(ctx context.Context, c domain.Client) error
}

type Users interface {
	Get(ctx context.Context, tenantID, id string) (domain.User, error)
	GetByUsername(ctx context.Context, tenantID, username string) (domain.User, error)
	Upsert(ctx context.Context, u domain.User) error
}

type AuthorizationRequests interface {
	Register(ctx context.Context, req domain.AuthorizationRequest) error
	// Get fails with ErrNotFound.
	Get(ctx context.Context, tenantID, id string) (domain.AuthorizationRequest, error)
	// Find reports a missing request with ok=false.
	Find(ctx context.Context, tenantID, id string) (req domain.AuthorizationRequest, ok bool, err error)
	Delete(ctx context.Context, tenantID, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuthorizationCodes interface {
	Create(ctx context.Context, code domain.AuthorizationCode) error
	GetByHash(ctx context.Context, tenantID, hash string) (domain.AuthorizationCode, error)
	// Consume deletes the code and fails with ErrNotFound when another
	// redemption already removed it.
	Consume(ctx context.Context, tenantID, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuthorizationGranted interface {
	Find(ctx context.Context, tenantID, userID, clientID string) (g domain.AuthorizationGranted, ok bool, err error)
	Save(ctx context.Context, g domain.AuthorizationGranted) error
}

// Tokens stores OAuthTokens by the fingerprint of their access and refresh
// values. A value collision within a tenant fails with ErrAlreadyExists.
type Tokens interface {
	Register(ctx context.Context, tok domain.OAuthToken) error
	FindByAccessToken(ctx context.Context, tenantID, value string) (tok domain.OAuthToken, ok bool, err error)
	FindByRefreshToken(ctx context.Context, tenantID, value string) (tok domain.OAuthToken, ok bool, err error)
	// Delete fails with ErrNotFound when no row was removed, which is how a
	// concurrent refresh of the same token is detected.
	Delete(ctx context.Context, tenantID, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SigningKeys interface {
	Create(ctx context.Context, key domain.SigningKey) error
	// List returns every key, newest first, including retired ones still
	// needed for verification.
	List(ctx context.Context) ([]domain.SigningKey, error)
	Retire(ctx context.Context, kid string, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

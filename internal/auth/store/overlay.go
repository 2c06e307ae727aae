package store

import "context"

// WithAuthorizationRequests serves authorization requests from repo and
// everything else from base. It lets a cache such as Redis hold the short
// lived requests while the rest stays in SQL. Requests held in repo do not
// take part in base transactions.
func WithAuthorizationRequests(base Store, repo AuthorizationRequests) Store {
	return &overlayStore{Store: base, requests: repo}
}

type overlayStore struct {
	Store
	requests AuthorizationRequests
}

func (s *overlayStore) AuthorizationRequests() AuthorizationRequests { return s.requests }

func (s *overlayStore) Tx(ctx context.Context) (Tx, error) {
	tx, err := s.Store.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &overlayTx{txBase: tx, requests: s.requests}, nil
}

func (s *overlayStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.Store.WithTx(ctx, func(tx Tx) error {
		return fn(&overlayTx{txBase: tx, requests: s.requests})
	})
}

// txBase names the embedded Tx so the field does not shadow Store.Tx.
type txBase = Tx

type overlayTx struct {
	txBase
	requests AuthorizationRequests
}

func (t *overlayTx) AuthorizationRequests() AuthorizationRequests { return t.requests }

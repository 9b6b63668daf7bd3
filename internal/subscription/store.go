package subscription

import (
	"context"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/email"
	"github.com/letterdrop/letterdrop/internal/krypto"
)

// SubscriberFilter is used to filter subscribers.
// Returned subscribers must match all the provided fields.
// If a field is empty or nil, it's ignored.
type SubscriberFilter struct {
	IDs      []uuid.UUID
	Emails   []email.Address
	Statuses []Status
}

// Store provides access to the subscriber store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
	FindSubscribers(ctx context.Context, filter *SubscriberFilter) ([]Subscriber, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Find methods,
// the transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateSubscriber(s *Subscriber) error
	UpdateSubscriber(s *Subscriber) error
	FindSubscribers(filter *SubscriberFilter) ([]Subscriber, error)

	CreateToken(t *Token) error
	SubscriberIDForToken(token krypto.Token) (uuid.UUID, error)
}

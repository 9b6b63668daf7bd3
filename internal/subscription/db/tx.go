package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/krypto"
	"github.com/letterdrop/letterdrop/internal/subscription"
)

type Tx struct {
	tx    *sql.Tx
	store *Store
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateSubscriber creates a subscriber in the database.
func (t *Tx) CreateSubscriber(s *subscription.Subscriber) error {
	return insertSubscriber(t.store.newQuery(), t.tx.Exec, s)
}

// UpdateSubscriber updates a subscriber in the database.
// It returns errorz.ErrNotFound if no subscriber is found.
func (t *Tx) UpdateSubscriber(s *subscription.Subscriber) error {
	return updateSubscriber(t.store.newQuery(), t.tx.Exec, s)
}

// FindSubscribers queries for subscribers based on the provided filter.
// It returns an empty slice if no subscribers are found.
func (t *Tx) FindSubscribers(filter *subscription.SubscriberFilter) ([]subscription.Subscriber, error) {
	return selectSubscribers(t.store.newQuery(), t.tx.Query, filter)
}

// CreateToken creates a subscription token in the database.
func (t *Tx) CreateToken(token *subscription.Token) error {
	return insertToken(t.store.newQuery(), t.tx.Exec, token)
}

// SubscriberIDForToken resolves a token to the subscriber it belongs to.
// It returns errorz.ErrNotFound if the token does not exist.
func (t *Tx) SubscriberIDForToken(token krypto.Token) (uuid.UUID, error) {
	return selectSubscriberIDForToken(t.store.newQuery(), t.tx.Query, token)
}

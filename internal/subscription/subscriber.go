package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/email"
	"github.com/letterdrop/letterdrop/internal/krypto"
)

// Status is the confirmation state of a subscriber.
//
// The only transition is pending_confirmation -> confirmed, performed
// by Service.Confirm. Confirmed is terminal.
type Status string

const (
	StatusPending   Status = "pending_confirmation"
	StatusConfirmed Status = "confirmed"
)

// Subscriber is a (potential) newsletter recipient.
type Subscriber struct {
	ID           uuid.UUID
	Email        email.Address
	Name         Name
	Status       Status
	SubscribedAt time.Time
}

// NewSubscriber is the validated input for Service.Subscribe.
type NewSubscriber struct {
	Name  Name
	Email email.Address
}

// Token links a confirmation token to the subscriber it belongs to.
// It is created in the same transaction as a pending subscriber, a
// pending subscriber without a token does not exist.
type Token struct {
	Token        krypto.Token
	SubscriberID uuid.UUID
	CreatedAt    time.Time
}

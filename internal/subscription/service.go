package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/email"
	"github.com/letterdrop/letterdrop/internal/errorz"
	"github.com/letterdrop/letterdrop/internal/krypto"
)

var (
	// ErrUnknownToken is returned when a confirmation token does not
	// resolve to a subscriber. Callers can not distinguish a token that
	// never existed from one they made up, both are rejected the same way.
	ErrUnknownToken = errors.New("unknown subscription token")

	// ErrAlreadySubscribed is returned when the email address already
	// belongs to a confirmed subscriber.
	ErrAlreadySubscribed = errors.New("already subscribed")
)

// Emailer is used to send emails to subscribers.
type Emailer interface {
	// Send sends a templated email.
	Send(ctx context.Context, template string, to email.Address, data any) error
	// SendRaw sends an email whose subject and bodies are already rendered.
	SendRaw(ctx context.Context, to email.Address, subject, textBody, htmlBody string) error
}

// ErrFunc is a function that handles errors.
type ErrFunc func(error)

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// BaseURL is the public URL of the server, used to construct
	// confirmation links.
	BaseURL *url.URL
}

// Service provides the subscription workflows: subscribe, confirm and
// newsletter publishing.
type Service struct {
	store      Store
	emailer    Emailer
	errHandler ErrFunc
	cfg        ServiceConfig

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, errHandler ErrFunc, cfg ServiceConfig) *Service {
	return &Service{
		store:      s,
		emailer:    emailer,
		errHandler: errHandler,
		cfg:        cfg,
		NowFunc:    time.Now,
	}
}

// ConfirmationData is passed to the confirmation email template.
type ConfirmationData struct {
	Name            string
	ConfirmationURL string
}

// Subscribe records a new pending subscriber and sends a confirmation
// email containing a tokenized link.
//
// The subscriber row and its token are committed in a single
// transaction, if any step fails nothing is persisted. The email is
// only sent after a successful commit, so a failed send leaves a valid
// pending subscriber behind. That is a deliberate trade-off, we never
// roll back committed rows. Without an outbox there is no automatic
// retry yet, subscribing again mints a fresh token for the same row.
func (s *Service) Subscribe(ctx context.Context, ns NewSubscriber) error {
	now := s.NowFunc()

	token, err := krypto.GenerateToken()
	if err != nil {
		return err
	}

	sub := Subscriber{
		ID:           uuid.New(),
		Email:        ns.Email,
		Name:         ns.Name,
		Status:       StatusPending,
		SubscribedAt: now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		existing, txErr := tx.FindSubscribers(&SubscriberFilter{
			Emails: []email.Address{ns.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(existing) > 0 {
			if existing[0].Status == StatusConfirmed {
				return ErrAlreadySubscribed
			}

			// A pending subscriber tried again, reuse the row.
			sub = existing[0]
		} else {
			txErr = tx.CreateSubscriber(&sub)
			if txErr != nil {
				return txErr
			}
		}

		return tx.CreateToken(&Token{
			Token:        token,
			SubscriberID: sub.ID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return err
	}

	// The send could fail independently of the transaction. See the
	// method docs for why we don't unwind the committed rows.
	err = s.emailer.Send(ctx, "subscription-confirmation", sub.Email, ConfirmationData{
		Name:            sub.Name.String(),
		ConfirmationURL: s.confirmationURL(token),
	})
	if err != nil {
		return fmt.Errorf("subscriber stored but confirmation email failed: %w", err)
	}

	return nil
}

// Confirm transitions the subscriber identified by the token to
// confirmed. Confirming an already confirmed subscriber succeeds
// silently, tokens stay usable after consumption.
func (s *Service) Confirm(ctx context.Context, token krypto.Token) error {
	return s.inTx(ctx, func(tx Tx) error {
		id, err := tx.SubscriberIDForToken(token)
		if err != nil {
			if errors.Is(err, errorz.ErrNotFound) {
				return ErrUnknownToken
			}
			return err
		}

		subs, err := tx.FindSubscribers(&SubscriberFilter{
			IDs: []uuid.UUID{id},
		})
		if err != nil {
			return err
		}

		if len(subs) != 1 {
			return fmt.Errorf("token %v references missing subscriber %v", errorz.ErrConstraintViolated, id)
		}

		if subs[0].Status == StatusConfirmed {
			return nil
		}

		subs[0].Status = StatusConfirmed

		return tx.UpdateSubscriber(&subs[0])
	})
}

// Newsletter is an issue to send to all confirmed subscribers.
type Newsletter struct {
	Title   string
	Content NewsletterContent
}

// NewsletterContent holds the issue body in both formats.
type NewsletterContent struct {
	HTML string
	Text string
}

// Validate checks the newsletter for missing parts.
func (n Newsletter) Validate() error {
	var errs errorz.InvalidInput

	if n.Title == "" {
		errs = append(errs, errorz.Keyed{Key: "title", Err: errors.New("must not be empty")})
	}

	if n.Content.HTML == "" {
		errs = append(errs, errorz.Keyed{Key: "content.html", Err: errors.New("must not be empty")})
	}

	if n.Content.Text == "" {
		errs = append(errs, errorz.Keyed{Key: "content.text", Err: errors.New("must not be empty")})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// PublishNewsletter sends the newsletter to every confirmed
// subscriber. Sending is best-effort per recipient, failures are
// reported to the error handler and do not stop the loop.
//
// The fan-out is synchronous within the calling request. At a large
// subscriber count this should become a background job.
func (s *Service) PublishNewsletter(ctx context.Context, n Newsletter) error {
	if err := n.Validate(); err != nil {
		return err
	}

	subs, err := s.store.FindSubscribers(ctx, &SubscriberFilter{
		Statuses: []Status{StatusConfirmed},
	})
	if err != nil {
		return err
	}

	for _, sub := range subs {
		err := s.emailer.SendRaw(ctx, sub.Email, n.Title, n.Content.Text, n.Content.HTML)
		if err != nil {
			s.errHandler(fmt.Errorf("failed to send newsletter to subscriber %s: %w", sub.ID, err))
		}
	}

	return nil
}

func (s *Service) confirmationURL(token krypto.Token) string {
	u := *s.cfg.BaseURL
	u.Path = "/subscription/confirm"
	u.RawQuery = url.Values{"subscription_token": []string{token.String()}}.Encode()
	return u.String()
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}

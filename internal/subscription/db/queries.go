package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/db"
	"github.com/letterdrop/letterdrop/internal/errorz"
	"github.com/letterdrop/letterdrop/internal/krypto"
	"github.com/letterdrop/letterdrop/internal/subscription"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertSubscriber(q *db.Query, ef execFunc, s *subscription.Subscriber) error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO subscribers (id, email_encrypted, email_blind_index, name_encrypted, status, subscribed_at) VALUES (`)
	q.Param(s.ID)
	q.Unsafe(`, `)
	q.ParamEncrypted([]byte(s.Email.String()))
	q.Unsafe(`, `)
	q.ParamBlindIndex([]byte(s.Email.String()))
	q.Unsafe(`, `)
	q.ParamEncrypted([]byte(s.Name.String()))
	q.Unsafe(`, `)
	q.Params(string(s.Status), s.SubscribedAt)
	q.Unsafe(`)`)

	stmt, params, err := q.Get()
	if err != nil {
		return err
	}

	_, err = ef(stmt, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateSubscriber(q *db.Query, ef execFunc, s *subscription.Subscriber) error {
	q.Unsafe(`UPDATE subscribers SET `)

	q.Unsafe(`email_encrypted = `)
	q.ParamEncrypted([]byte(s.Email.String()))

	q.Unsafe(`, email_blind_index = `)
	q.ParamBlindIndex([]byte(s.Email.String()))

	q.Unsafe(`, name_encrypted = `)
	q.ParamEncrypted([]byte(s.Name.String()))

	q.Unsafe(`, status = `)
	q.Param(string(s.Status))

	q.Unsafe(`, subscribed_at = `)
	q.Param(s.SubscribedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(s.ID)

	stmt, params, err := q.Get()
	if err != nil {
		return err
	}

	result, err := ef(stmt, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("subscriber not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectSubscribers(q *db.Query, qf queryFunc, f *subscription.SubscriberFilter) ([]subscription.Subscriber, error) {
	q.Unsafe(`SELECT id, email_encrypted, name_encrypted, status, subscribed_at FROM subscribers WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email_blind_index IN (`)
		for i, addr := range f.Emails {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.ParamBlindIndex([]byte(addr.String()))
		}
		q.Unsafe(`) `)
	}

	if len(f.Statuses) > 0 {
		q.Unsafe(`AND status IN (`)
		statuses := make([]any, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q.Params(statuses...)
		q.Unsafe(`) `)
	}

	q.Unsafe(`ORDER BY subscribed_at ASC`)

	stmt, params, err := q.Get()
	if err != nil {
		return nil, err
	}

	rows, err := qf(stmt, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]subscription.Subscriber, 0)
	for rows.Next() {
		var s subscription.Subscriber
		emailBytes := q.DecryptionTarget()
		nameBytes := q.DecryptionTarget()
		var status string
		err := rows.Scan(&s.ID, emailBytes, nameBytes, &status, &s.SubscribedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		err = s.Email.UnmarshalText(emailBytes.Data)
		if err != nil {
			return nil, fmt.Errorf("stored email failed to parse: %w", err)
		}

		err = s.Name.UnmarshalText(nameBytes.Data)
		if err != nil {
			return nil, fmt.Errorf("stored name failed to parse: %w", err)
		}

		s.Status = subscription.Status(status)

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertToken(q *db.Query, ef execFunc, t *subscription.Token) error {
	if t.SubscriberID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO subscription_tokens (token, subscriber_id, created_at) VALUES (`)
	q.Params(t.Token.String(), t.SubscriberID, t.CreatedAt)
	q.Unsafe(`)`)

	stmt, params, err := q.Get()
	if err != nil {
		return err
	}

	_, err = ef(stmt, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func selectSubscriberIDForToken(q *db.Query, qf queryFunc, token krypto.Token) (uuid.UUID, error) {
	q.Unsafe(`SELECT subscriber_id FROM subscription_tokens WHERE token = `)
	q.Param(token.String())

	stmt, params, err := q.Get()
	if err != nil {
		return uuid.Nil, err
	}

	rows, err := qf(stmt, params...)
	if err != nil {
		return uuid.Nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return uuid.Nil, errorz.MapDBErr(err)
		}
		return uuid.Nil, fmt.Errorf("token not found: %w", errorz.ErrNotFound)
	}

	var id uuid.UUID
	if err := rows.Scan(&id); err != nil {
		return uuid.Nil, errorz.MapDBErr(err)
	}

	return id, nil
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}

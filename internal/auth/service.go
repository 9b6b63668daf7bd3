package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/errorz"
	"github.com/letterdrop/letterdrop/internal/krypto"
)

// ErrInvalidCredentials is returned for every failed authentication
// attempt. Callers never learn whether the username or the password
// was wrong, that distinction would enable user enumeration.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service provides the main rules for authentication.
type Service struct {
	store    Store
	verifier *Verifier

	// comparisonHash is used to compare passwords when no user was found.
	// It is derived from a throwaway input with the same parameters as
	// real password hashes, so verifying against it costs the same.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, verifier *Verifier) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate comparison hash input: %w", err)
	}

	hash, err := krypto.HashArgon2([]byte(tok.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to hash comparison hash input: %w", err)
	}

	return &Service{
		store:          s,
		verifier:       verifier,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}, nil
}

// Authenticate checks the provided credentials and returns the id of
// the matching user.
//
// Whether or not the username exists, the same verification path runs
// against either the real hash or the comparison hash. An attacker can
// therefore not distinguish an unknown username from a wrong password,
// by timing or by response shape.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (uuid.UUID, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{
		Usernames: []string{c.Username},
	})
	if err != nil {
		return uuid.Nil, err
	}

	userID := uuid.Nil
	hash := s.comparisonHash

	if len(users) == 1 {
		userID = users[0].ID
		hash = users[0].PasswordHash
	}

	match, err := s.verifier.Match(ctx, c.Password, hash)
	if err != nil {
		return uuid.Nil, err
	}

	if !match || userID == uuid.Nil {
		return uuid.Nil, ErrInvalidCredentials
	}

	return userID, nil
}

// ChangePassword rehashes and stores a new password for the user.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword Password) error {
	hash, err := s.verifier.Hash(ctx, newPassword)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		users, err := tx.FindUsers(&UserFilter{
			IDs: []uuid.UUID{userID},
		})
		if err != nil {
			return err
		}

		if len(users) != 1 {
			return errorz.ErrNotFound
		}

		users[0].PasswordHash = hash
		users[0].UpdatedAt = s.NowFunc()

		return tx.UpdateUser(&users[0])
	})
}

// CreateUser creates a new admin user with the provided credentials.
func (s *Service) CreateUser(ctx context.Context, c Credentials) (uuid.UUID, error) {
	if c.Username == "" {
		return uuid.Nil, errorz.InvalidInput{errors.New("username must not be empty")}
	}

	hash, err := s.verifier.Hash(ctx, c.Password)
	if err != nil {
		return uuid.Nil, err
	}

	now := s.NowFunc()
	user := User{
		ID:           uuid.New(),
		Username:     c.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		return tx.CreateUser(&user)
	})
	if err != nil {
		return uuid.Nil, err
	}

	return user.ID, nil
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

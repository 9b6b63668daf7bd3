package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/letterdrop/letterdrop/internal/auth"
	"github.com/letterdrop/letterdrop/internal/auth/db"
	"github.com/letterdrop/letterdrop/internal/db/testdb"
	"github.com/letterdrop/letterdrop/internal/errorz"
	"github.com/letterdrop/letterdrop/internal/errorz/testerr"
	"github.com/letterdrop/letterdrop/internal/krypto"
)

func Test_Service_Authenticate(t *testing.T) {
	t.Run("ok, right credentials", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, userID := st.createUser()

		gotID, err := st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		if gotID != userID {
			t.Errorf("expected user id %s, got %s", userID, gotID)
		}
	})

	t.Run("fail, wrong password", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.createUser()

		credentials.Password = must(auth.ParsePassword("wrongPassword1"))

		_, err := st.svc.Authenticate(context.Background(), credentials)
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrInvalidCredentials, err)
		}
	})

	t.Run("fail, unknown username", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.createUser()

		credentials.Username = "someone-else"

		_, err := st.svc.Authenticate(context.Background(), credentials)
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrInvalidCredentials, err)
		}
	})

	t.Run("fail, unknown username and wrong password report the same error", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.createUser()

		wrongPwd := credentials
		wrongPwd.Password = must(auth.ParsePassword("wrongPassword1"))
		_, errWrongPwd := st.svc.Authenticate(context.Background(), wrongPwd)

		unknownUser := credentials
		unknownUser.Username = "someone-else"
		_, errUnknownUser := st.svc.Authenticate(context.Background(), unknownUser)

		// A different error per cause would let attackers probe which
		// usernames exist.
		if errWrongPwd == nil || errWrongPwd.Error() != errUnknownUser.Error() {
			t.Fatalf("expected identical errors, got %v and %v", errWrongPwd, errUnknownUser)
		}
	})

	t.Run("fail, store fails", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.createUser()

		failingDeps := testerr.NewFailingDeps(testerr.Err, 1)
		st.store.tracker = &failingDeps[0]

		_, err := st.svc.Authenticate(context.Background(), credentials)
		if !errors.Is(err, testerr.Err) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
		}
	})
}

func Test_Service_ChangePassword(t *testing.T) {
	t.Run("ok, change password", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, userID := st.createUser()

		newPassword := must(auth.ParsePassword("evenStrongerPassword1"))

		err := st.svc.ChangePassword(context.Background(), userID, newPassword)
		if err != nil {
			t.Fatalf("failed to change password: %v", err)
		}

		// The old password no longer works.
		_, err = st.svc.Authenticate(context.Background(), credentials)
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrInvalidCredentials, err)
		}

		// The new one does.
		credentials.Password = newPassword
		gotID, err := st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to authenticate with new password: %v", err)
		}

		if gotID != userID {
			t.Errorf("expected user id %s, got %s", userID, gotID)
		}
	})

	t.Run("fail, unknown user", func(t *testing.T) {
		st := newServiceTest(t)
		st.createUser()

		newPassword := must(auth.ParsePassword("evenStrongerPassword1"))

		err := st.svc.ChangePassword(context.Background(), uuid.New(), newPassword)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})

	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 4) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			_, userID := st.createUser()
			st.store.tracker = &tracker

			newPassword := must(auth.ParsePassword("evenStrongerPassword1"))

			err := st.svc.ChangePassword(context.Background(), userID, newPassword)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
			}
		})
	}
}

func Test_Service_CreateUser(t *testing.T) {
	t.Run("ok, create user", func(t *testing.T) {
		st := newServiceTest(t)

		credentials := auth.Credentials{
			Username: "admin",
			Password: must(auth.ParsePassword("reallyStrongPassword1")),
		}

		userID, err := st.svc.CreateUser(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if userID == uuid.Nil {
			t.Errorf("expected a non-zero user id")
		}
	})

	t.Run("fail, empty username", func(t *testing.T) {
		st := newServiceTest(t)

		credentials := auth.Credentials{
			Username: "",
			Password: must(auth.ParsePassword("reallyStrongPassword1")),
		}

		_, err := st.svc.CreateUser(context.Background(), credentials)

		var invalidInput errorz.InvalidInput
		if !errors.As(err, &invalidInput) {
			t.Fatalf("expected an %T error, got %v", invalidInput, err)
		}
	})

	t.Run("fail, duplicate username", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.createUser()

		_, err := st.svc.CreateUser(context.Background(), credentials)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})
}

type svcTest struct {
	t     *testing.T
	svc   *auth.Service
	store *testStore
}

func newServiceTest(t *testing.T) *svcTest {
	encryptor := must(krypto.NewEncryptor([]krypto.Key{
		must(krypto.ParseKey("2b671594b775f371eab4050b4d58326682df6b1a6cc2e886717b1a26b4d6c45d")),
	}))

	indexKey := must(krypto.ParseKey("90303dfed7994260ea4817a5ca8a392915cd401115b2f97495dadfcbcd14adbf"))

	testDB := testdb.RunWhile(t, true)
	test := &svcTest{
		t: t,
		store: &testStore{
			store:   db.New(testDB, encryptor, indexKey),
			tracker: &testerr.FailingDep{}, // the zero value never fails.
		},
	}

	verifier := must(auth.NewVerifier(2))

	svc, err := auth.NewService(test.store, verifier)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	test.svc = svc

	return test
}

func (st *svcTest) createUser() (auth.Credentials, uuid.UUID) {
	st.t.Helper()

	credentials := auth.Credentials{
		Username: "admin",
		Password: must(auth.ParsePassword("reallyStrongPassword1")),
	}

	userID, err := st.svc.CreateUser(context.Background(), credentials)
	if err != nil {
		st.t.Fatalf("failed to create user: %v", err)
	}

	return credentials, userID
}

// testStore wraps a real store but uses a testerr.FailingDep to
// possibly fail on certain method calls.
type testStore struct {
	store   auth.Store
	tracker *testerr.FailingDep
}

func (f *testStore) BeginTx(ctx context.Context) (auth.Tx, error) {
	return testerr.MaybeFail(f.tracker, func() (auth.Tx, error) {
		realTx, err := f.store.BeginTx(ctx)
		return &testTx{
			store: f,
			tx:    realTx,
		}, err
	})
}

func (f *testStore) FindUsers(ctx context.Context, filter *auth.UserFilter) ([]auth.User, error) {
	return testerr.MaybeFail(f.tracker, func() ([]auth.User, error) {
		return f.store.FindUsers(ctx, filter)
	})
}

type testTx struct {
	store *testStore
	tx    auth.Tx
}

func (tx *testTx) Commit() error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.Commit()
	})
}

func (tx *testTx) Rollback() error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.Rollback()
	})
}

func (tx *testTx) CreateUser(u *auth.User) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.CreateUser(u)
	})
}

func (tx *testTx) UpdateUser(u *auth.User) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.UpdateUser(u)
	})
}

func (tx *testTx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return testerr.MaybeFail(tx.store.tracker, func() ([]auth.User, error) {
		return tx.tx.FindUsers(filter)
	})
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}

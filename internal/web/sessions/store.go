package sessions

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const CookieName = "ld-session"

// Store wraps a gorilla session store. All letterdrop sessions live
// under a single cookie name.
type Store struct {
	store sessions.Store
}

func NewStore(store sessions.Store) *Store {
	return &Store{store: store}
}

func (s *Store) Get(r *http.Request) (*Session, error) {
	base, err := s.store.Get(r, CookieName)
	if err != nil {
		if base == nil {
			return nil, err
		}

		// A tampered or undecodable cookie is treated as no session,
		// gorilla already handed us a fresh one to replace it.
	}

	return &Session{base: base}, nil
}

func (s *Store) Save(r *http.Request, w http.ResponseWriter, sess *Session) error {
	err := s.store.Save(r, w, sess.base)
	if err != nil {
		return err
	}

	sess.needsSave = false
	return nil
}

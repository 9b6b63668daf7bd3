package sessions

import (
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// Session wraps a gorilla session with an explicit contract for the
// values we store in it.
type Session struct {
	base      *sessions.Session
	needsSave bool
}

func (s *Session) NeedsSave() bool {
	return s.needsSave
}

func (s *Session) UserID() (uuid.UUID, bool) {
	raw, ok := s.base.Values["userID"].(string)
	if !ok {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}

func (s *Session) SetUserID(userID uuid.UUID) {
	s.needsSave = true
	s.base.Values["userID"] = userID.String()
}

func (s *Session) DeleteUserID() {
	s.needsSave = true
	delete(s.base.Values, "userID")
}

// Renew drops all values from the session. Called before a privilege
// change (login) so that nothing set in the anonymous session carries
// over into the authenticated one.
func (s *Session) Renew() {
	s.needsSave = true
	s.base.Values = make(map[any]any)
}

// Destroy marks the session cookie for deletion.
func (s *Session) Destroy() {
	s.needsSave = true
	s.base.Values = make(map[any]any)
	s.base.Options.MaxAge = -1
}

func (s *Session) AddFlash(flash any, vars ...string) {
	s.needsSave = true
	s.base.AddFlash(flash, vars...)
}

// ConsumeFlashes returns the flashes and removes them from the session.
func (s *Session) ConsumeFlashes() []any {
	flashes := s.base.Flashes()
	if len(flashes) > 0 {
		s.needsSave = true
	}

	return flashes
}

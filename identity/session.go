package identity

import (
	"sync"

	"github.com/apex/log"

	"github.com/krisalay/storekit/api"
)

/*
Session is the identity provider an application owns: it signs a user in
and out, and the typed value store reads the current id from it.

The zero value is a signed-out session ready to use.
*/
type Session struct {
	mu sync.RWMutex
	id string
}

// NewSession returns a session signed in as id, or signed out when id is empty.
func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) Identity() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.id, s.id != ""
}

// SignIn makes id the current identity. An empty id signs out.
func (s *Session) SignIn(id string) {
	s.mu.Lock()
	prev := s.id
	s.id = id
	s.mu.Unlock()

	if prev != id {
		log.WithFields(log.Fields{"from": prev, "to": id}).Debug("identity changed")
	}
}

func (s *Session) SignOut() { s.SignIn("") }

// Static is a fixed identity. The empty Static is signed out.
type Static string

func (s Static) Identity() (string, bool) { return string(s), s != "" }

var (
	_ api.IdentityProvider = (*Session)(nil)
	_ api.IdentityProvider = Static("")
)

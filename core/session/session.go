// Package session holds the signed-in user of each client, with its navigation state.
package session

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/user"
)

type View string

const (
	ViewLibrary   View = "library"
	ViewDashboard View = "dashboard"
)

var (
	// errors
	ErrNoUser      = errors.New("not signed in")
	ErrInvalidView = errors.New("unknown view")
)

// Session holds at most one current user. Readers never observe a partially signed-in user.
type Session struct {
	ID string

	mu         sync.RWMutex
	usr        *user.User
	view       View
	magazineID string
	reader     *reader.Reader
}

func New() *Session {
	return &Session{ID: core.NewID("s"), view: ViewLibrary}
}

// SignIn makes usr the current user, replacing any previous one.
func (s *Session) SignIn(usr user.User) {
	s.mu.Lock()
	prev := s.usr
	s.usr = &usr
	var rd *reader.Reader
	if prev != nil && prev.ID != usr.ID {
		rd = s.resetLocked()
	}
	s.mu.Unlock()

	if rd != nil {
		rd.Close()
	}
}

// SignOut clears the current user and resets navigation.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.usr = nil
	rd := s.resetLocked()
	s.mu.Unlock()

	if rd != nil {
		rd.Close()
	}
}

// resetLocked must be called with s.mu held. It returns the reader to close.
func (s *Session) resetLocked() *reader.Reader {
	rd := s.reader
	s.reader = nil
	s.magazineID = ""
	s.view = ViewLibrary
	return rd
}

func (s *Session) User() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usr == nil {
		return user.User{}, false
	}
	return *s.usr, true
}

// Navigate switches the active view. Only teachers & editors have a dashboard.
func (s *Session) Navigate(view View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usr == nil {
		return ErrNoUser
	}
	switch view {
	case ViewLibrary:
	case ViewDashboard:
		if s.usr.IsStudent() {
			return core.ErrForbidden
		}
	default:
		return ErrInvalidView
	}
	s.view = view
	return nil
}

// SelectMagazine records the magazine picked in the current view ("" to clear it).
func (s *Session) SelectMagazine(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usr == nil {
		return ErrNoUser
	}
	s.magazineID = id
	return nil
}

// OpenReader installs rd as the session reader, closing the previous one.
func (s *Session) OpenReader(rd *reader.Reader) error {
	s.mu.Lock()
	if s.usr == nil {
		s.mu.Unlock()
		rd.Close()
		return ErrNoUser
	}
	prev := s.reader
	s.reader = rd
	s.magazineID = rd.Magazine().ID
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return nil
}

func (s *Session) Reader() (*reader.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader, s.reader != nil
}

func (s *Session) CloseReader() {
	s.mu.Lock()
	rd := s.reader
	s.reader = nil
	s.mu.Unlock()

	if rd != nil {
		rd.Close()
	}
}

// State is a point in time view of a Session.
type State struct {
	ID         string         `json:"id"`
	User       *user.User     `json:"user"`
	View       View           `json:"view"`
	MagazineID string         `json:"magazineId,omitempty"`
	Reader     *reader.Status `json:"reader,omitempty"`
}

func (s *Session) State() State {
	s.mu.RLock()
	st := State{ID: s.ID, View: s.view, MagazineID: s.magazineID}
	if s.usr != nil {
		usr := *s.usr
		st.User = &usr
	}
	rd := s.reader
	s.mu.RUnlock()

	if rd != nil {
		status := rd.Status()
		st.Reader = &status
	}
	return st
}

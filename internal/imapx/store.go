package imapx

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/smsvault/smsvault/internal/category"
	"go.uber.org/zap"
)

// folderKey caches folders per category, not just per mailbox: categories can
// share a mailbox (text and multimedia both default to SMS) while needing
// different search queries.
type folderKey struct {
	t    category.Type
	name string
}

// Store manages the remote folders of one authenticated session. Folders are
// opened (and created if missing) on first use and cached.
type Store struct {
	session  Session
	folders  map[folderKey]*Folder
	selected string
	logger   *zap.Logger
}

// NewStore wraps an authenticated session.
func NewStore(session Session, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		session: session,
		folders: make(map[folderKey]*Folder),
		logger:  logger,
	}
}

// Folder opens the named mailbox for a category, creating it when it does
// not exist yet.
func (s *Store) Folder(t category.Type, name string) (*Folder, error) {
	key := folderKey{t: t, name: name}
	if f, ok := s.folders[key]; ok {
		return f, nil
	}
	if err := s.selectFolder(name); err != nil {
		s.logger.Info("creating folder", zap.String("folder", name))
		if err := s.session.Create(name); err != nil {
			return nil, fmt.Errorf("create folder %s: %w", name, err)
		}
		if err := s.selectFolder(name); err != nil {
			return nil, fmt.Errorf("open folder %s: %w", name, err)
		}
	}
	f := &Folder{store: s, name: name, t: t, logger: s.logger}
	s.folders[key] = f
	return f, nil
}

func (s *Store) selectFolder(name string) error {
	if _, err := s.session.Select(name, false); err != nil {
		s.selected = ""
		return err
	}
	s.selected = name
	return nil
}

// ensureSelected re-selects a mailbox before search or fetch, since those
// commands act on the session's current selection.
func (s *Store) ensureSelected(name string) error {
	if s.selected == name {
		return nil
	}
	return s.selectFolder(name)
}

// Close logs out of the session.
func (s *Store) Close() error {
	return s.session.Logout()
}

// MaskURI hides the password portion of a store URI for log output.
func MaskURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if pass, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), strings.Repeat("X", len(pass)))
	}
	return u.String()
}

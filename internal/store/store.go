// Package store keeps users and groups in two JSON files.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingField       = errors.New("missing required field")
	ErrGroupNameRequired  = errors.New("group name is required")
	ErrGroupExists        = errors.New("group name already taken")
	ErrGroupNotFound      = errors.New("group not found")
)

// FileStore implements core.Storage on top of a users file and a groups file.
// Both are read once by Open and rewritten in full on every change.
type FileStore struct {
	usersPath  string
	groupsPath string

	mu     sync.Mutex
	users  []core.User
	groups []core.Group
}

var _ core.Storage = (*FileStore)(nil)

// Open loads both files. Missing or empty files start an empty store.
func Open(usersPath, groupsPath string) (*FileStore, error) {
	s := &FileStore{usersPath: usersPath, groupsPath: groupsPath}

	if err := readJSON(usersPath, &s.users); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if err := readJSON(groupsPath, &s.groups); err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	return s, nil
}

func (s *FileStore) Register(_ context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("%w: username, email and password are required", ErrMissingField)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return ErrEmailTaken
		}
		if u.Username == username {
			return ErrUsernameTaken
		}
	}

	users := append(slices.Clone(s.users), core.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Events:       []freetime.BusyEvent{},
	})
	return s.saveUsers(users)
}

func (s *FileStore) Authenticate(_ context.Context, username, password string) (core.User, error) {
	s.mu.Lock()
	idx := s.userIndex(username)
	var u core.User
	if idx >= 0 {
		u = s.users[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		return core.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return cloneUser(u), nil
}

func (s *FileStore) User(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.userIndex(username)
	if idx < 0 {
		return core.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return cloneUser(s.users[idx]), nil
}

func (s *FileStore) AppendEvents(_ context.Context, username string, events []freetime.BusyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.userIndex(username)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	users := slices.Clone(s.users)
	users[idx].Events = append(slices.Clone(users[idx].Events), events...)
	return s.saveUsers(users)
}

func (s *FileStore) SetFreeTime(_ context.Context, username string, free []freetime.FreeInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.userIndex(username)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	users := slices.Clone(s.users)
	users[idx].FreeTime = slices.Clone(free)
	return s.saveUsers(users)
}

func (s *FileStore) CreateGroup(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrGroupNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groupIndex(name) >= 0 {
		return ErrGroupExists
	}
	groups := append(slices.Clone(s.groups), core.Group{Name: name, Users: []string{}})
	return s.saveGroups(groups)
}

// AddGroupMember adds username to group. Adding an existing member is a no-op.
func (s *FileStore) AddGroupMember(_ context.Context, group, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.groupIndex(group)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrMissingField)
	}
	if slices.Contains(s.groups[idx].Users, username) {
		return nil
	}
	groups := slices.Clone(s.groups)
	groups[idx].Users = append(slices.Clone(groups[idx].Users), username)
	return s.saveGroups(groups)
}

func (s *FileStore) Groups(_ context.Context) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = core.Group{Name: g.Name, Users: slices.Clone(g.Users)}
	}
	return out, nil
}

func (s *FileStore) userIndex(username string) int {
	return slices.IndexFunc(s.users, func(u core.User) bool { return u.Username == username })
}

func (s *FileStore) groupIndex(name string) int {
	return slices.IndexFunc(s.groups, func(g core.Group) bool { return g.Name == name })
}

// saveUsers writes users and only then makes them current, so a failed write
// leaves memory matching the file.
func (s *FileStore) saveUsers(users []core.User) error {
	if err := writeJSON(s.usersPath, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	s.users = users
	return nil
}

func (s *FileStore) saveGroups(groups []core.Group) error {
	if err := writeJSON(s.groupsPath, groups); err != nil {
		return fmt.Errorf("save groups: %w", err)
	}
	s.groups = groups
	return nil
}

func cloneUser(u core.User) core.User {
	u.Events = slices.Clone(u.Events)
	u.FreeTime = slices.Clone(u.FreeTime)
	return u
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// writeJSON replaces path atomically so a crash never leaves half a file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

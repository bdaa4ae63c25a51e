package core

import (
	"context"

	"github.com/theakshaypant/gaps/internal/freetime"
)

// User is a registered account and the last results computed for it.
type User struct {
	Username     string                  `json:"username"`
	Email        string                  `json:"email"`
	PasswordHash string                  `json:"passwordHash"`
	Events       []freetime.BusyEvent    `json:"events"`
	FreeTime     []freetime.FreeInterval `json:"freeTime,omitempty"`
}

// Group is a named set of usernames.
type Group struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

// Storage persists users, groups and the free time computed for users.
type Storage interface {
	Register(ctx context.Context, username, email, password string) error
	// Authenticate returns the user when the password matches.
	Authenticate(ctx context.Context, username, password string) (User, error)
	User(ctx context.Context, username string) (User, error)
	// AppendEvents adds fetched busy events to the user's stored events.
	AppendEvents(ctx context.Context, username string, events []freetime.BusyEvent) error
	// SetFreeTime replaces the user's last computed free time.
	SetFreeTime(ctx context.Context, username string, free []freetime.FreeInterval) error

	CreateGroup(ctx context.Context, name string) error
	AddGroupMember(ctx context.Context, group, username string) error
	Groups(ctx context.Context) ([]Group, error)
}

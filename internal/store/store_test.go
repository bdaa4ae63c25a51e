package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakshaypant/gaps/internal/freetime"
)

func openTemp(t *testing.T) (*FileStore, string, string) {
	t.Helper()
	dir := t.TempDir()
	users := filepath.Join(dir, "users.json")
	groups := filepath.Join(dir, "groups.json")

	s, err := Open(users, groups)
	require.NoError(t, err)
	return s, users, groups
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s, usersPath, groupsPath := openTemp(t)

	require.NoError(t, s.Register(ctx, "dana", "dana@example.com", "hunter2"))

	assert.ErrorIs(t, s.Register(ctx, "other", "DANA@example.com", "x"), ErrEmailTaken)
	assert.ErrorIs(t, s.Register(ctx, "dana", "dana2@example.com", "x"), ErrUsernameTaken)
	assert.ErrorIs(t, s.Register(ctx, "", "e@example.com", "x"), ErrMissingField)

	u, err := s.Authenticate(ctx, "dana", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", u.Email)
	assert.NotEqual(t, "hunter2", u.PasswordHash)

	_, err = s.Authenticate(ctx, "dana", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// A fresh store sees what the first one wrote.
	reopened, err := Open(usersPath, groupsPath)
	require.NoError(t, err)
	_, err = reopened.Authenticate(ctx, "dana", "hunter2")
	assert.NoError(t, err)
}

func TestEventsAndFreeTime(t *testing.T) {
	ctx := context.Background()
	s, usersPath, groupsPath := openTemp(t)
	require.NoError(t, s.Register(ctx, "dana", "dana@example.com", "pw"))

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	events := []freetime.BusyEvent{{Start: start, End: start.Add(time.Hour)}}
	require.NoError(t, s.AppendEvents(ctx, "dana", events))
	require.NoError(t, s.AppendEvents(ctx, "dana", events))

	free := []freetime.FreeInterval{{Start: start.Add(-3 * time.Hour), End: start, Duration: 180}}
	require.NoError(t, s.SetFreeTime(ctx, "dana", free))

	assert.ErrorIs(t, s.AppendEvents(ctx, "ghost", events), ErrUserNotFound)
	assert.ErrorIs(t, s.SetFreeTime(ctx, "ghost", free), ErrUserNotFound)

	reopened, err := Open(usersPath, groupsPath)
	require.NoError(t, err)
	u, err := reopened.User(ctx, "dana")
	require.NoError(t, err)
	require.Len(t, u.Events, 2)
	assert.True(t, u.Events[0].Start.Equal(start))
	require.Len(t, u.FreeTime, 1)
	assert.Equal(t, 180, u.FreeTime[0].Duration)

	_, err = reopened.User(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTemp(t)
	require.NoError(t, s.Register(ctx, "dana", "dana@example.com", "pw"))
	require.NoError(t, s.AppendEvents(ctx, "dana", []freetime.BusyEvent{{}}))

	u, err := s.User(ctx, "dana")
	require.NoError(t, err)
	u.Events[0].Start = time.Now()

	again, err := s.User(ctx, "dana")
	require.NoError(t, err)
	assert.True(t, again.Events[0].Start.IsZero())
}

func TestGroups(t *testing.T) {
	ctx := context.Background()
	s, usersPath, groupsPath := openTemp(t)

	require.NoError(t, s.CreateGroup(ctx, "climbers"))
	assert.ErrorIs(t, s.CreateGroup(ctx, "climbers"), ErrGroupExists)
	assert.ErrorIs(t, s.CreateGroup(ctx, "  "), ErrGroupNameRequired)

	require.NoError(t, s.AddGroupMember(ctx, "climbers", "dana"))
	require.NoError(t, s.AddGroupMember(ctx, "climbers", "dana"))
	require.NoError(t, s.AddGroupMember(ctx, "climbers", "eli"))
	assert.ErrorIs(t, s.AddGroupMember(ctx, "divers", "dana"), ErrGroupNotFound)
	assert.ErrorIs(t, s.AddGroupMember(ctx, "climbers", ""), ErrMissingField)

	reopened, err := Open(usersPath, groupsPath)
	require.NoError(t, err)
	groups, err := reopened.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"dana", "eli"}, groups[0].Users)
}

func TestOpen_LegacyUsersFile(t *testing.T) {
	dir := t.TempDir()
	users := filepath.Join(dir, "users.json")
	legacy := `[{"username": "old", "email": "old@example.com", "events": [
		{"start": {"dateTime": "2026-03-02T10:00:00+02:00"}, "end": {"dateTime": "2026-03-02T11:00:00+02:00"}},
		{"start": {"date": "2026-03-03"}, "end": {"date": "2026-03-04"}}
	]}]`
	require.NoError(t, os.WriteFile(users, []byte(legacy), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "groups.json"), nil, 0o644))

	s, err := Open(users, filepath.Join(dir, "groups.json"))
	require.NoError(t, err)

	u, err := s.User(context.Background(), "old")
	require.NoError(t, err)
	require.Len(t, u.Events, 2)
	assert.Equal(t, 10, u.Events[0].Start.Hour())
	assert.True(t, u.Events[1].Start.IsZero())
}

func TestOpen_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	users := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(users, []byte("{nope"), 0o644))

	_, err := Open(users, filepath.Join(dir, "groups.json"))
	assert.Error(t, err)
}

// blockPath turns path into a non-empty directory so writes to it fail.
func blockPath(t *testing.T, path string) func() {
	t.Helper()
	_ = os.Remove(path)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "x"), 0o755))
	return func() { require.NoError(t, os.RemoveAll(path)) }
}

func TestFailedWriteLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	s, usersPath, groupsPath := openTemp(t)
	require.NoError(t, s.Register(ctx, "dana", "dana@example.com", "pw"))
	require.NoError(t, s.CreateGroup(ctx, "climbers"))

	unblockUsers := blockPath(t, usersPath)
	unblockGroups := blockPath(t, groupsPath)

	assert.Error(t, s.Register(ctx, "eli", "eli@example.com", "pw"))
	_, err := s.User(ctx, "eli")
	assert.ErrorIs(t, err, ErrUserNotFound)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.Error(t, s.AppendEvents(ctx, "dana", []freetime.BusyEvent{{Start: start, End: start.Add(time.Hour)}}))
	assert.Error(t, s.SetFreeTime(ctx, "dana", []freetime.FreeInterval{{Start: start, End: start, Duration: 1}}))
	u, err := s.User(ctx, "dana")
	require.NoError(t, err)
	assert.Empty(t, u.Events)
	assert.Empty(t, u.FreeTime)

	assert.Error(t, s.CreateGroup(ctx, "divers"))
	assert.Error(t, s.AddGroupMember(ctx, "climbers", "dana"))
	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].Users)

	// Once the files are writable again the rejected changes go through.
	unblockUsers()
	unblockGroups()
	require.NoError(t, s.Register(ctx, "eli", "eli@example.com", "pw"))
	require.NoError(t, s.CreateGroup(ctx, "divers"))
}

package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

func TestSession_Navigate(t *testing.T) {
	student := user.User{ID: "s", Role: user.RoleStudent, IsApproved: true}
	teacher := user.User{ID: "t", Role: user.RoleTeacher, IsApproved: true}

	s := session.New()
	assert.Equal(t, session.ErrNoUser, s.Navigate(session.ViewDashboard))
	assert.Equal(t, session.ErrNoUser, s.SelectMagazine("mag-1"))

	s.SignIn(student)
	assert.Equal(t, core.ErrForbidden, s.Navigate(session.ViewDashboard))
	assert.Equal(t, session.ErrInvalidView, s.Navigate("lol"))
	assert.NoError(t, s.Navigate(session.ViewLibrary))

	s.SignIn(teacher)
	require.NoError(t, s.Navigate(session.ViewDashboard))
	require.NoError(t, s.SelectMagazine("mag-1"))

	st := s.State()
	assert.Equal(t, session.ViewDashboard, st.View)
	assert.Equal(t, "mag-1", st.MagazineID)
	require.NotNil(t, st.User)
	assert.Equal(t, "t", st.User.ID)

	// refreshing the same user keeps the navigation
	teacher.Name = "Renamed"
	s.SignIn(teacher)
	st = s.State()
	assert.Equal(t, session.ViewDashboard, st.View)
	assert.Equal(t, "Renamed", st.User.Name)

	s.SignOut()
	st = s.State()
	assert.Nil(t, st.User)
	assert.Equal(t, session.ViewLibrary, st.View)
	assert.Empty(t, st.MagazineID)
	_, ok := s.User()
	assert.False(t, ok)
}

func TestSession_Reader(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "", user.RoleStudent, "cls-1", true)
	mag1 := testutil.CreateMagazine(t, env.MagazineRepo, "Lição 1", "cls-1", "", 2, "")
	mag2 := testutil.CreateMagazine(t, env.MagazineRepo, "Lição 2", "cls-1", "", 2, "")

	s := session.New()
	rd, err := env.Reader.Open(ctx, student, mag1.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ErrNoUser, s.OpenReader(rd))
	assert.Equal(t, reader.StateClosed, rd.State())

	s.SignIn(student)
	first, err := env.Reader.Open(ctx, student, mag1.ID)
	require.NoError(t, err)
	require.NoError(t, s.OpenReader(first))
	assert.Equal(t, mag1.ID, s.State().MagazineID)

	// opening another magazine closes the previous reader
	second, err := env.Reader.Open(ctx, student, mag2.ID)
	require.NoError(t, err)
	require.NoError(t, s.OpenReader(second))
	assert.Equal(t, reader.StateClosed, first.State())

	st := s.State()
	require.NotNil(t, st.Reader)
	assert.Equal(t, mag2.ID, st.Reader.MagazineID)

	// switching user resets the session
	s.SignIn(other)
	_, ok := s.Reader()
	assert.False(t, ok)
	assert.Equal(t, reader.StateClosed, second.State())
	assert.Empty(t, s.State().MagazineID)
}

func TestManager(t *testing.T) {
	m := session.NewManager()
	defer m.Close()

	alice := user.User{ID: "u1", Name: "Alice", Role: user.RoleStudent, IsApproved: true}
	bob := user.User{ID: "u2", Name: "Bob", Role: user.RoleStudent, IsApproved: true}

	s1 := m.Start(alice)
	s2 := m.Start(bob)
	assert.NotEqual(t, s1.ID, s2.ID)

	got, err := m.Get(s1.ID)
	require.NoError(t, err)
	assert.Same(t, s1, got)
	_, err = m.Get("lol")
	assert.Equal(t, session.ErrNotFound, err)

	m.Refresh(func(id string) (user.User, error) {
		if id == alice.ID {
			renamed := alice
			renamed.Name = "Alice B."
			return renamed, nil
		}
		return user.User{}, user.ErrNotFound
	})

	usr, ok := s1.User()
	require.True(t, ok)
	assert.Equal(t, "Alice B.", usr.Name)

	_, err = m.Get(s2.ID)
	assert.Equal(t, session.ErrNotFound, err)
	_, ok = s2.User()
	assert.False(t, ok)

	m.End(s1.ID)
	assert.Empty(t, m.All())
}

func TestResolver_Resolve(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	resolver := session.NewResolver(env.Users, nil, env.Logger)

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)

	usr, ok := resolver.Resolve(ctx, session.Identity{UID: student.ID, Email: "hero@ebd.com"})
	require.True(t, ok)
	assert.Equal(t, "Hero", usr.Name)

	_, ok = resolver.Resolve(ctx, session.Identity{UID: "stranger", Email: "stranger@ebd.com"})
	assert.False(t, ok)

	// the bootstrap email becomes the default editor, persisted once
	usr, ok = resolver.Resolve(ctx, session.Identity{UID: "fb-uid", Email: " Editor@EBD.com "})
	require.True(t, ok)
	assert.True(t, usr.IsEditor())
	assert.Equal(t, "editor@ebd.com", usr.Email)
	createdAt := usr.CreatedAt

	again, ok := resolver.Resolve(ctx, session.Identity{UID: "fb-uid", Email: "editor@ebd.com"})
	require.True(t, ok)
	assert.Equal(t, createdAt, again.CreatedAt)

	editors := 0
	for _, u := range env.Users.QueryAll() {
		if u.IsEditor() {
			editors++
		}
	}
	assert.Equal(t, 1, editors)
}

func TestResolver_Resolve_lateSnapshots(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithLateSnapshots())
	ctx := context.Background()
	resolver := session.NewResolver(env.Users, nil, env.Logger)

	usr, ok := resolver.Resolve(ctx, session.Identity{UID: "fb-uid", Email: "editor@ebd.com"})
	require.True(t, ok)

	// the mirror misses the new editor, the remote database has it
	_, err := env.Users.GetByID(usr.ID)
	require.Equal(t, user.ErrNotFound, err)
	current, err := env.Users.Current(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, current.IsEditor())

	m := session.NewManager()
	defer m.Close()
	sess := m.Start(usr)
	lookup := func(id string) (user.User, error) { return env.Users.Current(ctx, id) }

	m.Refresh(lookup)
	_, err = m.Get(sess.ID)
	assert.NoError(t, err)

	require.NoError(t, env.DB.Delete(ctx, core.CollUsers, usr.ID))
	_, err = env.Users.Current(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, err)
	m.Refresh(lookup)
	_, err = m.Get(sess.ID)
	assert.Equal(t, session.ErrNotFound, err)
}

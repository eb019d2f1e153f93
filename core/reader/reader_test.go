package reader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/response"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

func ready(t *testing.T, rd *reader.Reader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rd.Ready(ctx))
}

func TestService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("pre-rendered pages", func(t *testing.T) {
		renderer := &testutil.Renderer{Pages: 5}
		env := testutil.NewEnv(t, testutil.WithRenderer(renderer))
		student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
		mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-1", "https://ebd.com/1.pdf", 2, "https://ebd.com/page.png")

		rd, err := env.Reader.Open(ctx, student, mag.ID)
		require.NoError(t, err)
		defer rd.Close()

		assert.Equal(t, reader.StatePaged, rd.State())
		assert.Equal(t, 2, rd.Status().PageCount)
		assert.Empty(t, renderer.Opened())

		page, err := rd.Render(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Image{URL: "https://ebd.com/page.png"}, page.Image)
		assert.Equal(t, 1, page.Number)
	})

	t.Run("source document", func(t *testing.T) {
		env := testutil.NewEnv(t, testutil.WithRenderer(&testutil.Renderer{Pages: 3}))
		student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
		mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-1", "https://ebd.com/1.pdf", 10, "")

		rd, err := env.Reader.Open(ctx, student, mag.ID)
		require.NoError(t, err)
		defer rd.Close()
		ready(t, rd)

		st := rd.Status()
		assert.Equal(t, reader.StatePaged, st.State)
		assert.Equal(t, 3, st.PageCount)
		assert.Empty(t, st.EmbedURL)

		assert.Equal(t, core.ErrPageOutOfRange, rd.Goto(3))
		assert.Equal(t, core.ErrPageOutOfRange, rd.Goto(-1))
		require.NoError(t, rd.Goto(2))

		page, err := rd.Render(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Index)
		assert.Equal(t, []byte("page 3"), page.Image.Data)
	})

	t.Run("unreadable source falls back to embedding", func(t *testing.T) {
		env := testutil.NewEnv(t, testutil.WithRenderer(&testutil.Renderer{Err: core.ErrSourceUnavailable}))
		teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "", user.RoleTeacher, "cls-1", true)
		mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-1", "https://ebd.com/1.pdf", 10, "")

		rd, err := env.Reader.Open(ctx, teacher, mag.ID)
		require.NoError(t, err)
		defer rd.Close()
		ready(t, rd)

		st := rd.Status()
		assert.Equal(t, reader.StateEmbedded, st.State)
		assert.Equal(t, "https://ebd.com/1.pdf", st.EmbedURL)
		assert.Equal(t, core.ErrSourceUnavailable, rd.Fallback())

		assert.Equal(t, reader.ErrNotPaged, rd.Goto(1))
		_, err = rd.Render(ctx)
		assert.Equal(t, reader.ErrNotPaged, err)
		_, err = rd.Markers()
		assert.Equal(t, reader.ErrNotPaged, err)

		// authoring is a no-op
		assert.False(t, rd.ToggleAuthoring())
		assert.False(t, rd.Authoring())
	})

	t.Run("no renderer", func(t *testing.T) {
		env := testutil.NewEnv(t)
		student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
		mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-1", "https://ebd.com/1.pdf", 10, "")

		rd, err := env.Reader.Open(ctx, student, mag.ID)
		require.NoError(t, err)
		defer rd.Close()
		assert.Equal(t, reader.StateEmbedded, rd.State())
	})

	t.Run("errors", func(t *testing.T) {
		env := testutil.NewEnv(t)
		pending := testutil.CreateUser(t, env.UserRepo, "Pending", "", user.RoleStudent, "cls-1", false)
		student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
		mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-1", "", 1, "")

		_, err := env.Reader.Open(ctx, pending, mag.ID)
		assert.Equal(t, core.ErrForbidden, err)
		_, err = env.Reader.Open(ctx, student, "lol")
		assert.Equal(t, magazine.ErrNotFound, err)

		otherClass := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-2", "", 1, "")
		_, err = env.Reader.Open(ctx, student, otherClass.ID)
		assert.Equal(t, core.ErrForbidden, err)
		editor := testutil.CreateUser(t, env.UserRepo, "Editor", "", user.RoleEditor, "", true)
		rd, err := env.Reader.Open(ctx, editor, otherClass.ID)
		require.NoError(t, err)
		rd.Close()
	})
}

func TestReader_Render_stale(t *testing.T) {
	renderer := &testutil.Renderer{Pages: 3, Gate: make(chan struct{}), Started: make(chan int, 1)}
	env := testutil.NewEnv(t, testutil.WithRenderer(renderer))
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
	mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-1", "https://ebd.com/1.pdf", 3, "")

	rd, err := env.Reader.Open(ctx, student, mag.ID)
	require.NoError(t, err)
	defer rd.Close()
	ready(t, rd)

	type result struct {
		page reader.Page
		err  error
	}
	render := func() <-chan result {
		res := make(chan result, 1)
		go func() {
			page, err := rd.Render(ctx)
			res <- result{page, err}
		}()
		return res
	}

	// the page changes while the first page renders
	first := render()
	assert.Equal(t, 0, <-renderer.Started)
	require.NoError(t, rd.Goto(1))
	renderer.Gate <- struct{}{}
	assert.Equal(t, reader.ErrStaleRender, (<-first).err)

	second := render()
	assert.Equal(t, 1, <-renderer.Started)
	renderer.Gate <- struct{}{}
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.page.Number)

	// closing discards renders in flight
	third := render()
	<-renderer.Started
	rd.Close()
	close(renderer.Gate)
	assert.Equal(t, reader.ErrStaleRender, (<-third).err)

	assert.Equal(t, reader.StateClosed, rd.State())
	assert.Equal(t, reader.ErrClosed, rd.Goto(0))
}

func TestReader_Authoring(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "", user.RoleTeacher, "cls-1", true)
	student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
	mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição", "cls-1", "", 2, "https://ebd.com/page.png")

	studentReader, err := env.Reader.Open(ctx, student, mag.ID)
	require.NoError(t, err)
	defer studentReader.Close()
	assert.False(t, studentReader.ToggleAuthoring())

	rd, err := env.Reader.Open(ctx, teacher, mag.ID)
	require.NoError(t, err)
	defer rd.Close()

	mcq := magazine.NewExercise{Type: magazine.TypeMultipleChoice, Question: "Who?", Options: []string{"A", "B", "C"}, X: 40, Y: 60}
	_, err = rd.PlaceExercise(ctx, mcq)
	assert.Equal(t, reader.ErrNotAuthoring, err)

	require.True(t, rd.ToggleAuthoring())
	require.NoError(t, rd.Goto(1))
	ex, err := rd.PlaceExercise(ctx, mcq)
	require.NoError(t, err)
	link, err := rd.PlaceExercise(ctx, magazine.NewExercise{Type: magazine.TypeHyperlink, Question: "Watch", URL: "https://ebd.com/video"})
	require.NoError(t, err)

	markers, err := rd.Markers()
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, reader.MarkerPending, markers[0].State)
	assert.Equal(t, reader.MarkerLink, markers[1].State)

	// the student picks the exercises up after a refresh
	require.NoError(t, studentReader.Refresh())
	require.NoError(t, studentReader.Goto(1))

	out, err := studentReader.Submit(ctx, link.ID, response.Submission{})
	require.NoError(t, err)
	assert.Equal(t, "https://ebd.com/video", out.URL)
	assert.Nil(t, out.Response)

	out, err = studentReader.Submit(ctx, ex.ID, response.Submission{Text: "B"})
	require.NoError(t, err)
	require.NotNil(t, out.Response)

	markers, err = studentReader.Markers()
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, reader.MarkerCompleted, markers[0].State)
	require.NotNil(t, markers[0].Answer)
	assert.Equal(t, "B", markers[0].Answer.Text)

	// the teacher did not answer
	markers, err = rd.Markers()
	require.NoError(t, err)
	assert.Equal(t, reader.MarkerPending, markers[0].State)

	require.NoError(t, rd.RemoveExercise(ctx, ex.ID))
	markers, err = rd.Markers()
	require.NoError(t, err)
	assert.Len(t, markers, 1)

	assert.False(t, rd.ToggleAuthoring())
	assert.Equal(t, reader.ErrNotAuthoring, rd.RemoveExercise(ctx, link.ID))
}

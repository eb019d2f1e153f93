package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/response"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

func wantStatus(want reader.Status) func(t *testing.T, rec *httptest.ResponseRecorder) {
	return func(t *testing.T, rec *httptest.ResponseRecorder) {
		var st reader.Status
		unmarchall(t, rec, &st)
		assert.Equal(t, want, st)
	}
}

func Test_readerApi(t *testing.T) {
	env, app, _ := setup(t)

	cls := testutil.CreateClass(t, env.ClassRepo, "Adultos")
	teacher := testutil.CreateUser(t, env.UserRepo, "Carla", pwd, user.RoleTeacher, cls.ID, true)
	student := testutil.CreateUser(t, env.UserRepo, "Ana", pwd, user.RoleStudent, cls.ID, true)
	mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição 1", cls.ID, "", 2, "https://img.test/p.png")

	teacherToken := getToken(t, app, teacher)
	studentToken := getToken(t, app, student)
	paged := func(page int, authoring bool) reader.Status {
		return reader.Status{MagazineID: mag.ID, Title: mag.Title, State: reader.StatePaged, Page: page, PageCount: 2, Authoring: authoring}
	}
	noReader := marchallObj(t, httpErr{Error: "no magazine is open"})

	var placed magazine.Exercise
	tests := []httpTest{
		{name: "Auth required", path: "/v1/reader", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "nothing open", path: "/v1/reader", token: teacherToken, wantCode: http.StatusNotFound, wantData: noReader},
		{
			name: "unknown magazine", method: http.MethodPost, path: "/v1/reader/nope", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "magazine not found"}),
		},
		{
			name: "open", method: http.MethodPost, path: "/v1/reader/" + mag.ID, token: teacherToken,
			wantCode: http.StatusCreated, extra: wantStatus(paged(0, false)),
		},
		{
			name: "session state", path: "/v1/session", token: teacherToken,
			extra: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var st session.State
				unmarchall(t, rec, &st)
				assert.Equal(t, mag.ID, st.MagazineID)
				require.NotNil(t, st.Reader)
				assert.Equal(t, paged(0, false), *st.Reader)
			},
		},
		{
			name: "render", path: "/v1/reader/page", token: teacherToken,
			extra: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var page reader.Page
				unmarchall(t, rec, &page)
				assert.Equal(t, 0, page.Index)
				assert.Equal(t, 1, page.Number)
				assert.Equal(t, "https://img.test/p.png", page.Image.URL)
				assert.Empty(t, page.Markers)
			},
		},
		{
			name: "raw image", path: "/v1/reader/page?raw=1", token: teacherToken, wantCode: http.StatusFound,
			extra: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "https://img.test/p.png", rec.Header().Get("Location"))
			},
		},
		{
			name: "page out of range", method: http.MethodPut, path: "/v1/reader/page", token: teacherToken,
			body: []byte(`{"page":2}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "page out of range"}),
		},
		{
			name: "turn page", method: http.MethodPut, path: "/v1/reader/page", token: teacherToken,
			body: []byte(`{"page":1}`), extra: wantStatus(paged(1, false)),
		},
		{
			name: "place while not authoring", method: http.MethodPost, path: "/v1/reader/exercises", token: teacherToken,
			body: []byte(`{"type":"text","question":"Por quê?","x":50,"y":50}`), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "authoring mode is off"}),
		},
		{
			name: "authoring on", method: http.MethodPost, path: "/v1/reader/authoring", token: teacherToken,
			extra: wantStatus(paged(1, true)),
		},
		{
			name: "place", method: http.MethodPost, path: "/v1/reader/exercises", token: teacherToken,
			body: []byte(`{"type":"text","question":"Por quê?","x":50,"y":50}`), wantCode: http.StatusCreated,
			extra: func(t *testing.T, rec *httptest.ResponseRecorder) {
				unmarchall(t, rec, &placed)
				assert.Equal(t, magazine.TypeFreeText, placed.Type)
			},
		},
	}
	runHTTPTests(t, app, tests)

	saved, err := env.Magazines.GetByID(mag.ID)
	require.NoError(t, err)
	require.Len(t, saved.Pages[1].Exercises, 1)

	tests = []httpTest{
		{
			name: "student open", method: http.MethodPost, path: "/v1/reader/" + mag.ID, token: studentToken,
			wantCode: http.StatusCreated, extra: wantStatus(paged(0, false)),
		},
		{
			name: "students cannot author", method: http.MethodPost, path: "/v1/reader/authoring", token: studentToken,
			extra: wantStatus(paged(0, false)),
		},
		{
			name: "blank answer", method: http.MethodPost, path: "/v1/reader/exercises/" + placed.ID + "/answer", token: studentToken,
			body: []byte(`{"text":"  "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"text": "this field is required"}),
		},
		{
			name: "answer", method: http.MethodPost, path: "/v1/reader/exercises/" + placed.ID + "/answer", token: studentToken,
			body: []byte(`{"text":"Porque sim"}`),
			extra: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var outcome reader.Outcome
				unmarchall(t, rec, &outcome)
				require.NotNil(t, outcome.Response)
				assert.Equal(t, response.Key(mag.ID, placed.ID, student.ID), outcome.Response.ID)
				assert.Equal(t, "Porque sim", outcome.Response.Answer.Text)
			},
		},
		{
			name: "marker shows the answer", method: http.MethodPut, path: "/v1/reader/page", token: studentToken,
			body: []byte(`{"page":1}`), extra: wantStatus(paged(1, false)),
		},
		{
			name: "render with marker", path: "/v1/reader/page", token: studentToken,
			extra: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var page reader.Page
				unmarchall(t, rec, &page)
				require.Len(t, page.Markers, 1)
				assert.Equal(t, placed.ID, page.Markers[0].Exercise.ID)
				require.NotNil(t, page.Markers[0].Answer)
				assert.Equal(t, "Porque sim", page.Markers[0].Answer.Text)
			},
		},
		{name: "close", method: http.MethodDelete, path: "/v1/reader", token: studentToken, wantCode: http.StatusNoContent},
		{name: "closed", path: "/v1/reader/page", token: studentToken, wantCode: http.StatusNotFound, wantData: noReader},
		{
			name: "teacher removes the exercise", method: http.MethodDelete, path: "/v1/reader/exercises/" + placed.ID,
			token: teacherToken, wantCode: http.StatusNoContent,
		},
	}
	runHTTPTests(t, app, tests)

	saved, err = env.Magazines.GetByID(mag.ID)
	require.NoError(t, err)
	assert.Empty(t, saved.Pages[1].Exercises)
}

func Test_readerApi_embedded(t *testing.T) {
	env, app, _ := setup(t)

	cls := testutil.CreateClass(t, env.ClassRepo, "Adultos")
	student := testutil.CreateUser(t, env.UserRepo, "Ana", pwd, user.RoleStudent, cls.ID, true)
	mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição 1", cls.ID, "https://docs.test/l1.pdf", 3, "")
	token := getToken(t, app, student)

	embedded := reader.Status{MagazineID: mag.ID, Title: mag.Title, State: reader.StateEmbedded, EmbedURL: mag.PDFURL}
	notPaged := marchallObj(t, httpErr{Error: "the magazine is not displayed page by page"})

	tests := []httpTest{
		{
			name: "open", method: http.MethodPost, path: "/v1/reader/" + mag.ID + "?wait=1", token: token,
			wantCode: http.StatusCreated, extra: wantStatus(embedded),
		},
		{name: "no page", path: "/v1/reader/page", token: token, wantCode: http.StatusConflict, wantData: notPaged},
		{
			name: "no navigation", method: http.MethodPut, path: "/v1/reader/page", token: token,
			body: []byte(`{"page":1}`), wantCode: http.StatusConflict, wantData: notPaged,
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_readerApi_guarded(t *testing.T) {
	env, app, _ := setup(t)

	cls := testutil.CreateClass(t, env.ClassRepo, "Adultos")
	student := testutil.CreateUser(t, env.UserRepo, "Ana", pwd, user.RoleStudent, cls.ID, true)
	mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição 1", cls.ID, "", 1, "https://img.test/p.png")
	testutil.CreateAnnouncement(t, env.AnnouncementRepo, cls.ID, "Bem-vindos", 1000)

	req, rec := newAuthRequest(http.MethodPost, "/v1/reader/"+mag.ID, getToken(t, app, student))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func Test_readerApi_otherClass(t *testing.T) {
	env, app, _ := setup(t)

	adults := testutil.CreateClass(t, env.ClassRepo, "Adultos")
	youth := testutil.CreateClass(t, env.ClassRepo, "Jovens")
	student := testutil.CreateUser(t, env.UserRepo, "Ana", pwd, user.RoleStudent, adults.ID, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Carla", pwd, user.RoleTeacher, adults.ID, true)
	editor := testutil.CreateUser(t, env.UserRepo, "Eva", pwd, user.RoleEditor, "", true)
	mag := testutil.CreateMagazine(t, env.MagazineRepo, "Lição Jovens", youth.ID, "", 1, "https://img.test/p.png")
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name: "student", method: http.MethodPost, path: "/v1/reader/" + mag.ID, token: getToken(t, app, student),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "teacher", method: http.MethodPost, path: "/v1/reader/" + mag.ID, token: getToken(t, app, teacher),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "editor", method: http.MethodPost, path: "/v1/reader/" + mag.ID, token: getToken(t, app, editor),
			wantCode: http.StatusCreated,
		},
	}
	runHTTPTests(t, app, tests)
}

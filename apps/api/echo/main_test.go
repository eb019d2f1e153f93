package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/ebd/apps/api/echo"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// fakeIdentity accepts the credentials it knows.
type fakeIdentity map[string]session.Identity

func (f fakeIdentity) Verify(_ context.Context, credential string) (session.Identity, error) {
	if ident, ok := f[credential]; ok {
		return ident, nil
	}
	return session.Identity{}, session.ErrInvalidCredential
}

func setup(t *testing.T, opts ...testutil.Option) (*testutil.Env, *echoapi.Server, fakeIdentity) {
	t.Helper()

	env := testutil.NewEnv(t, opts...)
	ident := make(fakeIdentity)
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:            env.Conf,
		Logger:          env.Logger,
		Validate:        env.Validate,
		Translator:      env.Translator,
		Store:           env.Store,
		Sessions:        env.Sessions,
		Resolver:        session.NewResolver(env.Users, nil, env.Logger),
		Identity:        ident,
		UserSvc:         env.Users,
		ClassSvc:        env.Classes,
		MagazineSvc:     env.Magazines,
		AttendanceSvc:   env.Attendances,
		AnnouncementSvc: env.Announcements,
		CommentSvc:      env.Comments,
		ReaderSvc:       env.Reader,
		DashboardSvc:    env.Dashboard,
	})
	t.Cleanup(func() { _ = app.Close() })
	return env, app, ident
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// getToken signs usr in on a new session.
func getToken(t *testing.T, app *echoapi.Server, usr user.User) string {
	_, token, err := app.SignIn(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

// checkCodeAndData compares the body only when tt.wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// runHTTPTests runs tests in order against app; GET and 200 are the defaults.
func runHTTPTests(t *testing.T, app *echoapi.Server, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
			if check, ok := tt.extra.(func(t *testing.T, rec *httptest.ResponseRecorder)); ok {
				check(t, rec)
			}
		})
	}
}

func Test_home(t *testing.T) {
	_, app, _ := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the EBD API!", rec.Body.String())
}

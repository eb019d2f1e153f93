package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

func Test_meApi(t *testing.T) {
	env, app, _ := setup(t)

	cls := testutil.CreateClass(t, env.ClassRepo, "Adultos")
	student := testutil.CreateUser(t, env.UserRepo, "Ana", pwd, user.RoleStudent, cls.ID, true)
	token := getToken(t, app, student)

	picture := "data:image/png;base64,iVBORw0KGgo="
	huge := "data:image/png;base64," + strings.Repeat("A", int(env.Conf.MaxUploadBytes))

	withPicture := student
	withPicture.ProfilePicture = picture

	tests := []httpTest{
		{name: "Auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "retrieve", path: "/v1/me", token: token, wantData: marchallObj(t, student)},
		{
			name: "not an image", method: http.MethodPut, path: "/v1/me/picture", token: token,
			body: []byte(`{"profilePicture":"https://img.test/me.png"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"profilePicture": "profilePicture must be an encoded image"}),
		},
		{
			name: "too large", method: http.MethodPut, path: "/v1/me/picture", token: token,
			body: marchallObj(t, user.ProfilePicture{Picture: huge}), wantCode: http.StatusRequestEntityTooLarge,
			wantData: marchallObj(t, httpErr{Error: "profile picture is too large"}),
		},
		{
			name: "set picture", method: http.MethodPut, path: "/v1/me/picture", token: token,
			body: marchallObj(t, user.ProfilePicture{Picture: picture}), wantData: marchallObj(t, withPicture),
		},
		{
			name: "session user is updated", path: "/v1/session", token: token,
			extra: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var st struct {
					User *user.User `json:"user"`
				}
				unmarchall(t, rec, &st)
				require.NotNil(t, st.User)
				assert.Equal(t, picture, st.User.ProfilePicture)
			},
		},
	}
	runHTTPTests(t, app, tests)
}

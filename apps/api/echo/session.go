package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
)

type sessionApi struct {
	*Server
}

func registerSessionAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := sessionApi{Server: s}

	sg := g.Group("/session")

	// un-authed endpoints
	sg.POST("/login", api.login)
	sg.POST("/firebase", api.firebaseLogin)
	sg.POST("/register", api.register)

	// authed endpoints
	ag := sg.Group("", authed...)
	ag.GET("", api.current)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("/view", api.navigate, s.announcementGuard)
}

// Handlers

func (api *sessionApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	usr, err := api.UserSvc.Authenticate(data.Name, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.signIn(ctx, usr)
}

func (api *sessionApi) firebaseLogin(ctx echo.Context) error {
	var data FirebaseLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FirebaseLoginRequest")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	ident, err := api.Identity.Verify(ctx.Request().Context(), data.IDToken)
	if err != nil {
		return errors.Wrap(err, "verifying credential")
	}
	usr, ok := api.Resolver.Resolve(ctx.Request().Context(), ident)
	if !ok {
		return errUnauthorized
	}
	if !usr.IsActive() {
		return user.ErrPendingApproval
	}
	return api.signIn(ctx, usr)
}

func (api *sessionApi) signIn(ctx echo.Context, usr user.User) error {
	sess, token, err := api.SignIn(usr)
	if err != nil {
		return errors.Wrap(err, "signing in")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Session: sess.State()})
}

func (api *sessionApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.Validate, api.UserSvc); err != nil {
		return err
	}
	if _, err := api.ClassSvc.GetByID(data.ClassID); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "classId", Error: err.Error()})
		}
		return errors.Wrap(err, "finding class by ID")
	}

	usr, err := api.UserSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *sessionApi) current(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	return ctx.JSON(http.StatusOK, sess.State())
}

func (api *sessionApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	api.Sessions.End(sess.ID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) refreshToken(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	token, err := api.Server.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Session: sess.State()})
}

func (api *sessionApi) navigate(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	var data ViewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ViewRequest")
	}

	if data.View != "" {
		if err := sess.Navigate(session.View(data.View)); err != nil {
			return errors.Wrap(err, "navigating")
		}
	}
	if data.MagazineID != nil {
		if id := core.CleanString(*data.MagazineID); id != "" {
			mag, err := api.MagazineSvc.GetByID(id)
			if err != nil {
				return errors.Wrap(err, "finding magazine by ID")
			}
			if usr, ok := sess.User(); !ok || !magazine.CanRead(usr, mag) {
				return core.ErrForbidden
			}
		}
		if err := sess.SelectMagazine(core.CleanString(*data.MagazineID)); err != nil {
			return errors.Wrap(err, "selecting magazine")
		}
	}
	return ctx.JSON(http.StatusOK, sess.State())
}

type (
	LoginRequest struct {
		Name     string `json:"name" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	FirebaseLoginRequest struct {
		IDToken string `json:"idToken" validate:"required"`
	}

	LoginResponse struct {
		Token   string        `json:"token"`
		Session session.State `json:"session"`
	}

	// ViewRequest switches the active view and/or the selected magazine ("" clears it).
	ViewRequest struct {
		View       string  `json:"view"`
		MagazineID *string `json:"magazineId"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Name = core.CleanString(lr.Name)
	return validate.Struct(lr)
}

func (fr *FirebaseLoginRequest) Validate(validate *validator.Validate) error {
	fr.IDToken = core.CleanString(fr.IDToken)
	return validate.Struct(fr)
}

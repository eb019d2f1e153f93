package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core/user"
)

type meApi struct {
	*Server
}

func registerMeAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := meApi{Server: s}

	mg := g.Group("/me", authed...)
	mg.GET("", api.retrieve)
	mg.PUT("/picture", api.setPicture)
}

// Handlers

func (api *meApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *meApi) setPicture(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data user.ProfilePicture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfilePicture")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	usr, err = api.UserSvc.SetProfilePicture(ctx.Request().Context(), usr, data.Picture)
	if err != nil {
		return errors.Wrap(err, "setting profile picture")
	}
	sess.SignIn(usr)
	return ctx.JSON(http.StatusOK, usr)
}

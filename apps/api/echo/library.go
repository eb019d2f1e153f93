package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type libraryApi struct {
	*Server
}

func registerLibraryAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := libraryApi{Server: s}

	lg := g.Group("/library", authed...)
	lg.GET("", api.retrieve)
	lg.POST("/announcements/:id/read", api.markRead)
}

// Handlers

func (api *libraryApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, api.DashboardSvc.Library(usr))
}

func (api *libraryApi) markRead(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err = api.DashboardSvc.MarkRead(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking announcement read")
	}
	sess.SignIn(usr)
	return ctx.JSON(http.StatusOK, api.DashboardSvc.Library(usr))
}

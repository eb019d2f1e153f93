package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/comment"
	"github.com/trezcool/ebd/core/magazine"
)

type commentApi struct {
	*Server
}

func registerCommentAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := commentApi{Server: s}

	cg := g.Group("/magazines/:id/comments", append(authed, s.announcementGuard)...)
	cg.GET("", api.thread)
	cg.POST("", api.post)
}

// Handlers

func (api *commentApi) thread(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mag, err := api.MagazineSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding magazine by ID")
	}
	if !magazine.CanRead(usr, mag) {
		return core.ErrForbidden
	}
	return ctx.JSON(http.StatusOK, api.CommentSvc.Thread(mag.ID))
}

func (api *commentApi) post(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mag, err := api.MagazineSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding magazine by ID")
	}
	var data comment.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	cm, err := api.CommentSvc.Post(ctx.Request().Context(), usr, mag, data)
	if err != nil {
		return errors.Wrap(err, "posting comment")
	}
	return ctx.JSON(http.StatusCreated, cm)
}

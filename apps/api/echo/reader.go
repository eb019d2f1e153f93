package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/response"
)

const contextReaderKey = "reader"

type readerApi struct {
	*Server
}

func registerReaderAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := readerApi{Server: s}

	rg := g.Group("/reader", append(authed, s.announcementGuard)...)
	rg.POST("/:magId", api.open)

	og := rg.Group("", openReaderMiddleware)
	og.GET("", api.status)
	og.DELETE("", api.close)
	og.GET("/page", api.render)
	og.PUT("/page", api.turnPage)
	og.POST("/authoring", api.toggleAuthoring)
	og.POST("/exercises", api.placeExercise)
	og.DELETE("/exercises/:exId", api.removeExercise)
	og.POST("/exercises/:exId/answer", api.answer)
}

// Handlers

func (api *readerApi) open(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rd, err := api.ReaderSvc.Open(ctx.Request().Context(), usr, ctx.Param("magId"))
	if err != nil {
		return errors.Wrap(err, "opening reader")
	}
	if err := sess.OpenReader(rd); err != nil {
		return errors.Wrap(err, "installing reader")
	}
	if ctx.QueryParam("wait") != "" {
		if err := rd.Ready(ctx.Request().Context()); err != nil {
			return errors.Wrap(err, "waiting for reader")
		}
	}
	return ctx.JSON(http.StatusCreated, rd.Status())
}

func (api *readerApi) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextReader(ctx).Status())
}

func (api *readerApi) close(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	sess.CloseReader()
	return ctx.NoContent(http.StatusNoContent)
}

// render returns the current page with its markers, or the page image alone with ?raw.
func (api *readerApi) render(ctx echo.Context) error {
	page, err := contextReader(ctx).Render(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "rendering page")
	}
	if ctx.QueryParam("raw") == "" {
		return ctx.JSON(http.StatusOK, page)
	}
	if page.Image.URL != "" {
		return ctx.Redirect(http.StatusFound, page.Image.URL)
	}
	return ctx.Blob(http.StatusOK, page.Image.ContentType, page.Image.Data)
}

func (api *readerApi) turnPage(ctx echo.Context) error {
	var data TurnPageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TurnPageRequest")
	}
	rd := contextReader(ctx)
	if err := rd.Goto(data.Page); err != nil {
		return errors.Wrap(err, "turning page")
	}
	return ctx.JSON(http.StatusOK, rd.Status())
}

func (api *readerApi) toggleAuthoring(ctx echo.Context) error {
	rd := contextReader(ctx)
	rd.ToggleAuthoring()
	return ctx.JSON(http.StatusOK, rd.Status())
}

func (api *readerApi) placeExercise(ctx echo.Context) error {
	var data magazine.NewExercise
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExercise")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	ex, err := contextReader(ctx).PlaceExercise(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "placing exercise")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *readerApi) removeExercise(ctx echo.Context) error {
	if err := contextReader(ctx).RemoveExercise(ctx.Request().Context(), ctx.Param("exId")); err != nil {
		return errors.Wrap(err, "removing exercise")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *readerApi) answer(ctx echo.Context) error {
	var data response.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}

	outcome, err := contextReader(ctx).Submit(ctx.Request().Context(), ctx.Param("exId"), data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusOK, outcome)
}

// openReaderMiddleware loads the reader of the session, responding 404 when none is open.
func openReaderMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := getContextSession(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context session")
		}
		rd, ok := sess.Reader()
		if !ok {
			return errNoReader
		}
		ctx.Set(contextReaderKey, rd)
		return next(ctx)
	}
}

func contextReader(ctx echo.Context) *reader.Reader {
	return ctx.Get(contextReaderKey).(*reader.Reader)
}

type TurnPageRequest struct {
	Page int `json:"page"`
}

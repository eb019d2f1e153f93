package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/user"
)

type editorApi struct {
	*Server
}

func registerEditorAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := editorApi{Server: s}

	eg := g.Group("/editor", append(authed, roleMiddleware(user.RoleEditor))...)
	eg.GET("", api.dashboard)

	cg := eg.Group("/classes")
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass)
	cg.PUT("/:id", api.renameClass)
	cg.DELETE("/:id", api.destroyClass)
	cg.GET("/:id/report.csv", api.exportCSV)
	cg.GET("/:id/report.xlsx", api.exportXLSX)

	mg := eg.Group("/magazines")
	mg.GET("", api.queryMagazines)
	mg.POST("", api.publish)
	mg.PUT("/:id", api.updateMagazine)
	mg.DELETE("/:id", api.destroyMagazine)

	tg := eg.Group("/teachers/:id", teacherObjectMiddleware(s.UserSvc))
	tg.POST("/approve", api.approveTeacher)
	tg.POST("/reject", api.rejectTeacher)
	tg.PUT("", api.updateTeacher)
}

// Handlers

func (api *editorApi) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dash, err := api.DashboardSvc.Editor(usr)
	if err != nil {
		return errors.Wrap(err, "building editor dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *editorApi) queryClasses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.ClassSvc.QueryAll())
}

func (api *editorApi) createClass(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data class.ClassData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassData")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	cls, err := api.ClassSvc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *editorApi) renameClass(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data class.ClassData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassData")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	cls, err := api.ClassSvc.Rename(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "renaming class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *editorApi) destroyClass(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.ClassSvc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *editorApi) exportCSV(ctx echo.Context) error {
	return api.export(ctx, "csv", mimeCSV, attendance.WriteCSV)
}

func (api *editorApi) exportXLSX(ctx echo.Context) error {
	return api.export(ctx, "xlsx", mimeXLSX, attendance.WriteXLSX)
}

func (api *editorApi) export(ctx echo.Context, ext, contentType string, write reportWriter) error {
	cls, err := api.ClassSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return writeReport(ctx, fmt.Sprintf("frequencia-%s-%s.%s", cls.ID, core.Today(), ext), contentType,
		api.DashboardSvc.Report(cls.ID), write)
}

func (api *editorApi) queryMagazines(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.MagazineSvc.QueryAll())
}

func (api *editorApi) publish(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	maxBytes := api.MagazineSvc.MaxUploadBytes()

	var data magazine.NewMagazine
	if isMultipart(ctx) {
		data.Title = ctx.FormValue("title")
		data.Description = ctx.FormValue("description")
		data.ClassID = ctx.FormValue("classId")
		data.PDFURL = ctx.FormValue("pdfUrl")
		if data.File, err = formUpload(ctx, "file", maxBytes); err != nil {
			return err
		}
		if data.Cover, err = formUpload(ctx, "cover", maxBytes); err != nil {
			return err
		}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMagazine")
	}
	if err := data.Validate(api.Validate, maxBytes); err != nil {
		return err
	}
	if err := api.checkClass(data.ClassID); err != nil {
		return err
	}

	mag, err := api.MagazineSvc.Publish(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "publishing magazine")
	}
	return ctx.JSON(http.StatusCreated, mag)
}

func (api *editorApi) updateMagazine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mag, err := api.MagazineSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding magazine by ID")
	}
	maxBytes := api.MagazineSvc.MaxUploadBytes()

	var data magazine.UpdateMagazine
	if isMultipart(ctx) {
		data.Title = ctx.FormValue("title")
		data.Description = ctx.FormValue("description")
		data.ClassID = ctx.FormValue("classId")
		data.PDFURL = ctx.FormValue("pdfUrl")
		if data.Cover, err = formUpload(ctx, "cover", maxBytes); err != nil {
			return err
		}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMagazine")
	}
	if err := data.Validate(mag, api.Validate, maxBytes); err != nil {
		return err
	}
	if data.ClassID != mag.ClassID {
		if err := api.checkClass(data.ClassID); err != nil {
			return err
		}
	}

	mag, err = api.MagazineSvc.Update(ctx.Request().Context(), usr, mag.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating magazine")
	}
	return ctx.JSON(http.StatusOK, mag)
}

func (api *editorApi) destroyMagazine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.MagazineSvc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting magazine")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *editorApi) checkClass(id string) error {
	if _, err := api.ClassSvc.GetByID(id); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "classId", Error: err.Error()})
		}
		return errors.Wrap(err, "finding class by ID")
	}
	return nil
}

func (api *editorApi) approveTeacher(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.UserSvc.Approve(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "approving teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *editorApi) rejectTeacher(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.UserSvc.Reject(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "rejecting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *editorApi) updateTeacher(ctx echo.Context) error {
	return updateManagedUser(ctx, api.Server, user.RoleTeacher)
}

// teacherObjectMiddleware responds 404 unless :id is a teacher.
func teacherObjectMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := svc.GetByID(ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsTeacher() {
				return errHttpNotFound
			}
			return next(ctx)
		}
	}
}

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formUpload reads the file sent as field, if any. At most maxBytes+1 bytes are read
// so that oversized files can still be told apart.
func formUpload(ctx echo.Context, field string, maxBytes int64) (*magazine.Upload, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, errMalformedMultipart
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", field)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", field)
	}
	return &magazine.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

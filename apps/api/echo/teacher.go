package echoapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/user"
)

const (
	mimeCSV  = "text/csv; charset=UTF-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type teacherApi struct {
	*Server
}

func registerTeacherAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := teacherApi{Server: s}

	tg := g.Group("/teacher", append(authed, roleMiddleware(user.RoleTeacher))...)
	tg.GET("", api.dashboard)

	tg.POST("/students/:id/approve", api.approve)
	tg.POST("/students/:id/reject", api.reject)
	tg.PUT("/students/:id", api.updateStudent)

	tg.POST("/attendance", api.toggleAttendance)
	tg.GET("/attendance/report.csv", api.exportCSV)
	tg.GET("/attendance/report.xlsx", api.exportXLSX)

	tg.POST("/announcements", api.postAnnouncement)

	tg.POST("/magazines/:id/exercises", api.addExercise)
	tg.DELETE("/magazines/:id/exercises/:exId", api.removeExercise)
}

// Handlers

func (api *teacherApi) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dash, err := api.DashboardSvc.Teacher(usr)
	if err != nil {
		return errors.Wrap(err, "building teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *teacherApi) approve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.UserSvc.Approve(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "approving student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) reject(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.UserSvc.Reject(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "rejecting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) updateStudent(ctx echo.Context) error {
	return updateManagedUser(ctx, api.Server, user.RoleStudent)
}

// updateManagedUser edits the user :id on behalf of the context user. Users without
// the wanted role are reported as not found.
func updateManagedUser(ctx echo.Context, s *Server, role string) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	usr, err := s.UserSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if usr.Role != role {
		return errHttpNotFound
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(usr, s.Validate, s.UserSvc); err != nil {
		return err
	}
	if data.ClassID != usr.ClassID {
		if _, err := s.ClassSvc.GetByID(data.ClassID); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "classId", Error: err.Error()})
		}
	}

	usr, err = s.UserSvc.Update(ctx.Request().Context(), actor, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *teacherApi) toggleAttendance(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data attendance.Toggle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Toggle")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	att, err := api.AttendanceSvc.Toggle(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "toggling attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *teacherApi) exportCSV(ctx echo.Context) error {
	return api.export(ctx, "csv", mimeCSV, attendance.WriteCSV)
}

func (api *teacherApi) exportXLSX(ctx echo.Context) error {
	return api.export(ctx, "xlsx", mimeXLSX, attendance.WriteXLSX)
}

func (api *teacherApi) export(ctx echo.Context, ext, contentType string, write reportWriter) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ClassID == "" {
		return errHttpNotFound
	}
	return writeReport(ctx, fmt.Sprintf("frequencia-%s.%s", core.Today(), ext), contentType,
		api.DashboardSvc.Report(usr.ClassID), write)
}

func (api *teacherApi) postAnnouncement(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	ann, err := api.AnnouncementSvc.Post(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "posting announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *teacherApi) addExercise(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data AddExerciseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddExerciseRequest")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	_, ex, err := api.MagazineSvc.AddExercise(ctx.Request().Context(), usr, ctx.Param("id"), data.PageIndex, data.NewExercise)
	if err != nil {
		return errors.Wrap(err, "adding exercise")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *teacherApi) removeExercise(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if _, err := api.MagazineSvc.RemoveExercise(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("exId")); err != nil {
		return errors.Wrap(err, "removing exercise")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type reportWriter func(w io.Writer, rows []attendance.ReportRow) error

func writeReport(ctx echo.Context, filename, contentType string, rows []attendance.ReportRow, write reportWriter) error {
	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, contentType)
	resp.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	resp.WriteHeader(http.StatusOK)
	return errors.Wrap(write(resp, rows), "writing report")
}

// AddExerciseRequest places an exercise on a page of a magazine; the first page by default.
type AddExerciseRequest struct {
	magazine.NewExercise
	PageIndex int `json:"pageIndex" validate:"min=0"`
}

func (r *AddExerciseRequest) Validate(validate *validator.Validate) error {
	if err := r.NewExercise.Validate(validate); err != nil {
		return err
	}
	return validate.Struct(r)
}

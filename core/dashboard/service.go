package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/user"
)

// Service reads the collections the views derive from.
type Service struct {
	users         *user.Service
	classes       *class.Service
	magazines     *magazine.Service
	attendances   *attendance.Service
	announcements *announcement.Service
}

func NewService(
	users *user.Service,
	classes *class.Service,
	magazines *magazine.Service,
	attendances *attendance.Service,
	announcements *announcement.Service,
) *Service {
	return &Service{
		users:         users,
		classes:       classes,
		magazines:     magazines,
		attendances:   attendances,
		announcements: announcements,
	}
}

func (svc *Service) Collect() Collections {
	return Collections{
		Users:         svc.users.QueryAll(),
		Classes:       svc.classes.QueryAll(),
		Magazines:     svc.magazines.QueryAll(),
		Attendances:   svc.attendances.QueryAll(),
		Announcements: svc.announcements.QueryAll(),
	}
}

func (svc *Service) Library(usr user.User) Library {
	return StudentLibrary(usr, svc.Collect())
}

func (svc *Service) Teacher(usr user.User) (Teacher, error) {
	return TeacherDashboard(usr, svc.Collect(), core.Today())
}

func (svc *Service) Editor(usr user.User) (Editor, error) {
	return EditorDashboard(usr, svc.Collect())
}

// Guard blocks students with an unread announcement.
func (svc *Service) Guard(usr user.User) error {
	return Guard(usr, svc.announcements.QueryAll())
}

// MarkRead records that usr read the announcement annID of their class.
func (svc *Service) MarkRead(ctx context.Context, usr user.User, annID string) (user.User, error) {
	ann, err := svc.announcements.GetByID(annID)
	if err != nil {
		return user.User{}, err
	}
	if ann.ClassID != usr.ClassID {
		return user.User{}, announcement.ErrNotFound
	}
	usr, err = svc.users.MarkAnnouncementRead(ctx, usr, ann.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "marking announcement read")
	}
	return usr, nil
}

// Report summarizes the attendance of the approved students of classID.
func (svc *Service) Report(classID string) []attendance.ReportRow {
	students, records := ClassRecords(classID, svc.Collect())
	return attendance.BuildReport(students, records)
}

// View returns the view matching the user role: the teacher or editor dashboard when
// asked for and allowed, the library otherwise.
func (svc *Service) View(usr user.User, dashboard bool) interface{} {
	if dashboard {
		switch {
		case usr.IsEditor():
			if dash, err := svc.Editor(usr); err == nil {
				return dash
			}
		case usr.IsTeacher():
			if dash, err := svc.Teacher(usr); err == nil {
				return dash
			}
		}
	}
	return svc.Library(usr)
}

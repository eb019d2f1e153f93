// Package dashboard derives the role-scoped views from the current user and the mirrored collections.
package dashboard

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/user"
)

// ErrAnnouncementPending blocks a student until the oldest unread announcement is marked read.
var ErrAnnouncementPending = errors.New("an announcement must be read first")

// Collections is a snapshot of the mirrored collections a view derives from.
type Collections struct {
	Users         []user.User
	Classes       []class.Class
	Magazines     []magazine.Magazine
	Attendances   []attendance.Attendance
	Announcements []announcement.Announcement
}

// FormatPercent renders a frequency as "NN%".
func FormatPercent(freq int) string {
	return strconv.Itoa(freq) + "%"
}

type Library struct {
	Magazines           []magazine.Magazine        `json:"magazines"`
	Frequency           int                        `json:"frequency"`
	FrequencyLabel      string                     `json:"frequencyLabel"`
	PendingAnnouncement *announcement.Announcement `json:"pendingAnnouncement,omitempty"`
}

// StudentLibrary lists the magazines of the user's class (all of them for editors) with the
// user's attendance frequency and the oldest announcement they still have to read.
func StudentLibrary(usr user.User, c Collections) Library {
	mags := make([]magazine.Magazine, 0)
	for _, m := range c.Magazines {
		if magazine.CanRead(usr, m) {
			mags = append(mags, m)
		}
	}
	sortNewestFirst(mags)

	freq := attendance.Frequency(attendance.ForUser(c.Attendances, usr.ID))
	lib := Library{
		Magazines:      mags,
		Frequency:      freq,
		FrequencyLabel: FormatPercent(freq),
	}
	if ann, ok := announcement.OldestUnread(usr, c.Announcements); ok {
		lib.PendingAnnouncement = &ann
	}
	return lib
}

// Guard returns ErrAnnouncementPending while the student has an unread announcement.
func Guard(usr user.User, anns []announcement.Announcement) error {
	if _, ok := announcement.OldestUnread(usr, anns); ok {
		return ErrAnnouncementPending
	}
	return nil
}

type StudentRow struct {
	User           user.User `json:"user"`
	Frequency      int       `json:"frequency"`
	FrequencyLabel string    `json:"frequencyLabel"`
	PresentToday   bool      `json:"presentToday"`
}

type Teacher struct {
	Class         *class.Class                `json:"class,omitempty"`
	Today         string                      `json:"today"`
	Pending       []user.User                 `json:"pending"`
	Students      []StudentRow                `json:"students"`
	Announcements []announcement.Announcement `json:"announcements"`
	Magazines     []magazine.Magazine         `json:"magazines"`
}

// TeacherDashboard scopes the collections to the teacher's class. today is a YYYY-MM-DD date.
func TeacherDashboard(usr user.User, c Collections, today string) (Teacher, error) {
	if !usr.IsTeacher() || !usr.IsActive() {
		return Teacher{}, core.ErrForbidden
	}

	dash := Teacher{
		Today:         today,
		Pending:       make([]user.User, 0),
		Students:      make([]StudentRow, 0),
		Announcements: announcement.ForClass(c.Announcements, usr.ClassID),
		Magazines:     make([]magazine.Magazine, 0),
	}
	for _, cls := range c.Classes {
		if cls.ID == usr.ClassID {
			cls := cls
			dash.Class = &cls
		}
	}

	for _, u := range sortedByName(c.Users) {
		if !u.IsStudent() || u.ClassID != usr.ClassID || usr.ClassID == "" {
			continue
		}
		if !u.IsApproved {
			dash.Pending = append(dash.Pending, u)
			continue
		}
		freq := attendance.Frequency(attendance.ForUser(c.Attendances, u.ID))
		dash.Students = append(dash.Students, StudentRow{
			User:           u,
			Frequency:      freq,
			FrequencyLabel: FormatPercent(freq),
			PresentToday:   attendance.IsPresentOn(c.Attendances, u.ID, today),
		})
	}

	for _, m := range c.Magazines {
		if usr.ClassID != "" && m.ClassID == usr.ClassID {
			dash.Magazines = append(dash.Magazines, m)
		}
	}
	sortNewestFirst(dash.Magazines)
	return dash, nil
}

// ClassRecords returns the approved students of classID with the class attendance records.
func ClassRecords(classID string, c Collections) ([]user.User, []attendance.Attendance) {
	students := make([]user.User, 0)
	for _, u := range c.Users {
		if u.IsStudent() && u.IsApproved && u.ClassID == classID {
			students = append(students, u)
		}
	}
	records := make([]attendance.Attendance, 0)
	for _, a := range c.Attendances {
		if a.ClassID == classID {
			records = append(records, a)
		}
	}
	return students, records
}

type Editor struct {
	Classes         []class.Class       `json:"classes"`
	Magazines       []magazine.Magazine `json:"magazines"`
	PendingTeachers []user.User         `json:"pendingTeachers"`
	Teachers        []user.User         `json:"teachers"`
}

// EditorDashboard is the global view of editors.
func EditorDashboard(usr user.User, c Collections) (Editor, error) {
	if !usr.IsEditor() {
		return Editor{}, core.ErrForbidden
	}

	dash := Editor{
		Classes:         append([]class.Class{}, c.Classes...),
		Magazines:       append([]magazine.Magazine{}, c.Magazines...),
		PendingTeachers: make([]user.User, 0),
		Teachers:        make([]user.User, 0),
	}
	sort.SliceStable(dash.Classes, func(i, j int) bool { return dash.Classes[i].Name < dash.Classes[j].Name })
	sortNewestFirst(dash.Magazines)

	for _, u := range sortedByName(c.Users) {
		if !u.IsTeacher() {
			continue
		}
		if u.IsApproved {
			dash.Teachers = append(dash.Teachers, u)
		} else {
			dash.PendingTeachers = append(dash.PendingTeachers, u)
		}
	}
	return dash, nil
}

func sortedByName(users []user.User) []user.User {
	res := append([]user.User{}, users...)
	sort.SliceStable(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func sortNewestFirst(mags []magazine.Magazine) {
	sort.SliceStable(mags, func(i, j int) bool {
		if mags[i].CreatedAt == mags[j].CreatedAt {
			return mags[i].ID < mags[j].ID
		}
		return mags[i].CreatedAt > mags[j].CreatedAt
	})
}

package attendance

import (
	"context"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/user"
)

var ErrNotStudent = errors.New("attendance can only be taken for approved students")

type Attendance struct {
	ID        string `json:"id"`
	ClassID   string `json:"classId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Date      string `json:"date"` // YYYY-MM-DD
	IsPresent bool   `json:"isPresent"`
}

// Key is the deterministic id of the attendance of a student in a class on a given date.
func Key(classID, userID, date string) string {
	return classID + "_" + userID + "_" + date
}

// Toggle marks a student present or absent. Date defaults to today.
type Toggle struct {
	UserID    string `json:"userId" validate:"required"`
	Date      string `json:"date" validate:"omitempty,isodate"`
	IsPresent bool   `json:"isPresent"`
}

func (t *Toggle) Validate(validate *validator.Validate) error {
	t.UserID = core.CleanString(t.UserID)
	t.Date = core.CleanString(t.Date)
	return validate.Struct(t)
}

// Frequency returns round(100 × present / total) over records, 0 when there is none.
func Frequency(records []Attendance) int {
	if len(records) == 0 {
		return 0
	}
	var present int
	for _, r := range records {
		if r.IsPresent {
			present++
		}
	}
	return int(math.Round(100 * float64(present) / float64(len(records))))
}

// ForUser returns the records of userID.
func ForUser(records []Attendance, userID string) []Attendance {
	res := make([]Attendance, 0)
	for _, r := range records {
		if r.UserID == userID {
			res = append(res, r)
		}
	}
	return res
}

// PresentDates returns the sorted dates of the records marked present.
func PresentDates(records []Attendance) []string {
	dates := make([]string, 0, len(records))
	for _, r := range records {
		if r.IsPresent {
			dates = append(dates, r.Date)
		}
	}
	sort.Strings(dates)
	return dates
}

// IsPresentOn tells whether userID was marked present on date.
func IsPresentOn(records []Attendance, userID, date string) bool {
	for _, r := range records {
		if r.UserID == userID && r.Date == date && r.IsPresent {
			return true
		}
	}
	return false
}

type (
	Repository interface {
		QueryAllAttendances() []Attendance
		// SaveAttendance updates the local mirror before the remote write.
		SaveAttendance(ctx context.Context, att Attendance) error
	}

	Service struct {
		repo  Repository
		users *user.Service
	}
)

func NewService(repo Repository, users *user.Service) *Service {
	return &Service{repo: repo, users: users}
}

// QueryAll returns every attendance record.
func (svc *Service) QueryAll() []Attendance {
	return svc.repo.QueryAllAttendances()
}

// QueryByClass returns the attendance records of a class.
func (svc *Service) QueryByClass(classID string) []Attendance {
	all := svc.repo.QueryAllAttendances()
	res := make([]Attendance, 0, len(all))
	for _, a := range all {
		if a.ClassID == classID {
			res = append(res, a)
		}
	}
	return res
}

// FrequencyOf returns the attendance frequency of a user across all their records.
func (svc *Service) FrequencyOf(userID string) int {
	return Frequency(ForUser(svc.repo.QueryAllAttendances(), userID))
}

// Toggle upserts the attendance of a student of the actor's class on a day.
// Repeating it for the same day updates the same record.
func (svc *Service) Toggle(ctx context.Context, actor user.User, t Toggle) (Attendance, error) {
	student, err := svc.users.GetByID(t.UserID)
	if err != nil {
		return Attendance{}, err
	}
	if !actor.CanManage(student) {
		return Attendance{}, core.ErrForbidden
	}
	if !student.IsStudent() || !student.IsApproved {
		return Attendance{}, ErrNotStudent
	}

	date := t.Date
	if date == "" {
		date = core.Today()
	}
	att := Attendance{
		ID:        Key(student.ClassID, student.ID, date),
		ClassID:   student.ClassID,
		UserID:    student.ID,
		UserName:  student.Name,
		Date:      date,
		IsPresent: t.IsPresent,
	}
	if err := svc.repo.SaveAttendance(ctx, att); err != nil {
		return Attendance{}, errors.Wrap(err, "saving attendance")
	}
	return att, nil
}

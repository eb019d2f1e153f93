package announcement

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/user"
)

const displayDateLayout = "02/01/2006"

var (
	ErrNoClass  = errors.New("a class is required to post an announcement")
	ErrNotFound  = errors.New("announcement not found")
)

type Announcement struct {
	ID         string `json:"id"`
	ClassID    string `json:"classId"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	AuthorName string `json:"authorName"`
	Date       string `json:"date"`
	CreatedAt  int64  `json:"createdAt"`
}

// NewAnnouncement contains information needed to post an Announcement.
// ClassID is only read for editors; teachers always post to their own class.
type NewAnnouncement struct {
	ClassID string `json:"classId"`
	Title   string `json:"title" validate:"required,notblank"`
	Message string `json:"message" validate:"required,notblank"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.ClassID = core.CleanString(na.ClassID)
	na.Title = core.SanitizeText(na.Title)
	na.Message = core.SanitizeHTML(na.Message)
	return validate.Struct(na)
}

// ForClass returns the announcements of classID, oldest first.
func ForClass(anns []Announcement, classID string) []Announcement {
	res := make([]Announcement, 0)
	for _, a := range anns {
		if a.ClassID == classID {
			res = append(res, a)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].CreatedAt == res[j].CreatedAt {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt < res[j].CreatedAt
	})
	return res
}

// OldestUnread returns the oldest announcement of the student's class not yet marked as read.
func OldestUnread(student user.User, anns []Announcement) (Announcement, bool) {
	if !student.IsStudent() || student.ClassID == "" {
		return Announcement{}, false
	}
	for _, a := range ForClass(anns, student.ClassID) {
		if !student.HasViewed(a.ID) {
			return a, true
		}
	}
	return Announcement{}, false
}

type (
	Repository interface {
		QueryAllAnnouncements() []Announcement
		SaveAnnouncement(ctx context.Context, ann Announcement) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) QueryAll() []Announcement {
	return svc.repo.QueryAllAnnouncements()
}

func (svc *Service) GetByID(id string) (Announcement, error) {
	for _, a := range svc.repo.QueryAllAnnouncements() {
		if a.ID == id {
			return a, nil
		}
	}
	return Announcement{}, ErrNotFound
}

func (svc *Service) QueryByClass(classID string) []Announcement {
	return ForClass(svc.repo.QueryAllAnnouncements(), classID)
}

// Post publishes an announcement to the teacher's class, or to any class for editors.
func (svc *Service) Post(ctx context.Context, actor user.User, na NewAnnouncement) (Announcement, error) {
	if !actor.IsActive() || !(actor.IsTeacher() || actor.IsEditor()) {
		return Announcement{}, core.ErrForbidden
	}
	classID := actor.ClassID
	if actor.IsEditor() {
		classID = na.ClassID
	}
	if classID == "" {
		return Announcement{}, ErrNoClass
	}

	now := core.NowFunc()
	ann := Announcement{
		ID:         core.NewID("ann"),
		ClassID:    classID,
		Title:      na.Title,
		Message:    na.Message,
		AuthorName: actor.Name,
		Date:       now.Format(displayDateLayout),
		CreatedAt:  core.NowMillis(),
	}
	if err := svc.repo.SaveAnnouncement(ctx, ann); err != nil {
		return Announcement{}, errors.Wrap(err, "saving announcement")
	}
	return ann, nil
}

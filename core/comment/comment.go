package comment

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/user"
)

var ErrEmpty = errors.New("comment is empty")

// Comment is an append-only message of a magazine thread.
// UserName and UserAvatar are copied from the author when posting.
type Comment struct {
	ID         string `json:"id"`
	MagazineID string `json:"magazineId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar,omitempty"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

type NewComment struct {
	Text string `json:"text" validate:"required"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nc); err != nil {
		return err
	}
	if nc.Text = core.SanitizeText(nc.Text); nc.Text == "" {
		return core.NewValidationError(ErrEmpty, core.FieldError{Field: "text", Error: ErrEmpty.Error()})
	}
	return nil
}

type (
	Repository interface {
		QueryAllComments() []Comment
		SaveComment(ctx context.Context, cm Comment) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Thread returns the comments of a magazine, newest first.
func (svc *Service) Thread(magazineID string) []Comment {
	all := svc.repo.QueryAllComments()
	res := make([]Comment, 0)
	for _, c := range all {
		if c.MagazineID == magazineID {
			res = append(res, c)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Timestamp == res[j].Timestamp {
			return res[i].ID > res[j].ID
		}
		return res[i].Timestamp > res[j].Timestamp
	})
	return res
}

// Post adds the actor's comment to the thread of mag.
func (svc *Service) Post(ctx context.Context, actor user.User, mag magazine.Magazine, nc NewComment) (Comment, error) {
	if !actor.IsActive() || !magazine.CanRead(actor, mag) {
		return Comment{}, core.ErrForbidden
	}
	cm := Comment{
		ID:         core.NewID("cm"),
		MagazineID: mag.ID,
		UserID:     actor.ID,
		UserName:   actor.Name,
		UserAvatar: actor.ProfilePicture,
		Text:       nc.Text,
		Timestamp:  core.NowMillis(),
	}
	if err := svc.repo.SaveComment(ctx, cm); err != nil {
		return Comment{}, errors.Wrap(err, "saving comment")
	}
	return cm, nil
}

package response

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/user"
)

var (
	// errors
	ErrLinkExercise  = errors.New("link exercises do not record answers")
	ErrInvalidAnswer = errors.New("answer does not match the exercise")
)

// Answer holds the value matching the exercise type it answers:
// Text for mcq & text, Choices for checkboxes, Drawing (an image data URL) for drawing.
type Answer struct {
	Kind    string   `json:"kind"`
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Drawing string   `json:"drawing,omitempty"`
}

type Response struct {
	ID         string `json:"id"`
	MagazineID string `json:"magazineId"`
	ExerciseID string `json:"exerciseId"`
	UserID     string `json:"userId"`
	Answer     Answer `json:"answer"`
	Timestamp  int64  `json:"timestamp"`
}

// Key is the id of the response of a user to an exercise; saving again overwrites it.
func Key(magazineID, exerciseID, userID string) string {
	return magazineID + "_" + exerciseID + "_" + userID
}

// Submission is the raw answer sent for an exercise; only the field matching its type is read.
type Submission struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
	Drawing string   `json:"drawing"`
}

// NewAnswer builds the answer to ex from sub.
func NewAnswer(ex magazine.Exercise, sub Submission) (Answer, error) {
	invalid := func(field, msg string) error {
		return core.NewValidationError(ErrInvalidAnswer, core.FieldError{Field: field, Error: msg})
	}

	switch ex.Type {
	case magazine.TypeHyperlink:
		return Answer{}, ErrLinkExercise
	case magazine.TypeMultipleChoice:
		if !ex.HasOption(sub.Text) {
			return Answer{}, invalid("text", "choose one of the options")
		}
		return Answer{Kind: ex.Type, Text: sub.Text}, nil
	case magazine.TypeCheckboxes:
		if len(sub.Choices) == 0 {
			return Answer{}, invalid("choices", "choose at least one option")
		}
		seen := make(map[string]bool, len(sub.Choices))
		choices := make([]string, 0, len(sub.Choices))
		for _, c := range sub.Choices {
			if !ex.HasOption(c) {
				return Answer{}, invalid("choices", "choose among the options")
			}
			if !seen[c] {
				seen[c] = true
				choices = append(choices, c)
			}
		}
		return Answer{Kind: ex.Type, Choices: choices}, nil
	case magazine.TypeFreeText:
		text := core.SanitizeText(sub.Text)
		if text == "" {
			return Answer{}, invalid("text", "this field is required")
		}
		return Answer{Kind: ex.Type, Text: text}, nil
	case magazine.TypeDrawing:
		if !core.IsImageDataURL(sub.Drawing) {
			return Answer{}, invalid("drawing", "drawing must be an encoded image")
		}
		return Answer{Kind: ex.Type, Drawing: sub.Drawing}, nil
	}
	return Answer{}, ErrInvalidAnswer
}

type (
	Repository interface {
		QueryAllResponses() []Response
		SaveResponse(ctx context.Context, resp Response) error
	}

	Service struct {
		repo     Repository
		maxBytes int64
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, maxBytes: conf.MaxUploadBytes}
}

// Submit saves the actor's answer to an exercise of mag, replacing any previous one.
func (svc *Service) Submit(ctx context.Context, actor user.User, mag magazine.Magazine, exerciseID string, sub Submission) (Response, error) {
	if !actor.IsActive() || !magazine.CanRead(actor, mag) {
		return Response{}, core.ErrForbidden
	}
	ex, _, ok := mag.FindExercise(exerciseID)
	if !ok {
		return Response{}, magazine.ErrExerciseNotFound
	}
	if int64(len(sub.Drawing)) > svc.maxBytes {
		return Response{}, magazine.ErrUploadTooLarge
	}
	answer, err := NewAnswer(ex, sub)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		ID:         Key(mag.ID, ex.ID, actor.ID),
		MagazineID: mag.ID,
		ExerciseID: ex.ID,
		UserID:     actor.ID,
		Answer:     answer,
		Timestamp:  core.NowMillis(),
	}
	if err := svc.repo.SaveResponse(ctx, resp); err != nil {
		return Response{}, errors.Wrap(err, "saving response")
	}
	return resp, nil
}

// ForUser returns the latest response of userID to each exercise of a magazine, by exercise id.
func (svc *Service) ForUser(magazineID, userID string) map[string]Response {
	res := make(map[string]Response)
	for _, r := range svc.repo.QueryAllResponses() {
		if r.MagazineID != magazineID || r.UserID != userID {
			continue
		}
		if prev, ok := res[r.ExerciseID]; !ok || r.Timestamp > prev.Timestamp {
			res[r.ExerciseID] = r
		}
	}
	return res
}

package reader

import (
	"context"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/response"
)

type MarkerState string

const (
	MarkerPending   MarkerState = "pending"
	MarkerCompleted MarkerState = "completed"
	MarkerLink      MarkerState = "link"
)

// Marker is an exercise anchored on the current page.
type Marker struct {
	Exercise magazine.Exercise `json:"exercise"`
	State    MarkerState       `json:"state"`
	Answer   *response.Answer  `json:"answer,omitempty"` // prior answer of the reader, read-only
}

// Markers returns the exercise markers of the current page.
func (r *Reader) Markers() ([]Marker, error) {
	responses := r.svc.responses.ForUser(r.Magazine().ID, r.usr.ID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkPaged(); err != nil {
		return nil, err
	}
	return r.markers(responses), nil
}

// markers must be called with r.mu held.
func (r *Reader) markers(responses map[string]response.Response) []Marker {
	markers := make([]Marker, 0)
	if r.page >= len(r.mag.Pages) {
		return markers
	}
	for _, ex := range r.mag.Pages[r.page].Exercises {
		m := Marker{Exercise: ex, State: MarkerPending}
		if ex.Type == magazine.TypeHyperlink {
			m.State = MarkerLink
		} else if resp, ok := responses[ex.ID]; ok {
			answer := resp.Answer
			m.State = MarkerCompleted
			m.Answer = &answer
		}
		markers = append(markers, m)
	}
	return markers
}

// ToggleAuthoring switches authoring mode for teachers and editors allowed to edit the
// magazine. It has no effect outside the paged state. Returns the resulting mode.
func (r *Reader) ToggleAuthoring() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaged || !magazine.CanAuthor(r.usr, r.mag) {
		return r.authoring
	}
	r.authoring = !r.authoring
	return r.authoring
}

func (r *Reader) Authoring() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authoring
}

func (r *Reader) authoringPage() (string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkPaged(); err != nil {
		return "", 0, err
	}
	if !r.authoring {
		return "", 0, ErrNotAuthoring
	}
	return r.mag.ID, r.page, nil
}

// PlaceExercise adds an exercise on the current page at the (x%, y%) position of ne.
func (r *Reader) PlaceExercise(ctx context.Context, ne magazine.NewExercise) (magazine.Exercise, error) {
	magID, page, err := r.authoringPage()
	if err != nil {
		return magazine.Exercise{}, err
	}
	mag, ex, err := r.svc.magazines.AddExercise(ctx, r.usr, magID, page, ne)
	if err != nil {
		return magazine.Exercise{}, err
	}
	r.setMagazine(mag)
	return ex, nil
}

func (r *Reader) RemoveExercise(ctx context.Context, exerciseID string) error {
	magID, _, err := r.authoringPage()
	if err != nil {
		return err
	}
	mag, err := r.svc.magazines.RemoveExercise(ctx, r.usr, magID, exerciseID)
	if err != nil {
		return err
	}
	r.setMagazine(mag)
	return nil
}

func (r *Reader) setMagazine(mag magazine.Magazine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateClosed && r.mag.ID == mag.ID {
		r.mag = mag
	}
}

// Outcome is the result of activating an exercise: the saved response,
// or the URL to navigate to for link exercises.
type Outcome struct {
	Response *response.Response `json:"response,omitempty"`
	URL      string             `json:"url,omitempty"`
}

// Submit answers an exercise of the magazine.
func (r *Reader) Submit(ctx context.Context, exerciseID string, sub response.Submission) (Outcome, error) {
	r.mu.Lock()
	if err := r.checkPaged(); err != nil {
		r.mu.Unlock()
		return Outcome{}, err
	}
	mag := r.mag
	r.mu.Unlock()

	ex, _, ok := mag.FindExercise(exerciseID)
	if !ok {
		return Outcome{}, magazine.ErrExerciseNotFound
	}
	if ex.Type == magazine.TypeHyperlink {
		if !r.usr.IsActive() {
			return Outcome{}, core.ErrForbidden
		}
		return Outcome{URL: ex.URL}, nil
	}

	resp, err := r.svc.responses.Submit(ctx, r.usr, mag, exerciseID, sub)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Response: &resp}, nil
}

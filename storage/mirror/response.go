package mirror

import (
	"context"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/response"
)

type (
	answerDoc struct {
		Kind    string   `json:"kind" firestore:"kind"`
		Text    string   `json:"text,omitempty" firestore:"text,omitempty"`
		Choices []string `json:"choices,omitempty" firestore:"choices,omitempty"`
		Drawing string   `json:"drawing,omitempty" firestore:"drawing,omitempty"`
	}

	responseDoc struct {
		ID         string    `json:"id" firestore:"id"`
		MagazineID string    `json:"magazineId" firestore:"magazineId"`
		ExerciseID string    `json:"exerciseId" firestore:"exerciseId"`
		UserID     string    `json:"userId" firestore:"userId"`
		Answer     answerDoc `json:"answer" firestore:"answer"`
		Timestamp  int64     `json:"timestamp" firestore:"timestamp"`
	}
)

func toResponse(id string, d responseDoc) response.Response {
	return response.Response{
		ID:         id,
		MagazineID: d.MagazineID,
		ExerciseID: d.ExerciseID,
		UserID:     d.UserID,
		Answer:     response.Answer(d.Answer),
		Timestamp:  d.Timestamp,
	}
}

type responseRepository struct {
	store *Store
}

var _ response.Repository = (*responseRepository)(nil)

func NewResponseRepository(store *Store) response.Repository {
	return &responseRepository{store: store}
}

func (repo *responseRepository) QueryAllResponses() []response.Response {
	return list(repo.store, core.CollResponses, toResponse)
}

func (repo *responseRepository) SaveResponse(ctx context.Context, resp response.Response) error {
	return repo.store.Set(ctx, core.CollResponses, resp.ID, responseDoc{
		ID:         resp.ID,
		MagazineID: resp.MagazineID,
		ExerciseID: resp.ExerciseID,
		UserID:     resp.UserID,
		Answer:     answerDoc(resp.Answer),
		Timestamp:  resp.Timestamp,
	})
}

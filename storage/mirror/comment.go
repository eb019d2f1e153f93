package mirror

import (
	"context"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/comment"
)

type commentDoc struct {
	ID         string `json:"id" firestore:"id"`
	MagazineID string `json:"magazineId" firestore:"magazineId"`
	UserID     string `json:"userId" firestore:"userId"`
	UserName   string `json:"userName" firestore:"userName"`
	UserAvatar string `json:"userAvatar,omitempty" firestore:"userAvatar,omitempty"`
	Text       string `json:"text" firestore:"text"`
	Timestamp  int64  `json:"timestamp" firestore:"timestamp"`
}

func toComment(id string, d commentDoc) comment.Comment {
	c := comment.Comment(d)
	c.ID = id
	return c
}

type commentRepository struct {
	store *Store
}

var _ comment.Repository = (*commentRepository)(nil)

func NewCommentRepository(store *Store) comment.Repository {
	return &commentRepository{store: store}
}

func (repo *commentRepository) QueryAllComments() []comment.Comment {
	return list(repo.store, core.CollComments, toComment)
}

func (repo *commentRepository) SaveComment(ctx context.Context, c comment.Comment) error {
	return repo.store.Set(ctx, core.CollComments, c.ID, commentDoc(c))
}

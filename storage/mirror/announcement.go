package mirror

import (
	"context"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
)

type announcementDoc struct {
	ID         string `json:"id" firestore:"id"`
	ClassID    string `json:"classId" firestore:"classId"`
	Title      string `json:"title" firestore:"title"`
	Message    string `json:"message" firestore:"message"`
	AuthorName string `json:"authorName" firestore:"authorName"`
	Date       string `json:"date" firestore:"date"`
	CreatedAt  int64  `json:"createdAt" firestore:"createdAt"`
}

func toAnnouncement(id string, d announcementDoc) announcement.Announcement {
	ann := announcement.Announcement(d)
	ann.ID = id
	return ann
}

type announcementRepository struct {
	store *Store
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(store *Store) announcement.Repository {
	return &announcementRepository{store: store}
}

func (repo *announcementRepository) QueryAllAnnouncements() []announcement.Announcement {
	return list(repo.store, core.CollAnnouncements, toAnnouncement)
}

func (repo *announcementRepository) SaveAnnouncement(ctx context.Context, ann announcement.Announcement) error {
	return repo.store.Set(ctx, core.CollAnnouncements, ann.ID, announcementDoc(ann))
}

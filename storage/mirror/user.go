package mirror

import (
	"context"
	"strings"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/user"
)

type userDoc struct {
	ID                  string   `json:"id" firestore:"id"`
	Name                string   `json:"name" firestore:"name"`
	Email               string   `json:"email,omitempty" firestore:"email,omitempty"`
	Password            string   `json:"password,omitempty" firestore:"password,omitempty"` // bcrypt hash
	Role                string   `json:"role" firestore:"role"`
	ClassID             string   `json:"classId,omitempty" firestore:"classId,omitempty"`
	IsApproved          bool     `json:"isApproved" firestore:"isApproved"`
	ProfilePicture      string   `json:"profilePicture,omitempty" firestore:"profilePicture,omitempty"`
	ViewedAnnouncements []string `json:"viewedAnnouncements,omitempty" firestore:"viewedAnnouncements,omitempty"`
	CreatedAt           int64    `json:"createdAt" firestore:"createdAt"`
}

func newUserDoc(u user.User) userDoc {
	return userDoc{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Password:            string(u.PasswordHash),
		Role:                u.Role,
		ClassID:             u.ClassID,
		IsApproved:          u.IsApproved,
		ProfilePicture:      u.ProfilePicture,
		ViewedAnnouncements: u.ViewedAnnouncements,
		CreatedAt:           u.CreatedAt,
	}
}

func toUser(id string, d userDoc) user.User {
	usr := user.User{
		ID:                  id,
		Name:                d.Name,
		Email:               d.Email,
		Role:                d.Role,
		ClassID:             d.ClassID,
		IsApproved:          d.IsApproved,
		ProfilePicture:      d.ProfilePicture,
		ViewedAnnouncements: d.ViewedAnnouncements,
		CreatedAt:           d.CreatedAt,
	}
	if d.Password != "" {
		usr.PasswordHash = []byte(d.Password)
	}
	return usr
}

type userRepository struct {
	store *Store
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(store *Store) user.Repository {
	return &userRepository{store: store}
}

func (repo *userRepository) QueryAllUsers() []user.User {
	return list(repo.store, core.CollUsers, toUser)
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	return get(repo.store, core.CollUsers, id, toUser, user.ErrNotFound)
}

func (repo *userRepository) GetUserByName(name string) (user.User, error) {
	name = strings.ToLower(core.CleanString(name))
	for _, usr := range repo.QueryAllUsers() {
		if strings.ToLower(core.CleanString(usr.Name)) == name {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FetchUser(ctx context.Context, id string) (user.User, error) {
	return fetch(ctx, repo.store, core.CollUsers, id, toUser, user.ErrNotFound)
}

func (repo *userRepository) SaveUser(ctx context.Context, usr user.User) error {
	return repo.store.Set(ctx, core.CollUsers, usr.ID, newUserDoc(usr))
}

func (repo *userRepository) SetApproved(ctx context.Context, id string) error {
	return repo.store.Merge(ctx, core.CollUsers, id, map[string]interface{}{"isApproved": true})
}

func (repo *userRepository) AddViewedAnnouncement(ctx context.Context, id, announcementID string) error {
	return repo.store.AddToSetLocal(ctx, core.CollUsers, id, "viewedAnnouncements", announcementID)
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	return repo.store.Delete(ctx, core.CollUsers, id)
}

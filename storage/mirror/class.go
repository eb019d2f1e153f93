package mirror

import (
	"context"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/class"
)

type classDoc struct {
	ID   string `json:"id" firestore:"id"`
	Name string `json:"name" firestore:"name"`
}

func toClass(id string, d classDoc) class.Class {
	return class.Class{ID: id, Name: d.Name}
}

type classRepository struct {
	store *Store
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(store *Store) class.Repository {
	return &classRepository{store: store}
}

func (repo *classRepository) QueryAllClasses() []class.Class {
	return list(repo.store, core.CollClasses, toClass)
}

func (repo *classRepository) GetClassByID(id string) (class.Class, error) {
	return get(repo.store, core.CollClasses, id, toClass, class.ErrNotFound)
}

func (repo *classRepository) SaveClass(ctx context.Context, cls class.Class) error {
	return repo.store.Set(ctx, core.CollClasses, cls.ID, classDoc{ID: cls.ID, Name: cls.Name})
}

func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	return repo.store.Delete(ctx, core.CollClasses, id)
}

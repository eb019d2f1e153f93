package class

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/user"
)

var ErrNotFound = errors.New("class not found")

type Class struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClassData is used to create or rename a Class.
type ClassData struct {
	Name string `json:"name" validate:"required,notblank"`
}

func (cd *ClassData) Validate(validate *validator.Validate) error {
	cd.Name = core.CleanString(cd.Name)
	return validate.Struct(cd)
}

type (
	Repository interface {
		QueryAllClasses() []Class
		GetClassByID(id string) (Class, error)
		SaveClass(ctx context.Context, cls Class) error
		DeleteClass(ctx context.Context, id string) error
	}

	// Service manages classes. Only editors may mutate them.
	// Deleting a class does not cascade: users, magazines, attendances and
	// announcements keep referencing the removed id.
	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// QueryAll returns every class sorted by name.
func (svc *Service) QueryAll() []Class {
	classes := svc.repo.QueryAllClasses()
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes
}

func (svc *Service) GetByID(id string) (Class, error) {
	return svc.repo.GetClassByID(id)
}

func (svc *Service) Create(ctx context.Context, actor user.User, data ClassData) (Class, error) {
	if !actor.IsEditor() {
		return Class{}, core.ErrForbidden
	}
	cls := Class{ID: core.NewID("c"), Name: data.Name}
	if err := svc.repo.SaveClass(ctx, cls); err != nil {
		return Class{}, errors.Wrap(err, "saving class")
	}
	return cls, nil
}

func (svc *Service) Rename(ctx context.Context, actor user.User, id string, data ClassData) (Class, error) {
	if !actor.IsEditor() {
		return Class{}, core.ErrForbidden
	}
	cls, err := svc.repo.GetClassByID(id)
	if err != nil {
		return Class{}, err
	}
	cls.Name = data.Name
	if err := svc.repo.SaveClass(ctx, cls); err != nil {
		return Class{}, errors.Wrap(err, "saving class")
	}
	return cls, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if !actor.IsEditor() {
		return core.ErrForbidden
	}
	if _, err := svc.repo.GetClassByID(id); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id)
}

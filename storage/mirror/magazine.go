package mirror

import (
	"context"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/magazine"
)

type (
	exerciseDoc struct {
		ID        string   `json:"id" firestore:"id"`
		Type      string   `json:"type" firestore:"type"`
		Question  string   `json:"question" firestore:"question"`
		Options   []string `json:"options,omitempty" firestore:"options,omitempty"`
		URL       string   `json:"url,omitempty" firestore:"url,omitempty"`
		X         float64  `json:"x" firestore:"x"`
		Y         float64  `json:"y" firestore:"y"`
		CreatedAt int64    `json:"createdAt" firestore:"createdAt"`
	}

	pageDoc struct {
		ID         string        `json:"id" firestore:"id"`
		PageNumber int           `json:"pageNumber" firestore:"pageNumber"`
		ImageURL   string        `json:"imageUrl" firestore:"imageUrl"`
		Exercises  []exerciseDoc `json:"exercises" firestore:"exercises"`
	}

	magazineDoc struct {
		ID          string    `json:"id" firestore:"id"`
		Title       string    `json:"title" firestore:"title"`
		Description string    `json:"description" firestore:"description"`
		CoverURL    string    `json:"coverUrl" firestore:"coverUrl"`
		Pages       []pageDoc `json:"pages" firestore:"pages"`
		PDFURL      string    `json:"pdfUrl,omitempty" firestore:"pdfUrl,omitempty"`
		ClassID     string    `json:"classId" firestore:"classId"`
		CreatedAt   int64     `json:"createdAt" firestore:"createdAt"`
	}
)

func newMagazineDoc(m magazine.Magazine) magazineDoc {
	pages := make([]pageDoc, 0, len(m.Pages))
	for _, p := range m.Pages {
		exercises := make([]exerciseDoc, 0, len(p.Exercises))
		for _, ex := range p.Exercises {
			exercises = append(exercises, exerciseDoc(ex))
		}
		pages = append(pages, pageDoc{
			ID:         p.ID,
			PageNumber: p.PageNumber,
			ImageURL:   p.ImageURL,
			Exercises:  exercises,
		})
	}
	return magazineDoc{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CoverURL:    m.CoverURL,
		Pages:       pages,
		PDFURL:      m.PDFURL,
		ClassID:     m.ClassID,
		CreatedAt:   m.CreatedAt,
	}
}

func toMagazine(id string, d magazineDoc) magazine.Magazine {
	pages := make([]magazine.Page, 0, len(d.Pages))
	for _, p := range d.Pages {
		exercises := make([]magazine.Exercise, 0, len(p.Exercises))
		for _, ex := range p.Exercises {
			exercises = append(exercises, magazine.Exercise(ex))
		}
		pages = append(pages, magazine.Page{
			ID:         p.ID,
			PageNumber: p.PageNumber,
			ImageURL:   p.ImageURL,
			Exercises:  exercises,
		})
	}
	return magazine.Magazine{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		CoverURL:    d.CoverURL,
		Pages:       pages,
		PDFURL:      d.PDFURL,
		ClassID:     d.ClassID,
		CreatedAt:   d.CreatedAt,
	}
}

type magazineRepository struct {
	store *Store
}

var _ magazine.Repository = (*magazineRepository)(nil)

func NewMagazineRepository(store *Store) magazine.Repository {
	return &magazineRepository{store: store}
}

func (repo *magazineRepository) QueryAllMagazines() []magazine.Magazine {
	return list(repo.store, core.CollMagazines, toMagazine)
}

func (repo *magazineRepository) GetMagazineByID(id string) (magazine.Magazine, error) {
	return get(repo.store, core.CollMagazines, id, toMagazine, magazine.ErrNotFound)
}

func (repo *magazineRepository) SaveMagazine(ctx context.Context, mag magazine.Magazine) error {
	return repo.store.Set(ctx, core.CollMagazines, mag.ID, newMagazineDoc(mag))
}

func (repo *magazineRepository) DeleteMagazine(ctx context.Context, id string) error {
	return repo.store.Delete(ctx, core.CollMagazines, id)
}

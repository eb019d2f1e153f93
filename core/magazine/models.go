package magazine

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ebd/core"
)

// Exercise types
const (
	TypeMultipleChoice = "mcq"
	TypeFreeText       = "text"
	TypeDrawing        = "drawing"
	TypeHyperlink      = "link"
	TypeCheckboxes     = "checkboxes"
)

const (
	PlaceholderCover   = "https://via.placeholder.com/300x400"
	DefaultDescription = "Nova lição publicada."
	PlaceholderPages   = 10
)

var ExerciseTypes = []string{TypeMultipleChoice, TypeFreeText, TypeDrawing, TypeHyperlink, TypeCheckboxes}

type (
	Exercise struct {
		ID        string   `json:"id"`
		Type      string   `json:"type"`
		Question  string   `json:"question"`
		Options   []string `json:"options,omitempty"`
		URL       string   `json:"url,omitempty"`
		X         float64  `json:"x"` // percent of the page width
		Y         float64  `json:"y"` // percent of the page height
		CreatedAt int64    `json:"createdAt"`
	}

	Page struct {
		ID         string     `json:"id"`
		PageNumber int        `json:"pageNumber"`
		ImageURL   string     `json:"imageUrl"`
		Exercises  []Exercise `json:"exercises"`
	}

	Magazine struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		CoverURL    string `json:"coverUrl"`
		Pages       []Page `json:"pages"`
		PDFURL      string `json:"pdfUrl,omitempty"`
		ClassID     string `json:"classId"`
		CreatedAt   int64  `json:"createdAt"`
	}
)

// IsChoice tells whether the exercise is answered by picking options.
func (ex Exercise) IsChoice() bool {
	return ex.Type == TypeMultipleChoice || ex.Type == TypeCheckboxes
}

// HasOption tells whether opt is one of the exercise options.
func (ex Exercise) HasOption(opt string) bool {
	for _, o := range ex.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// FindExercise returns the exercise with the given id and the index of its page.
func (m *Magazine) FindExercise(id string) (Exercise, int, bool) {
	for pi, page := range m.Pages {
		for _, ex := range page.Exercises {
			if ex.ID == id {
				return ex, pi, true
			}
		}
	}
	return Exercise{}, -1, false
}

// HasImages tells whether every page has a pre-rendered image.
func (m *Magazine) HasImages() bool {
	if len(m.Pages) == 0 {
		return false
	}
	for _, p := range m.Pages {
		if p.ImageURL == "" {
			return false
		}
	}
	return true
}

func newPages(count int) []Page {
	pages := make([]Page, 0, count)
	for i := 0; i < count; i++ {
		pages = append(pages, Page{
			ID:         core.NewID("pg"),
			PageNumber: i + 1,
			Exercises:  []Exercise{},
		})
	}
	return pages
}

// Upload is a local file sent with a publish request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewMagazine contains information needed to publish a Magazine.
// One of PDFURL or File is required; Cover is optional.
type NewMagazine struct {
	Title       string  `json:"title" validate:"required,notblank"`
	Description string  `json:"description"`
	ClassID     string  `json:"classId" validate:"required"`
	PDFURL      string  `json:"pdfUrl" validate:"omitempty,url"`
	File        *Upload `json:"-"`
	Cover       *Upload `json:"-"`
}

// Validate rejects a local file above maxBytes unless an external link is also provided.
func (nm *NewMagazine) Validate(validate *validator.Validate, maxBytes int64) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.ClassID = core.CleanString(nm.ClassID)
	nm.PDFURL = core.CleanString(nm.PDFURL)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.PDFURL == "" {
		if nm.File == nil || len(nm.File.Data) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "pdfUrl", Error: "a document link or file is required"})
		}
		if int64(len(nm.File.Data)) > maxBytes {
			return ErrUploadTooLarge
		}
	}
	if nm.Cover != nil && int64(len(nm.Cover.Data)) > maxBytes {
		return ErrUploadTooLarge
	}
	return nil
}

// UpdateMagazine defines what information may be provided to modify an existing Magazine.
type UpdateMagazine struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ClassID     string  `json:"classId"`
	PDFURL      string  `json:"pdfUrl" validate:"omitempty,url"`
	Cover       *Upload `json:"-"`
}

func (um *UpdateMagazine) Validate(orig Magazine, validate *validator.Validate, maxBytes int64) error {
	if title := core.CleanString(um.Title); title != "" {
		um.Title = title
	} else {
		um.Title = orig.Title
	}
	if desc := core.CleanString(um.Description); desc != "" {
		um.Description = desc
	} else {
		um.Description = orig.Description
	}
	if classID := core.CleanString(um.ClassID); classID != "" {
		um.ClassID = classID
	} else {
		um.ClassID = orig.ClassID
	}
	if pdfURL := core.CleanString(um.PDFURL); pdfURL != "" {
		um.PDFURL = pdfURL
	} else {
		um.PDFURL = orig.PDFURL
	}

	if err := validate.Struct(um); err != nil {
		return err
	}
	if um.Cover != nil && int64(len(um.Cover.Data)) > maxBytes {
		return ErrUploadTooLarge
	}
	return nil
}

// NewExercise contains information needed to author an Exercise.
type NewExercise struct {
	Type     string   `json:"type" validate:"required,oneof=mcq text drawing link checkboxes"`
	Question string   `json:"question" validate:"required,notblank"`
	Options  []string `json:"options"`
	URL      string   `json:"url" validate:"omitempty,url"`
	X        float64  `json:"x" validate:"percent"`
	Y        float64  `json:"y" validate:"percent"`
}

// Validate drops blank options, then requires options for choice types and an URL for links.
func (ne *NewExercise) Validate(validate *validator.Validate) error {
	ne.Type = core.CleanString(ne.Type, true /* lower */)
	ne.Question = core.CleanString(ne.Question)
	ne.URL = core.CleanString(ne.URL)

	opts := make([]string, 0, len(ne.Options))
	for _, o := range ne.Options {
		if o = core.CleanString(o); o != "" {
			opts = append(opts, o)
		}
	}
	ne.Options = opts

	if err := validate.Struct(ne); err != nil {
		return err
	}
	switch ne.Type {
	case TypeMultipleChoice, TypeCheckboxes:
		if len(ne.Options) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "options", Error: "at least one option is required"})
		}
	case TypeHyperlink:
		if ne.URL == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "url", Error: "this field is required"})
		}
		ne.Options = nil
	default:
		ne.Options = nil
	}
	return nil
}

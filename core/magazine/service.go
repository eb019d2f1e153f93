package magazine

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("magazine not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrPageNotFound     = errors.New("page not found")
	ErrUploadTooLarge   = errors.New("file is too large, use an external link instead")
)

type (
	Repository interface {
		QueryAllMagazines() []Magazine
		GetMagazineByID(id string) (Magazine, error)
		SaveMagazine(ctx context.Context, mag Magazine) error
		DeleteMagazine(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		blobs    core.BlobStore
		renderer core.Renderer
		logger   core.Logger
		maxBytes int64
	}
)

func NewService(repo Repository, blobs core.BlobStore, renderer core.Renderer, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		renderer: renderer,
		logger:   logger,
		maxBytes: conf.MaxUploadBytes,
	}
}

// MaxUploadBytes is the largest local file accepted by Publish and Update.
func (svc *Service) MaxUploadBytes() int64 { return svc.maxBytes }

// fits reports whether data stays within maxBytes once stored, which for data URLs
// includes the base64 overhead.
func (svc *Service) fits(contentType string, data []byte) bool {
	return core.StoredSize(svc.blobs, contentType, len(data)) <= svc.maxBytes
}

// QueryAll returns every magazine, newest first.
func (svc *Service) QueryAll() []Magazine {
	mags := svc.repo.QueryAllMagazines()
	sortNewestFirst(mags)
	return mags
}

// QueryByClass returns the magazines targeted at classID, newest first.
func (svc *Service) QueryByClass(classID string) []Magazine {
	all := svc.repo.QueryAllMagazines()
	mags := make([]Magazine, 0, len(all))
	for _, m := range all {
		if m.ClassID == classID {
			mags = append(mags, m)
		}
	}
	sortNewestFirst(mags)
	return mags
}

func (svc *Service) GetByID(id string) (Magazine, error) {
	return svc.repo.GetMagazineByID(id)
}

// Publish creates a magazine from an external document link or a small local file.
// Pages are sized after the document when it can be opened, otherwise PlaceholderPages
// empty pages are created. The cover is the first rendered page, the uploaded cover, or
// PlaceholderCover.
func (svc *Service) Publish(ctx context.Context, actor user.User, nm NewMagazine) (Magazine, error) {
	if !actor.IsEditor() {
		return Magazine{}, core.ErrForbidden
	}
	if nm.PDFURL == "" {
		if nm.File == nil || len(nm.File.Data) == 0 {
			return Magazine{}, core.NewValidationError(nil, core.FieldError{Field: "pdfUrl", Error: "a document link or file is required"})
		}
		if !svc.fits(nm.File.ContentType, nm.File.Data) {
			return Magazine{}, ErrUploadTooLarge
		}
	}
	if nm.Cover != nil && !svc.fits(nm.Cover.ContentType, nm.Cover.Data) {
		return Magazine{}, ErrUploadTooLarge
	}

	mag := Magazine{
		ID:          core.NewID("mag"),
		Title:       nm.Title,
		Description: nm.Description,
		PDFURL:      nm.PDFURL,
		ClassID:     nm.ClassID,
		CreatedAt:   core.NowMillis(),
	}
	if mag.Description == "" {
		mag.Description = DefaultDescription
	}

	if mag.PDFURL == "" {
		url, err := svc.blobs.Upload(ctx, blobName(mag.ID, nm.File.Filename), nm.File.ContentType, nm.File.Data)
		if err != nil {
			return Magazine{}, errors.Wrap(err, "uploading document")
		}
		mag.PDFURL = url
	}

	pageCount, cover := svc.inspect(ctx, mag)
	if pageCount <= 0 {
		pageCount = PlaceholderPages
	}
	mag.Pages = newPages(pageCount)

	mag.CoverURL = PlaceholderCover
	if nm.Cover != nil {
		url, err := svc.blobs.Upload(ctx, blobName(mag.ID, nm.Cover.Filename), nm.Cover.ContentType, nm.Cover.Data)
		if err != nil {
			return Magazine{}, errors.Wrap(err, "uploading cover")
		}
		mag.CoverURL = url
	} else if cover != "" {
		mag.CoverURL = cover
	}

	if err := svc.repo.SaveMagazine(ctx, mag); err != nil {
		return Magazine{}, errors.Wrap(err, "saving magazine")
	}
	return mag, nil
}

// inspect opens the magazine document and returns its page count and a cover
// made from its first page, when the renderer produced an image of it.
// Failures are logged and yield zero values.
func (svc *Service) inspect(ctx context.Context, mag Magazine) (int, string) {
	if svc.renderer == nil {
		return 0, ""
	}
	doc, err := svc.renderer.Open(ctx, mag.PDFURL)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("opening document of magazine %s: %v", mag.ID, err), err)
		return 0, ""
	}
	defer doc.Close()

	img, err := doc.Render(ctx, 0)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("rendering cover of magazine %s: %v", mag.ID, err), err)
		return doc.PageCount(), ""
	}
	if img.URL != "" {
		return doc.PageCount(), img.URL
	}
	if !strings.HasPrefix(img.ContentType, "image/") || !svc.fits(img.ContentType, img.Data) {
		return doc.PageCount(), ""
	}
	url, err := svc.blobs.Upload(ctx, blobName(mag.ID, "cover"), img.ContentType, img.Data)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("uploading cover of magazine %s: %v", mag.ID, err), err)
		return doc.PageCount(), ""
	}
	return doc.PageCount(), url
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, um UpdateMagazine) (Magazine, error) {
	if !actor.IsEditor() {
		return Magazine{}, core.ErrForbidden
	}
	mag, err := svc.repo.GetMagazineByID(id)
	if err != nil {
		return Magazine{}, err
	}
	if um.Cover != nil && !svc.fits(um.Cover.ContentType, um.Cover.Data) {
		return Magazine{}, ErrUploadTooLarge
	}
	mag.Title = um.Title
	mag.Description = um.Description
	mag.ClassID = um.ClassID
	mag.PDFURL = um.PDFURL
	if um.Cover != nil {
		url, err := svc.blobs.Upload(ctx, blobName(mag.ID, um.Cover.Filename), um.Cover.ContentType, um.Cover.Data)
		if err != nil {
			return Magazine{}, errors.Wrap(err, "uploading cover")
		}
		mag.CoverURL = url
	}
	if err := svc.repo.SaveMagazine(ctx, mag); err != nil {
		return Magazine{}, errors.Wrap(err, "saving magazine")
	}
	return mag, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if !actor.IsEditor() {
		return core.ErrForbidden
	}
	if _, err := svc.repo.GetMagazineByID(id); err != nil {
		return err
	}
	return svc.repo.DeleteMagazine(ctx, id)
}

// CanRead tells whether mag belongs to actor's class. Editors read every magazine.
func CanRead(actor user.User, mag Magazine) bool {
	return actor.IsEditor() || (actor.ClassID != "" && actor.ClassID == mag.ClassID)
}

// CanAuthor tells whether actor may place or remove exercises in mag.
func CanAuthor(actor user.User, mag Magazine) bool {
	if !actor.CanAuthor() {
		return false
	}
	return CanRead(actor, mag)
}

// AddExercise appends a new exercise to the page at pageIndex and persists the whole magazine.
func (svc *Service) AddExercise(ctx context.Context, actor user.User, magID string, pageIndex int, ne NewExercise) (Magazine, Exercise, error) {
	mag, err := svc.repo.GetMagazineByID(magID)
	if err != nil {
		return Magazine{}, Exercise{}, err
	}
	if !CanAuthor(actor, mag) {
		return Magazine{}, Exercise{}, core.ErrForbidden
	}
	if pageIndex < 0 || pageIndex >= len(mag.Pages) {
		return Magazine{}, Exercise{}, ErrPageNotFound
	}

	ex := Exercise{
		ID:        core.NewID("ex"),
		Type:      ne.Type,
		Question:  ne.Question,
		Options:   ne.Options,
		URL:       ne.URL,
		X:         ne.X,
		Y:         ne.Y,
		CreatedAt: core.NowMillis(),
	}
	page := &mag.Pages[pageIndex]
	exercises := make([]Exercise, 0, len(page.Exercises)+1)
	exercises = append(exercises, page.Exercises...)
	page.Exercises = append(exercises, ex)

	if err := svc.repo.SaveMagazine(ctx, mag); err != nil {
		return Magazine{}, Exercise{}, errors.Wrap(err, "saving magazine")
	}
	return mag, ex, nil
}

// RemoveExercise removes an exercise by id from its page and persists the whole magazine.
func (svc *Service) RemoveExercise(ctx context.Context, actor user.User, magID, exerciseID string) (Magazine, error) {
	mag, err := svc.repo.GetMagazineByID(magID)
	if err != nil {
		return Magazine{}, err
	}
	if !CanAuthor(actor, mag) {
		return Magazine{}, core.ErrForbidden
	}
	_, pi, ok := mag.FindExercise(exerciseID)
	if !ok {
		return Magazine{}, ErrExerciseNotFound
	}

	page := &mag.Pages[pi]
	exercises := make([]Exercise, 0, len(page.Exercises))
	for _, ex := range page.Exercises {
		if ex.ID != exerciseID {
			exercises = append(exercises, ex)
		}
	}
	page.Exercises = exercises

	if err := svc.repo.SaveMagazine(ctx, mag); err != nil {
		return Magazine{}, errors.Wrap(err, "saving magazine")
	}
	return mag, nil
}

func blobName(magID, filename string) string {
	if filename == "" {
		filename = "file"
	}
	return path.Join("magazines", magID, path.Base(filename))
}

func sortNewestFirst(mags []Magazine) {
	sort.SliceStable(mags, func(i, j int) bool {
		if mags[i].CreatedAt == mags[j].CreatedAt {
			return mags[i].ID < mags[j].ID
		}
		return mags[i].CreatedAt > mags[j].CreatedAt
	})
}

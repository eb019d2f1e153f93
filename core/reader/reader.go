// Package reader displays a magazine page by page, with its exercises overlaid.
//
// A Reader starts resolving the magazine source document in the background. Once the
// document opens it is paged: pages are rendered one at a time and exercise markers are
// shown on top of them. When the document cannot be opened the reader falls back to
// embedding the source link, without navigation, overlay or authoring.
package reader

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/response"
	"github.com/trezcool/ebd/core/user"
)

type State string

const (
	StateResolving State = "resolving"
	StatePaged     State = "paged"
	StateEmbedded  State = "embedded"
	StateClosed    State = "closed"
)

var (
	// errors
	ErrNotPaged     = errors.New("the magazine is not displayed page by page")
	ErrClosed       = errors.New("reader is closed")
	ErrStaleRender  = errors.New("page changed while rendering")
	ErrNotAuthoring = errors.New("authoring mode is off")
)

type Service struct {
	renderer  core.Renderer
	magazines *magazine.Service
	responses *response.Service
	logger    core.Logger
}

func NewService(renderer core.Renderer, magazines *magazine.Service, responses *response.Service, logger core.Logger) *Service {
	return &Service{
		renderer:  renderer,
		magazines: magazines,
		responses: responses,
		logger:    logger,
	}
}

type Reader struct {
	svc *Service
	usr user.User

	mu         sync.Mutex
	mag        magazine.Magazine
	state      State
	doc        core.RenderedDocument
	page       int
	pageCount  int
	generation uint64
	authoring  bool
	fallback   error

	ready  chan struct{}
	cancel context.CancelFunc
}

// Open starts reading the magazine magID for usr.
// Magazines without a source document, or with every page pre-rendered, are paged right away.
func (svc *Service) Open(ctx context.Context, usr user.User, magID string) (*Reader, error) {
	if !usr.IsActive() {
		return nil, core.ErrForbidden
	}
	mag, err := svc.magazines.GetByID(magID)
	if err != nil {
		return nil, err
	}
	if !magazine.CanRead(usr, mag) {
		return nil, core.ErrForbidden
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &Reader{
		svc:    svc,
		usr:    usr,
		mag:    mag,
		state:  StateResolving,
		ready:  make(chan struct{}),
		cancel: cancel,
	}

	switch {
	case mag.PDFURL == "" || mag.HasImages():
		r.state = StatePaged
		r.pageCount = len(mag.Pages)
	case svc.renderer == nil:
		r.state = StateEmbedded
		r.fallback = core.ErrSourceUnavailable
	default:
		go r.resolve(ctx)
		return r, nil
	}
	close(r.ready)
	return r, nil
}

func (r *Reader) resolve(ctx context.Context) {
	defer close(r.ready)

	doc, err := r.svc.renderer.Open(ctx, r.mag.PDFURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateClosed {
		if err == nil {
			_ = doc.Close()
		}
		return
	}
	if err != nil {
		r.svc.logger.Warn("opening magazine "+r.mag.ID+": "+err.Error(), err, r.usr)
		r.state = StateEmbedded
		r.fallback = err
		return
	}
	r.doc = doc
	r.pageCount = doc.PageCount()
	r.state = StatePaged
}

// Ready waits until the source document has been resolved.
func (r *Reader) Ready(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reader) Close() {
	r.mu.Lock()
	if r.state == StateClosed {
		r.mu.Unlock()
		return
	}
	r.state = StateClosed
	r.generation++
	r.authoring = false
	doc := r.doc
	r.doc = nil
	r.mu.Unlock()

	r.cancel()
	if doc != nil {
		_ = doc.Close()
	}
}

// Status is a point in time view of a Reader.
type Status struct {
	MagazineID string `json:"magazineId"`
	Title      string `json:"title"`
	State      State  `json:"state"`
	Page       int    `json:"page"`
	PageCount  int    `json:"pageCount"`
	Authoring  bool   `json:"authoring"`
	EmbedURL   string `json:"embedUrl,omitempty"`
}

func (r *Reader) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		MagazineID: r.mag.ID,
		Title:      r.mag.Title,
		State:      r.state,
		Page:       r.page,
		PageCount:  r.pageCount,
		Authoring:  r.authoring,
	}
	if r.state == StateEmbedded {
		st.EmbedURL = r.mag.PDFURL
	}
	return st
}

func (r *Reader) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Fallback returns the error that made the reader embed the source, if any.
func (r *Reader) Fallback() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fallback
}

func (r *Reader) Magazine() magazine.Magazine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mag
}

// Refresh picks up the latest version of the magazine (e.g. after exercises changed).
func (r *Reader) Refresh() error {
	mag, err := r.svc.magazines.GetByID(r.Magazine().ID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.mag = mag
	r.mu.Unlock()
	return nil
}

// Goto moves to the page at index and invalidates renders in flight.
func (r *Reader) Goto(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkPaged(); err != nil {
		return err
	}
	if index < 0 || index >= r.pageCount {
		return core.ErrPageOutOfRange
	}
	r.page = index
	r.generation++
	return nil
}

// checkPaged must be called with r.mu held.
func (r *Reader) checkPaged() error {
	switch r.state {
	case StatePaged:
		return nil
	case StateClosed:
		return ErrClosed
	}
	return ErrNotPaged
}

// Page is the rendition of the current page.
type Page struct {
	Index   int        `json:"index"`
	Number  int        `json:"number"`
	Image   core.Image `json:"image"`
	Markers []Marker   `json:"markers"`
}

type renderTag struct {
	generation uint64
	magazineID string
	page       int
}

// Render renders the current page. A result for a page that is no longer current,
// or for a closed reader, is discarded with ErrStaleRender.
func (r *Reader) Render(ctx context.Context) (Page, error) {
	r.mu.Lock()
	if err := r.checkPaged(); err != nil {
		r.mu.Unlock()
		return Page{}, err
	}
	tag := renderTag{generation: r.generation, magazineID: r.mag.ID, page: r.page}
	doc := r.doc
	var imageURL string
	if r.page < len(r.mag.Pages) {
		imageURL = r.mag.Pages[r.page].ImageURL
	}
	r.mu.Unlock()

	var (
		img core.Image
		err error
	)
	switch {
	case imageURL != "":
		img = core.Image{URL: imageURL}
	case doc != nil:
		img, err = doc.Render(ctx, tag.page)
	default:
		err = core.ErrSourceUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateClosed || r.generation != tag.generation || r.mag.ID != tag.magazineID || r.page != tag.page {
		return Page{}, ErrStaleRender
	}
	if err != nil {
		return Page{}, errors.Wrapf(err, "rendering page %d", tag.page+1)
	}
	return Page{
		Index:   tag.page,
		Number:  tag.page + 1,
		Image:   img,
		Markers: r.markers(r.svc.responses.ForUser(r.mag.ID, r.usr.ID)),
	}, nil
}

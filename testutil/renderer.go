package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/trezcool/ebd/core"
)

// Renderer is a core.Renderer serving documents of Pages pages, or failing with Err.
// Pages render as ContentType, "application/pdf" when empty.
// When Gate is set, page renders announce their index on Started (if set), then wait for a value on Gate.
type Renderer struct {
	Pages       int
	ContentType string
	Err         error
	Gate        chan struct{}
	Started     chan int

	mu     sync.Mutex
	opened []string
}

var _ core.Renderer = (*Renderer)(nil)

func (r *Renderer) Open(ctx context.Context, source string) (core.RenderedDocument, error) {
	r.mu.Lock()
	r.opened = append(r.opened, source)
	r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	return &renderedDoc{r: r}, nil
}

// Opened returns the sources opened so far.
func (r *Renderer) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.opened...)
}

type renderedDoc struct {
	r *Renderer
}

func (d *renderedDoc) PageCount() int { return d.r.Pages }

func (d *renderedDoc) Render(ctx context.Context, index int) (core.Image, error) {
	if d.r.Gate != nil {
		if d.r.Started != nil {
			d.r.Started <- index
		}
		select {
		case <-d.r.Gate:
		case <-ctx.Done():
			return core.Image{}, ctx.Err()
		}
	}
	if index < 0 || index >= d.r.Pages {
		return core.Image{}, core.ErrPageOutOfRange
	}
	contentType := d.r.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	return core.Image{ContentType: contentType, Data: []byte("page " + strconv.Itoa(index+1))}, nil
}

func (d *renderedDoc) Close() error { return nil }

// Package rendersvc opens PDF source documents with pdfcpu and splits them page by page.
package rendersvc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
)

const (
	pdfContentType = "application/pdf"
	maxSourceBytes = 64 << 20
)

type pdfRenderer struct {
	client *http.Client
}

var _ core.Renderer = (*pdfRenderer)(nil)

// NewPDFRenderer returns a Renderer reading sources from http(s) URLs or data URLs.
// Each page renders as a standalone single page PDF.
func NewPDFRenderer() core.Renderer {
	return &pdfRenderer{client: &http.Client{Timeout: 30 * time.Second}}
}

func unavailable(err error) error {
	return errors.Wrap(core.ErrSourceUnavailable, err.Error())
}

func (r *pdfRenderer) Open(ctx context.Context, source string) (core.RenderedDocument, error) {
	data, err := r.fetch(ctx, source)
	if err != nil {
		return nil, unavailable(err)
	}

	conf := model.NewDefaultConfiguration()
	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, unavailable(errors.Wrap(err, "reading document"))
	}
	if count <= 0 {
		return nil, unavailable(errors.New("document has no pages"))
	}
	return &pdfDocument{data: data, pageCount: count, conf: conf}, nil
}

func (r *pdfRenderer) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "data:") {
		_, data, err := core.DecodeDataURL(source)
		return data, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching document")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching document: status %d", res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxSourceBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading document")
	}
	if len(data) > maxSourceBytes {
		return nil, errors.New("document is too large")
	}
	return data, nil
}

var errClosed = errors.New("document closed")

type pdfDocument struct {
	mu        sync.RWMutex
	data      []byte // nil once closed
	pageCount int
	conf      *model.Configuration
}

func (d *pdfDocument) PageCount() int { return d.pageCount }

func (d *pdfDocument) Render(ctx context.Context, index int) (core.Image, error) {
	if index < 0 || index >= d.pageCount {
		return core.Image{}, core.ErrPageOutOfRange
	}
	if err := ctx.Err(); err != nil {
		return core.Image{}, err
	}

	d.mu.RLock()
	data := d.data
	d.mu.RUnlock()
	if data == nil {
		return core.Image{}, unavailable(errClosed)
	}

	var buf bytes.Buffer
	pages := []string{strconv.Itoa(index + 1)}
	if err := api.Trim(bytes.NewReader(data), &buf, pages, d.conf); err != nil {
		return core.Image{}, unavailable(errors.Wrapf(err, "extracting page %d", index+1))
	}
	return core.Image{ContentType: pdfContentType, Data: buf.Bytes()}, nil
}

func (d *pdfDocument) Close() error {
	d.mu.Lock()
	d.data = nil
	d.mu.Unlock()
	return nil
}

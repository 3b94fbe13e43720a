// Package board implements the client side of a drawing notebook: local
// stroke buffering, page navigation, and reconciliation of snapshots
// relayed from the user's other sessions.
package board

import (
	"context"
	"errors"
	"time"

	"inkpad/internal/services/notebooks"
)

// DefaultFlushEvery is how many accumulated strokes trigger an automatic save.
const DefaultFlushEvery = 5

// ErrNotBound is returned when recording or saving without an open page.
var ErrNotBound = errors.New("stroke buffer is not bound to a page")

// Saver persists a whole replacement page. Pages are replaced wholesale,
// so saving the same buffer twice is idempotent.
type Saver interface {
	SavePage(ctx context.Context, notebookID string, pageIndex int, page notebooks.Page) error
}

// StrokeBuffer accumulates freehand strokes against one notebook page and
// saves the full page on every Nth stroke. A failed save keeps the buffer
// dirty; the next stroke or explicit Flush catches up.
type StrokeBuffer struct {
	saver      Saver
	every      int
	notebookID string
	pageIndex  int
	page       notebooks.Page
	bound      bool
	unsaved    int
}

// NewStrokeBuffer creates a buffer that saves through saver. A
// non-positive every falls back to DefaultFlushEvery.
func NewStrokeBuffer(saver Saver, every int) *StrokeBuffer {
	if every <= 0 {
		every = DefaultFlushEvery
	}
	return &StrokeBuffer{
		saver: saver,
		every: every,
	}
}

// Bind points the buffer at a page. Any previously pending strokes are
// discarded; callers flush before rebinding.
func (b *StrokeBuffer) Bind(notebookID string, pageIndex int, page notebooks.Page) {
	b.notebookID = notebookID
	b.pageIndex = pageIndex
	b.page = page
	b.bound = true
	b.unsaved = 0
}

// RecordStroke appends one stroke to the bound page. When the unsaved
// count reaches the threshold the page is saved; on save failure the
// stroke is kept and the error surfaces.
func (b *StrokeBuffer) RecordStroke(ctx context.Context, points []notebooks.Point) error {
	if !b.bound {
		return ErrNotBound
	}

	b.page.Drawings = append(b.page.Drawings, notebooks.Stroke{
		Points:    points,
		Timestamp: time.Now(),
	})
	b.unsaved++

	if b.unsaved >= b.every {
		return b.Flush(ctx)
	}
	return nil
}

// Flush saves the page if there are unsaved strokes. A clean buffer is a
// no-op.
func (b *StrokeBuffer) Flush(ctx context.Context) error {
	if !b.bound || b.unsaved == 0 {
		return nil
	}
	return b.save(ctx)
}

// SaveNow saves the page unconditionally, even when nothing is pending.
func (b *StrokeBuffer) SaveNow(ctx context.Context) error {
	if !b.bound {
		return ErrNotBound
	}
	return b.save(ctx)
}

// Page returns a copy of the buffered page as it would be saved.
func (b *StrokeBuffer) Page() notebooks.Page {
	return b.page
}

// Pending returns the number of strokes not yet saved.
func (b *StrokeBuffer) Pending() int {
	return b.unsaved
}

func (b *StrokeBuffer) save(ctx context.Context) error {
	if err := b.saver.SavePage(ctx, b.notebookID, b.pageIndex, b.page); err != nil {
		return err
	}
	b.unsaved = 0
	return nil
}

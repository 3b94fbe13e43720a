package board

import (
	"context"
	"errors"

	"inkpad/internal/services/notebooks"
)

// ErrNoNotebook is returned for page operations before a notebook is open.
var ErrNoNotebook = errors.New("no notebook selected")

// Pager is the page navigation state machine. It is either in the
// no-notebook state or viewing one page of an open notebook. Every
// transition away from a page flushes buffered strokes first; a failed
// flush aborts the transition so no strokes are lost.
type Pager struct {
	buf       *StrokeBuffer
	notebook  *notebooks.Notebook
	pageIndex int
}

// NewPager creates a pager in the no-notebook state.
func NewPager(buf *StrokeBuffer) *Pager {
	return &Pager{buf: buf}
}

// Viewing reports whether a notebook is open.
func (p *Pager) Viewing() bool {
	return p.notebook != nil
}

// PageIndex returns the zero-based index of the current page.
func (p *Pager) PageIndex() int {
	return p.pageIndex
}

// Notebook returns the open notebook, or nil.
func (p *Pager) Notebook() *notebooks.Notebook {
	return p.notebook
}

// SelectNotebook opens a notebook at its first page. When another
// notebook was open, its buffered strokes are flushed first.
func (p *Pager) SelectNotebook(ctx context.Context, nb *notebooks.Notebook) error {
	if p.Viewing() {
		if err := p.leaveCurrent(ctx); err != nil {
			return err
		}
	}

	p.notebook = nb
	p.pageIndex = 0
	p.bindCurrent()
	return nil
}

// Next moves to the following page. At the last page it is a clamped
// no-op: no flush, no state change.
func (p *Pager) Next(ctx context.Context) error {
	if !p.Viewing() {
		return ErrNoNotebook
	}
	if p.pageIndex >= p.notebook.PageCount()-1 {
		return nil
	}
	return p.moveTo(ctx, p.pageIndex+1)
}

// Prev moves to the preceding page. At the first page it is a clamped
// no-op.
func (p *Pager) Prev(ctx context.Context) error {
	if !p.Viewing() {
		return ErrNoNotebook
	}
	if p.pageIndex == 0 {
		return nil
	}
	return p.moveTo(ctx, p.pageIndex-1)
}

// AddPage appends a blank page after the last one and moves to it. Page
// numbers stay contiguous from 1.
func (p *Pager) AddPage(ctx context.Context) error {
	if !p.Viewing() {
		return ErrNoNotebook
	}
	if err := p.leaveCurrent(ctx); err != nil {
		return err
	}

	p.notebook.Pages = append(p.notebook.Pages, notebooks.BlankPage(p.notebook.PageCount()+1))
	p.pageIndex = p.notebook.PageCount() - 1
	p.bindCurrent()
	return nil
}

// ClearPage replaces the current page with a blank one in place and saves
// it immediately. Pending strokes on the page are discarded by design.
func (p *Pager) ClearPage(ctx context.Context) error {
	if !p.Viewing() {
		return ErrNoNotebook
	}

	blank := notebooks.BlankPage(p.pageIndex + 1)
	p.notebook.Pages[p.pageIndex] = blank
	p.buf.Bind(p.notebook.ID.Hex(), p.pageIndex, blank)
	return p.buf.SaveNow(ctx)
}

// Close flushes and leaves the notebook, returning to the no-notebook
// state.
func (p *Pager) Close(ctx context.Context) error {
	if !p.Viewing() {
		return nil
	}
	if err := p.leaveCurrent(ctx); err != nil {
		return err
	}
	p.notebook = nil
	p.pageIndex = 0
	return nil
}

func (p *Pager) moveTo(ctx context.Context, index int) error {
	if err := p.leaveCurrent(ctx); err != nil {
		return err
	}
	p.pageIndex = index
	p.bindCurrent()
	return nil
}

// leaveCurrent flushes pending strokes and writes the buffered page back
// into the notebook so edits stay visible after navigating away.
func (p *Pager) leaveCurrent(ctx context.Context) error {
	if err := p.buf.Flush(ctx); err != nil {
		return err
	}
	p.notebook.Pages[p.pageIndex] = p.buf.Page()
	return nil
}

func (p *Pager) bindCurrent() {
	p.buf.Bind(p.notebook.ID.Hex(), p.pageIndex, p.notebook.Pages[p.pageIndex])
}

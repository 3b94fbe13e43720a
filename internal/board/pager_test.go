package board

import (
	"context"
	"errors"
	"testing"

	"inkpad/internal/services/notebooks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func testNotebook(pages int) *notebooks.Notebook {
	nb := &notebooks.Notebook{
		ID:   bson.NewObjectID(),
		Name: "Physics",
	}
	for i := 1; i <= pages; i++ {
		nb.Pages = append(nb.Pages, notebooks.BlankPage(i))
	}
	return nb
}

func newTestPager(saver Saver) *Pager {
	return NewPager(NewStrokeBuffer(saver, DefaultFlushEvery))
}

func TestPagerStartsWithoutNotebook(t *testing.T) {
	p := newTestPager(&recordingSaver{})
	ctx := context.Background()

	assert.False(t, p.Viewing())
	assert.ErrorIs(t, p.Next(ctx), ErrNoNotebook)
	assert.ErrorIs(t, p.Prev(ctx), ErrNoNotebook)
	assert.ErrorIs(t, p.AddPage(ctx), ErrNoNotebook)
	assert.ErrorIs(t, p.ClearPage(ctx), ErrNoNotebook)
}

func TestPagerSelectNotebookOpensFirstPage(t *testing.T) {
	p := newTestPager(&recordingSaver{})
	ctx := context.Background()

	require.NoError(t, p.SelectNotebook(ctx, testNotebook(3)))
	assert.True(t, p.Viewing())
	assert.Equal(t, 0, p.PageIndex())
}

func TestPagerNavigationClampsAtEdges(t *testing.T) {
	p := newTestPager(&recordingSaver{})
	ctx := context.Background()
	require.NoError(t, p.SelectNotebook(ctx, testNotebook(2)))

	// prev at first page is a no-op
	require.NoError(t, p.Prev(ctx))
	assert.Equal(t, 0, p.PageIndex())

	require.NoError(t, p.Next(ctx))
	assert.Equal(t, 1, p.PageIndex())

	// next at last page is a no-op
	require.NoError(t, p.Next(ctx))
	assert.Equal(t, 1, p.PageIndex())
}

func TestPagerAddPageAppendsAndMoves(t *testing.T) {
	p := newTestPager(&recordingSaver{})
	ctx := context.Background()
	nb := testNotebook(2)
	require.NoError(t, p.SelectNotebook(ctx, nb))

	require.NoError(t, p.AddPage(ctx))

	assert.Equal(t, 3, nb.PageCount())
	assert.Equal(t, 2, p.PageIndex(), "pager moves to the new page")
	assert.Equal(t, 3, nb.Pages[2].PageNumber, "page numbers stay contiguous from 1")
	assert.Empty(t, nb.Pages[2].Drawings)
}

func TestPagerTransitionsFlushFirst(t *testing.T) {
	saver := &recordingSaver{}
	p := newTestPager(saver)
	ctx := context.Background()
	require.NoError(t, p.SelectNotebook(ctx, testNotebook(2)))

	require.NoError(t, p.buf.RecordStroke(ctx, pt(1, 1)))
	require.NoError(t, p.Next(ctx))

	require.Len(t, saver.saves, 1, "navigating away saves pending strokes")
	assert.Len(t, saver.saves[0].Drawings, 1)
}

func TestPagerFailedFlushAbortsTransition(t *testing.T) {
	saver := &recordingSaver{}
	p := newTestPager(saver)
	ctx := context.Background()
	require.NoError(t, p.SelectNotebook(ctx, testNotebook(2)))

	require.NoError(t, p.buf.RecordStroke(ctx, pt(1, 1)))
	saver.err = errors.New("server down")

	assert.Error(t, p.Next(ctx))
	assert.Equal(t, 0, p.PageIndex(), "pager stays on the page when the flush fails")
	assert.Equal(t, 1, p.buf.Pending(), "strokes survive for the next attempt")
}

func TestPagerStrokesSurviveNavigation(t *testing.T) {
	saver := &recordingSaver{}
	p := newTestPager(saver)
	ctx := context.Background()
	nb := testNotebook(2)
	require.NoError(t, p.SelectNotebook(ctx, nb))

	require.NoError(t, p.buf.RecordStroke(ctx, pt(1, 1)))
	require.NoError(t, p.Next(ctx))
	require.NoError(t, p.Prev(ctx))

	assert.Len(t, nb.Pages[0].Drawings, 1, "edits stay visible after leaving and returning")
}

func TestPagerClearPage(t *testing.T) {
	saver := &recordingSaver{}
	p := newTestPager(saver)
	ctx := context.Background()
	nb := testNotebook(1)
	require.NoError(t, p.SelectNotebook(ctx, nb))
	require.NoError(t, p.buf.RecordStroke(ctx, pt(1, 1)))

	require.NoError(t, p.ClearPage(ctx))

	assert.Empty(t, nb.Pages[0].Drawings, "page is blank in place")
	assert.Equal(t, 1, nb.Pages[0].PageNumber)
	require.NotEmpty(t, saver.saves)
	assert.Empty(t, saver.saves[len(saver.saves)-1].Drawings, "blank page was saved")
}

func TestPagerSwitchNotebookFlushesOldOne(t *testing.T) {
	saver := &recordingSaver{}
	p := newTestPager(saver)
	ctx := context.Background()

	first := testNotebook(1)
	require.NoError(t, p.SelectNotebook(ctx, first))
	require.NoError(t, p.buf.RecordStroke(ctx, pt(1, 1)))

	require.NoError(t, p.SelectNotebook(ctx, testNotebook(1)))

	require.Len(t, saver.saves, 1)
	assert.Len(t, first.Pages[0].Drawings, 1)
	assert.Equal(t, 0, p.PageIndex())
}

func TestPagerClose(t *testing.T) {
	saver := &recordingSaver{}
	p := newTestPager(saver)
	ctx := context.Background()
	require.NoError(t, p.SelectNotebook(ctx, testNotebook(1)))
	require.NoError(t, p.buf.RecordStroke(ctx, pt(1, 1)))

	require.NoError(t, p.Close(ctx))
	assert.False(t, p.Viewing())
	require.Len(t, saver.saves, 1)

	// closing again is a no-op
	assert.NoError(t, p.Close(ctx))
}

package notebooks

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Point is a single sampled pen position.
type Point struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

// Stroke is one continuous freehand drawing: an ordered sequence of points
// plus the moment it was drawn. Strokes are append-only within a page.
type Stroke struct {
	Points    []Point   `bson:"points" json:"points"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Page holds the drawings and free text of one notebook page. Pages are
// replaced wholesale on save, never diffed.
type Page struct {
	Drawings   []Stroke `bson:"drawings" json:"drawings"`
	Text       string   `bson:"text" json:"text"`
	PageNumber int      `bson:"page_number" json:"pageNumber"`
}

// TextEntry is a speech-to-text capture event tagged with a page index.
type TextEntry struct {
	ID        int64  `bson:"id" json:"id"`
	Text      string `bson:"text" json:"text"`
	Timestamp string `bson:"timestamp" json:"timestamp"`
	Page      int    `bson:"page" json:"page"`
}

// Notebook is a user's drawing notebook. The sharing fields exist in the
// stored document but no endpoint exercises cross-user access.
type Notebook struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	UserID       bson.ObjectID   `bson:"user_id" json:"userId" example:"683cdb8aa96ad71e8e075bd0"`
	Name         string          `bson:"name" json:"name" validate:"required,max=100" example:"Physics"`
	Pages        []Page          `bson:"pages" json:"pages"`
	Texts        []TextEntry     `bson:"texts,omitempty" json:"texts,omitempty"`
	IsShared     bool            `bson:"is_shared" json:"isShared"`
	SharedWith   []bson.ObjectID `bson:"shared_with,omitempty" json:"sharedWith,omitempty"`
	LastModified time.Time       `bson:"last_modified" json:"lastModified"`
	CreatedAt    time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updated_at" json:"updatedAt"`
}

// PageCount returns the number of pages.
func (n *Notebook) PageCount() int {
	return len(n.Pages)
}

// BlankPage returns an empty page carrying the given 1-based number.
func BlankPage(pageNumber int) Page {
	return Page{
		Drawings:   []Stroke{},
		Text:       "",
		PageNumber: pageNumber,
	}
}

// UpdateNotebook represents the fields that can be updated in a notebook
type UpdateNotebook struct {
	Name  *string     `json:"name,omitempty"`
	Pages []Page      `json:"pages,omitempty"`
	Texts []TextEntry `json:"texts,omitempty"`
}

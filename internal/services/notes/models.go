package notes

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Note types. A pdf note carries file metadata pointing at the blob store;
// a text note carries only title/content.
const (
	TypeText = "text"
	TypePDF  = "pdf"
)

// Note represents a note in the system
type Note struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	UserID       bson.ObjectID `bson:"user_id" json:"userId" example:"683cdb8aa96ad71e8e075bd0"`
	Title        string        `bson:"title" json:"title" validate:"required,max=200" example:"Meeting Notes"`
	Content      string        `bson:"content" json:"content" validate:"required,max=10000" example:"Remember to discuss the quarterly targets"`
	Type         string        `bson:"type" json:"type" example:"text"`
	Filename     string        `bson:"filename,omitempty" json:"filename,omitempty" example:"b1946ac9-4931-4e9a-a6bd-3a0b3f5de48d.pdf"`
	OriginalName string        `bson:"original_name,omitempty" json:"originalName,omitempty" example:"lecture-3.pdf"`
	FilePath     string        `bson:"file_path,omitempty" json:"filePath,omitempty"`
	FileSize     int64         `bson:"file_size,omitempty" json:"fileSize,omitempty" example:"482133"`
	Tags         []string      `bson:"tags" json:"tags"`
	IsArchived   bool          `bson:"is_archived" json:"isArchived"`
	CreatedAt    time.Time     `bson:"created_at" json:"createdAt" example:"2025-06-01T23:00:26.005703677Z"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updatedAt" example:"2025-06-01T23:00:26.005703677Z"`
}

// UpdateNote represents the fields that can be updated in a note.
// File metadata is immutable after upload.
type UpdateNote struct {
	Title      *string  `json:"title,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	IsArchived *bool    `json:"isArchived,omitempty"`
}

// PDFMeta describes an uploaded file already sitting in the blob store.
type PDFMeta struct {
	Filename     string
	OriginalName string
	Path         string
	Size         int64
}

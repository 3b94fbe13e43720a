package notebooks

import "errors"

// ErrNotebookNotFound - notebook absent or owned by a different user.
var ErrNotebookNotFound = errors.New("notebook not found")

// ErrCreateNotebook is returned when notebook creation fails.
var ErrCreateNotebook = errors.New("failed to create notebook")

// ErrUpdateNotebook is returned when notebook update fails.
var ErrUpdateNotebook = errors.New("failed to update notebook")

// ErrDeleteNotebook is returned when notebook deletion fails.
var ErrDeleteNotebook = errors.New("failed to delete notebook")

// ErrListNotebooks is returned when notebook listing fails.
var ErrListNotebooks = errors.New("failed to list notebooks")

// ErrCreateNotebooksRepo is returned when notebooks repository creation fails.
var ErrCreateNotebooksRepo = errors.New("failed to create notebooks repository")

// ErrPageNumbering is returned when a submitted page sequence is not
// contiguous from 1.
var ErrPageNumbering = errors.New("page numbers must be contiguous from 1")

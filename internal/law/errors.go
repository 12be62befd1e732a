// File path: internal/law/errors.go
package law

import "errors"

var (
	// ErrNotFound reports a provision id absent from the dataset.
	ErrNotFound = errors.New("law id not found")
	// ErrInvalidNode reports an id that does not name an article where one
	// is required.
	ErrInvalidNode = errors.New("not an article node")
	// ErrMissingParent reports a broken parent chain below an article.
	ErrMissingParent = errors.New("parent chain broken")
	// ErrDuplicateID rejects a record set with two records sharing an id.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrMissingID rejects a record without an id.
	ErrMissingID = errors.New("record missing id")
)

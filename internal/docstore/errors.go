package docstore

import (
	"fmt"
)

// Error is a document-store failure rendered as an error body.
type Error struct {
	Status int
	Type   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Reason)
}

var errDocumentMissing = &Error{Status: 404, Type: "document_missing", Reason: "document not found"}

func indexNotFound(name string) *Error {
	return &Error{Status: 404, Type: "index_not_found_exception", Reason: fmt.Sprintf("no such index [%s]", name)}
}

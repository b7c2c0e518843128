package eslog

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/coffersTech/esrestlog/internal/transport"
)

// Error classes. Every error returned by this package is marked with at
// least one of them; test with errors.Is.
var (
	// ErrNotFound marks a missing template, index or document.
	ErrNotFound = errors.New("not found")
	// ErrProvisioning marks a failed template or index creation.
	ErrProvisioning = errors.New("provisioning failed")
	// ErrWrite marks a failed document write.
	ErrWrite = errors.New("write failed")
	// ErrRead marks a failed point or filtered read.
	ErrRead = errors.New("read failed")
)

// StatusError is a non-2xx answer from the document store.
type StatusError struct {
	StatusCode int
	Type       string // error.type from the body, if any
	Reason     string // error.reason from the body, if any
}

func (e *StatusError) Error() string {
	switch {
	case e.Type != "" && e.Reason != "":
		return fmt.Sprintf("status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Reason)
	default:
		return fmt.Sprintf("status %d", e.StatusCode)
	}
}

func statusError(res *transport.Response) error {
	typ, reason := res.ErrorInfo()
	var err error = &StatusError{StatusCode: res.StatusCode, Type: typ, Reason: reason}
	if res.NotFound() {
		err = errors.Mark(err, ErrNotFound)
	}
	return err
}

// isConflict reports whether a create was refused because the resource is
// already there, which a racing provisioner can legitimately observe.
func isConflict(res *transport.Response) bool {
	if res == nil {
		return false
	}
	if res.StatusCode == 409 {
		return true
	}
	typ, _ := res.ErrorInfo()
	return typ == "resource_already_exists_exception" || typ == "index_already_exists_exception"
}

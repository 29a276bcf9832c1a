package installation

import "errors"

// NotFoundError is returned by FetchInstallation when no row matches the
// query. The message format is load-bearing: authorization middleware and
// the conformance suite match it literally.
type NotFoundError struct {
	Query Query
}

// NewNotFoundError creates a NotFoundError echoing the filter values that
// were actually used.
func NewNotFoundError(query Query) *NotFoundError {
	return &NotFoundError{Query: query}
}

func (e *NotFoundError) Error() string {
	return "No installation data found " + e.Query.LogPart()
}

// IsNotFound reports whether err is an installation NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

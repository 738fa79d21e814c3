package rbac

import "errors"

// Denial reasons, ordered by evaluation precedence: authentication first,
// then authorization, then structural validation. Anything else that goes
// wrong mid-mutation surfaces as a wrapped backend error.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
)

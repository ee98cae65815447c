package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/folkout/folkout/internal/apperr"
)

var errInternal = errors.New("internal error")

// toConnectError maps domain errors onto Connect codes. Storage and
// unclassified errors are reported without detail.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case apperr.KindNotFound:
		return connect.NewError(connect.CodeNotFound, err)
	case apperr.KindAuthorization:
		return connect.NewError(connect.CodePermissionDenied, err)
	case apperr.KindConflict:
		return connect.NewError(connect.CodeAlreadyExists, err)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, errInternal)
}

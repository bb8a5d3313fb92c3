package reconcile

import (
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
)

func notFound(format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, format, args...)
}

func invalid(format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, format, args...)
}

func invalidState(format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, format, args...)
}

func violation(format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeInvariant, format, args...)
}

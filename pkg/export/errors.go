package export

import (
	"errors"
	"fmt"
)

// UnsupportedEntityError reports an entity that could not be exported. It
// is recovered locally: the entity is skipped and export continues.
type UnsupportedEntityError struct {
	Kind   string // "material", "object", "slice", "plugin"
	Name   string
	Reason string
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("export: %s %q skipped: %s", e.Kind, e.Name, e.Reason)
}

func unsupported(kind, name, format string, args ...any) *UnsupportedEntityError {
	return &UnsupportedEntityError{Kind: kind, Name: name, Reason: fmt.Sprintf(format, args...)}
}

// SubstitutionError reports a ${NAME} reference to an undefined variable
// in a custom property.
type SubstitutionError struct {
	Owner    string
	Property string
	Variable string
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("export: %s: property %q references undefined variable %q", e.Owner, e.Property, e.Variable)
}

// Recoverable reports whether err only affects a single entity.
func Recoverable(err error) bool {
	var ue *UnsupportedEntityError
	var se *SubstitutionError
	return errors.As(err, &ue) || errors.As(err, &se)
}

package advertising

import (
	"strings"

	"github.com/autoparts-market/backend/pkg/apperr"
)

// Flag is a status value parsed once at the API boundary. It accepts JSON booleans and the
// strings "true"/"false" (any case); everything else is a validation error.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "true", `"true"`:
		*f = true
	case "false", `"false"`:
		*f = false
	default:
		return apperr.Validation("status must be true or false, got %s", string(b))
	}
	return nil
}

// Bool returns the flag value; a nil flag is false.
func (f *Flag) Bool() bool {
	return f != nil && bool(*f)
}

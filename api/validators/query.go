package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded by [min, max].
// An absent value yields def; a malformed or out-of-range value is a validation error.
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Validation(key + " must be a whole number")
	}
	if value < min || value > max {
		return 0, pkgerrors.Validation(key+" out of range").WithDetails(map[string]any{"min": min, "max": max})
	}
	return value, nil
}

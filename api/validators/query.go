package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
)

// optionalQuery parses an optional query parameter. Absent or blank values
// yield nil; a present value that does not parse fails with problem.
func optionalQuery[T any](r *http.Request, key string, parse func(string) (T, error), problem string) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Validation(key, problem)
	}
	return &value, nil
}

// ParseQueryInt reads an integer bounded by [lo, hi], falling back to def.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	value, err := optionalQuery(r, key, strconv.Atoi, key+" must be a whole number")
	if err != nil {
		return 0, err
	}
	if value == nil {
		return def, nil
	}
	if *value < lo || *value > hi {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" is out of range").
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return *value, nil
}

func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	return optionalQuery(r, key, strconv.ParseBool, key+" must be true or false")
}

func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	return optionalQuery(r, key, uuid.Parse, key+" must be a valid uuid")
}

// ParseURLUUID reads a required chi path parameter.
func ParseURLUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.Validation(key, key+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Validation(key, key+" must be a valid uuid")
	}
	return id, nil
}

// Package decode parses JSON request bodies into closed input shapes.
package decode

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"tgmon/entity"
)

// JSON decodes the request body into v, rejecting unknown fields, then runs
// the binder's own validation. Input shapes are closed: a payload carrying a
// field the shape does not declare is a validation error, not a silent drop.
func JSON(r *http.Request, v render.Binder) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%v: %w", err, entity.ErrValidation)
	}
	return v.Bind(r)
}

// Package formutil reads the JSON request bodies posted by the site's forms.
//
// Every form on the site (signup, login, password reset, contact) posts a
// small JSON object. Decode bounds the body and rejects malformed JSON:
//
//	var in struct {
//		Email    string `json:"email"`
//		Password string `json:"password"`
//	}
//	if err := formutil.Decode(w, r, &in); err != nil {
//		uierrors.WriteMessage(w, http.StatusBadRequest, "Email and password required")
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/positivevibes/internal/app/system/limits"
)

// ErrEmptyBody is returned when the request has no body at all.
var ErrEmptyBody = errors.New("empty request body")

// Decode reads one JSON object from r into dst. Unknown fields are ignored.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxFormBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

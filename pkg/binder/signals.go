package binder

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"
)

const signalsParam = "datastar"

// Signals binds Datastar signals into the struct using its `json` tags.
// GET and DELETE requests carry them in the `datastar` query parameter,
// other methods in a JSON body. Form posts are left to Form.
func Signals() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		switch r.Method {
		case http.MethodGet:
			if !r.URL.Query().Has(signalsParam) {
				return ErrBinderNotApplicable
			}
		case http.MethodDelete:
			// datastar.ReadSignals only looks at the query string for GET.
			q := r.URL.Query()
			if !q.Has(signalsParam) {
				return ErrBinderNotApplicable
			}
			if err := json.Unmarshal([]byte(q.Get(signalsParam)), v); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidSignals, err)
			}
			return nil
		default:
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType != "application/json" {
				return ErrBinderNotApplicable
			}
		}
		if err := datastar.ReadSignals(r, v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignals, err)
		}
		return nil
	}
}

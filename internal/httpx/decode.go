package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSON reads one JSON document from r into v and validates its
// `validate` struct tags. Unknown fields are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fieldErrors(err)
	}
	return nil
}

func fieldErrors(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", e.Namespace(), e.Tag(), e.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Namespace(), e.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

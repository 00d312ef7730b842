package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ContentType selects how a request body is put on the wire.
type ContentType string

const (
	ContentNone ContentType = ""
	ContentJSON ContentType = "application/json"
	ContentForm ContentType = "application/x-www-form-urlencoded"
)

// Request is a single gateway call, relative to the client's base URL.
type Request struct {
	Method  string      // Defaults to GET
	Path    string      // e.g. "/payments/payment/3000006529"
	Query   url.Values  // Optional query parameters
	Body    any         // JSON-marshalable value, or url.Values / map for form bodies
	Content ContentType // ContentNone with a non-nil Body means JSON
	Headers http.Header // Extra headers; Authorization is always overwritten
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// encode serialises the body once so a retry resends identical bytes.
func (r Request) encode() ([]byte, string, error) {
	if r.Body == nil {
		return nil, "", nil
	}

	switch r.Content {
	case ContentNone, ContentJSON:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", errors.Wrap(err, "Request.encode json.Marshal")
		}
		return data, string(ContentJSON), nil
	case ContentForm:
		values, err := formValues(r.Body)
		if err != nil {
			return nil, "", err
		}
		return []byte(values.Encode()), string(ContentForm), nil
	}
	return nil, "", fmt.Errorf("unsupported content type %q", r.Content)
}

func formValues(body any) (url.Values, error) {
	switch b := body.(type) {
	case url.Values:
		return b, nil
	case map[string]string:
		values := url.Values{}
		for k, v := range b {
			values.Set(k, v)
		}
		return values, nil
	case map[string]any:
		values := url.Values{}
		for k, v := range b {
			values.Set(k, fmt.Sprint(v))
		}
		return values, nil
	}
	return nil, fmt.Errorf("form body must be url.Values or a string-keyed map, got %T", body)
}

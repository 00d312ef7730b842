package dispatch

import (
	"encoding/json"
	"mime"

	"github.com/pkg/errors"
)

// Response is the decoded outcome of a gateway call. It is transient and
// never persisted.
type Response struct {
	Success     bool
	StatusCode  int
	ContentType string
	Body        []byte
	RequestID   string
	Attempts    int // 2 when the call was retried after a token refresh
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

// Parsed returns the body as a generic JSON value, or as text when it is not JSON.
func (r *Response) Parsed() any {
	var v any
	if err := json.Unmarshal(r.Body, &v); err == nil {
		return v
	}
	return string(r.Body)
}

// Text returns the raw body.
func (r *Response) Text() string {
	return string(r.Body)
}

// IsJSON reports whether the gateway labelled the body as JSON.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	return err == nil && mediaType == "application/json"
}

// Package bodyparser decodes URL-encoded and JSON request bodies into
// r.PostForm before routing, so later middleware and handlers read submitted
// fields the same way whatever the encoding.
package bodyparser

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
)

// MaxBodySize limits every parsed body.
const MaxBodySize = 1 << 20

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// ParseBody parses the body of requests that carry one. Malformed bodies are
// answered with 400 and too large ones with 413.
func ParseBody(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if request.Body == nil || request.Body == http.NoBody {
			h.ServeHTTP(response, request)
			return
		}

		mediaType, _, err := mime.ParseMediaType(request.Header.Get("Content-Type"))
		if err != nil {
			h.ServeHTTP(response, request)
			return
		}

		switch mediaType {
		case contentTypeForm:
			request.Body = http.MaxBytesReader(response, request.Body, MaxBodySize)
			err = request.ParseForm()
		case contentTypeJSON:
			request.Body = http.MaxBytesReader(response, request.Body, MaxBodySize)
			err = parseJSON(request)
		default:
			h.ServeHTTP(response, request)
			return
		}

		if err != nil {
			status := http.StatusBadRequest
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				status = http.StatusRequestEntityTooLarge
			}
			logger.Log.Debugw("rejecting request body", "uri", request.RequestURI, zap.Error(err))
			http.Error(response, http.StatusText(status), status)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// parseJSON decodes a JSON object and mirrors its scalar members into
// r.PostForm and r.Form. Nested values are ignored.
func parseJSON(request *http.Request) error {
	// Only the query string is read here: ParseForm leaves JSON bodies alone.
	if err := request.ParseForm(); err != nil {
		return err
	}

	var payload map[string]any
	decoder := json.NewDecoder(request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return err
	}

	for key, value := range payload {
		text, ok := scalarString(value)
		if !ok {
			continue
		}
		request.PostForm.Set(key, text)
		request.Form[key] = append([]string{text}, request.Form[key]...)
	}

	return nil
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

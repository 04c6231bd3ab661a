// Package methodoverride lets HTML forms, which can only POST, reach PUT,
// PATCH and DELETE routes through a hidden "_method" field.
package methodoverride

import (
	"net/http"
	"strings"

	"github.com/thoas/go-funk"
)

// FieldName is the form field naming the intended method.
const FieldName = "_method"

var overridable = []string{http.MethodPut, http.MethodPatch, http.MethodDelete}

// Override rewrites the method of a POST whose parsed body holds _method.
// The field is removed from the form either way. It must run after the body
// has been parsed and before routing.
func Override(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.PostForm == nil {
			h.ServeHTTP(response, request)
			return
		}

		values, present := request.PostForm[FieldName]
		if !present {
			h.ServeHTTP(response, request)
			return
		}
		request.PostForm.Del(FieldName)
		if request.Form != nil {
			request.Form.Del(FieldName)
		}

		if len(values) > 0 {
			method := strings.ToUpper(strings.TrimSpace(values[0]))
			if funk.ContainsString(overridable, method) {
				request.Method = method
			}
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

package middleware

import "net/http"

// methodOverrideField is the hidden form field carrying the real verb.
const methodOverrideField = "_method"

// MethodOverride lets plain HTML forms issue PUT, PATCH and DELETE requests
// by POSTing with a _method field. Only those three verbs are honored.
// Reading the field forces a form parse, so the body is capped with
// MaxBytesReader first; the cap carries through to every later parse on the
// same request, including the handlers' multipart parsing.
func MethodOverride(maxBody int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
				switch r.PostFormValue(methodOverrideField) {
				case http.MethodPut:
					r.Method = http.MethodPut
				case http.MethodPatch:
					r.Method = http.MethodPatch
				case http.MethodDelete:
					r.Method = http.MethodDelete
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

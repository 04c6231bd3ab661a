// Package authenticator declares the middleware set the router needs from the
// authentication layer, so handlers can be tested with a stub.
package authenticator

import "net/http"

type Authenticator interface {
	// RestoreUser puts the signed-in user, if any, into the request context.
	RestoreUser(h http.Handler) http.Handler

	// EnsureAuth lets only signed-in users through.
	EnsureAuth(h http.Handler) http.Handler

	// EnsureGuest lets only anonymous users through.
	EnsureGuest(h http.Handler) http.Handler

	BeginLogin(response http.ResponseWriter, request *http.Request)
	Callback(response http.ResponseWriter, request *http.Request)
	Logout(response http.ResponseWriter, request *http.Request)
}

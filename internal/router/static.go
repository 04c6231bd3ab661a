package router

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// serveStatic answers GET and HEAD requests naming a regular file under the
// static directory. Everything else goes on to the routes.
func (router *Router) serveStatic(h http.Handler) http.Handler {
	if router.staticDir == "" {
		return h
	}
	files := http.FileServer(http.Dir(router.staticDir))

	middleware := func(response http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet && request.Method != http.MethodHead {
			h.ServeHTTP(response, request)
			return
		}

		name := filepath.Join(router.staticDir, filepath.FromSlash(path.Clean("/"+request.URL.Path)))
		info, err := os.Stat(name)
		if err != nil || !info.Mode().IsRegular() {
			h.ServeHTTP(response, request)
			return
		}

		files.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

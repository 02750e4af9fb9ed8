package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/ternarybob/tickerchat/internal/handlers"
)

// RouteHandler is a function type for HTTP handlers
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers
type MethodRouter map[string]RouteHandler

// RouteByMethod dispatches on the request method. Unknown methods get a JSON
// 405 with an Allow header listing the registered ones.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	if handler, ok := routes[r.Method]; ok && handler != nil {
		handler(w, r)
		return
	}

	methods := make([]string, 0, len(routes))
	for method, handler := range routes {
		if handler != nil {
			methods = append(methods, method)
		}
	}
	sort.Strings(methods)
	w.Header().Set("Allow", strings.Join(methods, ", "))
	handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// PathSuffixRouter routes a sub-resource such as "/status" under an item path
type PathSuffixRouter struct {
	Suffix  string
	Handler RouteHandler
}

// RouteByPathSuffix dispatches to the first route whose suffix ends the part
// of the path after prefix. It reports whether a route handled the request.
func RouteByPathSuffix(w http.ResponseWriter, r *http.Request, prefix string, routes []PathSuffixRouter) bool {
	rest, ok := strings.CutPrefix(r.URL.Path, prefix)
	if !ok || rest == "" {
		return false
	}

	for _, route := range routes {
		if strings.HasSuffix(rest, route.Suffix) {
			route.Handler(w, r)
			return true
		}
	}
	return false
}

// RouteResourceItem routes a single resource: GET reads it, PUT updates it
// and DELETE removes or cancels it. Nil handlers are not offered.
func RouteResourceItem(w http.ResponseWriter, r *http.Request, get, update, remove RouteHandler) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:    get,
		http.MethodPut:    update,
		http.MethodDelete: remove,
	})
}

package gate

import (
	"net/http"
	"strings"
)

// Routes the gate navigates between.
const (
	RouteLanding = "/"
	RouteGame    = "/game"
)

// Action is what a protected view must do for a given status.
type Action int

const (
	// ShowLoading renders a loading indicator while the status is unresolved.
	ShowLoading Action = iota
	// Redirect navigates to Decision.Route.
	Redirect
	// Render shows the protected view.
	Render
)

// Decision is the gate's verdict for a protected view.
type Decision struct {
	Action Action
	Route  string
}

// Decide maps a status to the gate's decision. Any resolved status that is
// not Authenticated is treated the same: redirect to the landing view.
func Decide(s Status) Decision {
	switch s.Kind {
	case Loading:
		return Decision{Action: ShowLoading}
	case Authenticated:
		if s.Player != nil {
			return Decision{Action: Render}
		}
	}
	return Decision{Action: Redirect, Route: RouteLanding}
}

// RequireAuth guards handlers with the status resolved by the identity
// middleware. Page requests are redirected to landing; API requests get a
// JSON 401 instead.
func RequireAuth(landing string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(StatusFromContext(r.Context()))
			switch d.Action {
			case Render:
				next.ServeHTTP(w, r)
				return
			case ShowLoading:
				// Status never resolved on the server side: the identity
				// middleware is missing from the chain.
				http.Error(w, `{"error":"authentication status unresolved"}`, http.StatusServiceUnavailable)
				return
			}

			if isAPIRequest(r) {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			route := d.Route
			if landing != "" {
				route = landing
			}
			http.Redirect(w, r, route, http.StatusSeeOther)
		})
	}
}

func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

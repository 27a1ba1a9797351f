package app

import (
	"strings"

	"github.com/nhle/scholarship-portal/internal/access"
	"github.com/nhle/scholarship-portal/internal/ui"
)

// Route is a portal page path.
type Route string

const (
	RouteNotifications Route = access.RouteNotifications
	RouteProfile       Route = access.RouteProfile
	RouteRequirements  Route = "/requirements"
	RouteApplications  Route = "/applications"
)

var routeOrder = []struct {
	route Route
	label string
}{
	{RouteNotifications, "1 Notifications"},
	{RouteProfile, "2 Profile"},
	{RouteRequirements, "3 Requirements"},
	{RouteApplications, "4 Applications"},
}

// parseRoute accepts "profile" or "/profile" style names.
func parseRoute(name string) (Route, bool) {
	name = "/" + strings.TrimPrefix(strings.TrimSpace(name), "/")
	for _, r := range routeOrder {
		if string(r.route) == name {
			return r.route, true
		}
	}
	return "", false
}

// tabs marks the active route and, while the gate is closed, the routes it
// blocks.
func (m Model) tabs() []ui.Tab {
	out := make([]ui.Tab, 0, len(routeOrder))
	for _, r := range routeOrder {
		out = append(out, ui.Tab{
			Label:  r.label,
			Active: r.route == m.route,
			Locked: m.gated(r.route),
		})
	}
	return out
}

// gated reports whether route is blocked by the email-update gate.
func (m Model) gated(route Route) bool {
	return m.decision.EmailUpdateRequired && !m.evaluator.IsRouteAllowed(string(route))
}

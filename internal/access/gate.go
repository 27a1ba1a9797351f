// Package access decides whether a user's feature access must be
// restricted until they switch to an institutional email address.
//
// Decisions are recomputed from caller-supplied snapshots on every call;
// nothing is cached.
package access

import (
	"strings"

	"github.com/nhle/scholarship-portal/internal/model"
)

// DefaultInstitutionalDomain is the email suffix that satisfies the gate.
const DefaultInstitutionalDomain = "@s.ubaguio.edu"

// Routes that stay reachable while the gate is closed.
const (
	RouteProfile       = "/profile"
	RouteNotifications = "/notifications"
)

// Decision is the derived gate state for one user.
type Decision struct {
	// EmailUpdateRequired is HasAcceptedApplication && !CurrentEmailIsUB.
	EmailUpdateRequired    bool
	HasAcceptedApplication bool
	CurrentEmailIsUB       bool
}

// Evaluator holds the static inputs of the gate.
type Evaluator struct {
	// Domain is matched case-insensitively against the end of the email.
	Domain string

	// AllowedPrefixes are the route prefixes rendered while gated.
	AllowedPrefixes []string
}

// NewEvaluator returns an Evaluator for domain. An empty domain selects
// DefaultInstitutionalDomain.
func NewEvaluator(domain string) Evaluator {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		domain = DefaultInstitutionalDomain
	}
	return Evaluator{
		Domain:          strings.ToLower(domain),
		AllowedPrefixes: []string{RouteProfile, RouteNotifications},
	}
}

var defaultEvaluator = NewEvaluator(DefaultInstitutionalDomain)

// Evaluate computes the gate decision with the default domain.
func Evaluate(user *model.User, applications []model.Application) Decision {
	return defaultEvaluator.Evaluate(user, applications)
}

// IsRouteAllowed reports whether pathname may render while gated, using
// the default allow-list.
func IsRouteAllowed(pathname string) bool {
	return defaultEvaluator.IsRouteAllowed(pathname)
}

// Evaluate computes the gate decision. A nil user yields the zero
// Decision.
func (e Evaluator) Evaluate(user *model.User, applications []model.Application) Decision {
	if user == nil {
		return Decision{}
	}

	accepted := false
	for _, app := range applications {
		if app.Status == model.ApplicationAccepted {
			accepted = true
			break
		}
	}

	isUB := e.IsInstitutional(effectiveEmail(user))

	return Decision{
		EmailUpdateRequired:    accepted && !isUB,
		HasAcceptedApplication: accepted,
		CurrentEmailIsUB:       isUB,
	}
}

// IsInstitutional reports whether email ends with the institutional domain.
func (e Evaluator) IsInstitutional(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	return strings.HasSuffix(email, e.Domain)
}

// IsRouteAllowed is a plain prefix check against AllowedPrefixes.
func (e Evaluator) IsRouteAllowed(pathname string) bool {
	for _, prefix := range e.AllowedPrefixes {
		if strings.HasPrefix(pathname, prefix) {
			return true
		}
	}
	return false
}

// effectiveEmail prefers a pending change over the confirmed address.
func effectiveEmail(user *model.User) string {
	if pending := strings.TrimSpace(user.PendingEmail); pending != "" {
		return pending
	}
	return user.Email
}

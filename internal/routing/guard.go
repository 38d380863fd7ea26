package routing

// Package routing implements the navigation guard. The guard is a pure
// decision function: it consults a session snapshot and names a target,
// it never navigates or touches session state.

import (
	"strings"

	"github.com/proserve/proserve-client/config"
	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
)

// Route describes a navigation target as declared by the application:
// its path, whether it requires authentication, and the role it requires
// (empty for none).
type Route struct {
	Path         string
	RequiresAuth bool
	Role         domainauth.Role
}

// Action is the kind of decision the guard produced.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
)

// Decision is the guard's verdict for one navigation. Target is the
// redirect route when Action is ActionRedirect.
type Decision struct {
	Action Action
	Target string
}

// Allowed reports whether navigation may proceed.
func (d Decision) Allowed() bool { return d.Action == ActionAllow }

// Guard evaluates navigation targets against the current session.
type Guard struct {
	cfg config.GuardConfig
}

// NewGuard constructs a guard with the given redirect surfaces.
func NewGuard(cfg config.GuardConfig) *Guard {
	return &Guard{cfg: cfg}
}

// Evaluate applies the authorization rules in fixed precedence; the first
// matching rule wins. The order is a correctness invariant: a blocked and
// pending user must land on the blocked surface, not the pending one.
func (g *Guard) Evaluate(route Route, sess domainauth.Session) Decision {
	if route.RequiresAuth && sess.IsBlocked() {
		return redirect(g.cfg.BlockedRoute)
	}

	// Pending and disapproved professionals are walled off from the
	// professional area, except from their own informational surfaces.
	if sess.HasRole(domainauth.RoleProfessional) && g.inProfessionalArea(route.Path) {
		if sess.IsPending() && route.Path != g.cfg.PendingRoute {
			return redirect(g.cfg.PendingRoute)
		}
		if sess.IsDisapproved() && route.Path != g.cfg.DisapprovedRoute {
			return redirect(g.cfg.DisapprovedRoute)
		}
	}

	if route.RequiresAuth && !sess.IsAuthenticated() {
		return redirect(g.cfg.LoginRoute)
	}

	if route.Role != "" && !sess.HasRole(route.Role) {
		return redirect(g.cfg.HomeRoute)
	}

	return Decision{Action: ActionAllow}
}

func (g *Guard) inProfessionalArea(path string) bool {
	area := g.cfg.ProfessionalArea
	return path == area || strings.HasPrefix(path, area+"/")
}

func redirect(target string) Decision {
	return Decision{Action: ActionRedirect, Target: target}
}

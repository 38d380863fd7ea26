package config

import "strings"

// GuardConfig contains the redirect surfaces consulted by the route guard.
// Surfaces are application route paths; the guard never navigates itself,
// it only names the target.
type GuardConfig struct {
	// LoginRoute receives unauthenticated users hitting protected targets.
	LoginRoute string `env:"LOGIN_ROUTE" envDefault:"/login"`

	// HomeRoute receives authenticated users lacking a required role.
	HomeRoute string `env:"HOME_ROUTE" envDefault:"/"`

	// BlockedRoute receives blocked accounts.
	BlockedRoute string `env:"BLOCKED_ROUTE" envDefault:"/account/blocked"`

	// PendingRoute receives pending professionals entering the professional area.
	PendingRoute string `env:"PENDING_ROUTE" envDefault:"/professional/pending-approval"`

	// DisapprovedRoute receives disapproved professionals entering the professional area.
	DisapprovedRoute string `env:"DISAPPROVED_ROUTE" envDefault:"/professional/disapproved"`

	// ProfessionalArea is the path prefix of the professional surface.
	ProfessionalArea string `env:"PROFESSIONAL_AREA" envDefault:"/professional"`
}

// Sanitize applies guardrails to guard configuration values.
func (g *GuardConfig) Sanitize() {
	if g.LoginRoute == "" {
		g.LoginRoute = "/login"
	}
	if g.HomeRoute == "" {
		g.HomeRoute = "/"
	}
	g.ProfessionalArea = strings.TrimRight(g.ProfessionalArea, "/")
	if g.ProfessionalArea == "" {
		g.ProfessionalArea = "/professional"
	}
}

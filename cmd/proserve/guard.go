package main

import (
	"errors"
	"flag"
	"os"

	"github.com/proserve/proserve-client/internal/bootstrap"
	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/routing"
)

type checkRouteOptions struct {
	Path         string
	RequiresAuth bool
	Role         string
}

func runCheckRoute(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("check-route", flag.ContinueOnError)
	var opts checkRouteOptions
	fs.StringVar(&opts.Path, "path", "", "route path to evaluate (required)")
	fs.BoolVar(&opts.RequiresAuth, "requires-auth", false, "route requires authentication")
	fs.StringVar(&opts.Role, "role", "", "role the route requires, if any")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.Path == "" {
		return errors.New("--path is required")
	}

	app, err := bootstrap.BuildApp(ctx.Ctx, ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer closeApp(app, ctx)

	// An unusable session evaluates as anonymous; the guard still decides.
	if initErr := app.Session.Initialize(ctx.Ctx); initErr != nil {
		ctx.Logger.Debug("session hydration failed, evaluating as anonymous", "error", initErr)
	}

	decision := app.Guard.Evaluate(routing.Route{
		Path:         opts.Path,
		RequiresAuth: opts.RequiresAuth,
		Role:         domainauth.Role(opts.Role),
	}, app.Session.Snapshot())

	if decision.Allowed() {
		return writef(os.Stdout, "allow %s\n", opts.Path)
	}
	return writef(os.Stdout, "redirect %s -> %s\n", opts.Path, decision.Target)
}

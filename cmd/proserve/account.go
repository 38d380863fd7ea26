package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/proserve/proserve-client/internal/bootstrap"
	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/ports"
)

type loginOptions struct {
	Username string
	Password string
}

func runLogin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	var opts loginOptions
	fs.StringVar(&opts.Username, "username", "", "account username (required)")
	fs.StringVar(&opts.Password, "password", "", "account password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.Username == "" {
		return errors.New("--username is required")
	}
	if opts.Password == "" {
		password, err := promptPassword()
		if err != nil {
			return err
		}
		opts.Password = password
	}

	app, err := bootstrap.BuildApp(ctx.Ctx, ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer closeApp(app, ctx)

	if loginErr := app.Session.Login(ctx.Ctx, ports.Credentials{
		Username: opts.Username,
		Password: opts.Password,
	}); loginErr != nil {
		if msg := app.Session.Err(); msg != "" {
			return fmt.Errorf("login rejected: %s", msg)
		}
		return loginErr
	}

	sess := app.Session.Snapshot()
	return writef(os.Stdout, "Logged in as %s (%s)\n", sess.Identity.Username, roleNames(sess))
}

func runLogout(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := bootstrap.BuildApp(ctx.Ctx, ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer closeApp(app, ctx)

	// Hydrate first so server-side invalidation has a token to present.
	if initErr := app.Session.Initialize(ctx.Ctx); initErr != nil {
		ctx.Logger.Debug("session hydration failed before logout", "error", initErr)
	}
	app.Session.Logout(ctx.Ctx)

	return writef(os.Stdout, "Logged out\n")
}

type whoamiOptions struct {
	Query string
	Raw   bool
}

func runWhoami(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	var opts whoamiOptions
	fs.StringVar(&opts.Query, "query", "", "JMESPath expression applied to the identity document")
	fs.BoolVar(&opts.Raw, "raw", false, "print the raw identity JSON without indentation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.Query != "" {
		if _, compileErr := jmespath.Compile(opts.Query); compileErr != nil {
			return fmt.Errorf("invalid --query expression: %w", compileErr)
		}
	}

	app, err := bootstrap.BuildApp(ctx.Ctx, ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer closeApp(app, ctx)

	if initErr := app.Session.Initialize(ctx.Ctx); initErr != nil {
		return fmt.Errorf("restore session: %w", initErr)
	}
	sess := app.Session.Snapshot()
	if !sess.IsAuthenticated() || sess.Identity == nil {
		return errors.New("not logged in")
	}

	doc, err := json.Marshal(sess.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	var out any
	if unmarshalErr := json.Unmarshal(doc, &out); unmarshalErr != nil {
		return fmt.Errorf("decode identity: %w", unmarshalErr)
	}
	if opts.Query != "" {
		out, err = jmespath.Search(opts.Query, out)
		if err != nil {
			return fmt.Errorf("evaluate --query: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	if !opts.Raw {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

func promptPassword() (string, error) {
	if err := writef(os.Stderr, "Password: "); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func roleNames(sess domainauth.Session) string {
	if sess.Identity == nil || len(sess.Identity.Roles) == 0 {
		return "no roles"
	}
	names := make([]string, len(sess.Identity.Roles))
	for i, ref := range sess.Identity.Roles {
		names[i] = string(ref.Name)
	}
	return strings.Join(names, ", ")
}

func closeApp(app *bootstrap.App, ctx *commandContext) {
	if err := app.Close(); err != nil {
		ctx.Logger.Warn("close credential backend failed", "error", err)
	}
}

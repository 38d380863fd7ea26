package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/proserve/proserve-client/internal/bootstrap"
	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/ports"
)

type registerOptions struct {
	Username    string
	Password    string
	Email       string
	Name        string
	PhoneNumber string
	Role        string
	Description string
	Experience  string
	ServiceType string
	Documents   documentFlags
}

// documentFlags accumulates repeated --document type=path flags.
type documentFlags []documentSpec

type documentSpec struct {
	Type string
	Path string
}

func (d *documentFlags) String() string {
	parts := make([]string, len(*d))
	for i, spec := range *d {
		parts[i] = spec.Type + "=" + spec.Path
	}
	return strings.Join(parts, ",")
}

func (d *documentFlags) Set(value string) error {
	docType, path, found := strings.Cut(value, "=")
	if !found || docType == "" || path == "" {
		return fmt.Errorf("invalid document %q, expected type=path", value)
	}
	*d = append(*d, documentSpec{Type: docType, Path: path})
	return nil
}

func runRegister(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var opts registerOptions
	fs.StringVar(&opts.Username, "username", "", "account username (required)")
	fs.StringVar(&opts.Password, "password", "", "account password (prompted when omitted)")
	fs.StringVar(&opts.Email, "email", "", "contact email (required)")
	fs.StringVar(&opts.Name, "name", "", "display name")
	fs.StringVar(&opts.PhoneNumber, "phone", "", "contact phone number")
	fs.StringVar(&opts.Role, "role", string(domainauth.RoleCustomer), "account role: customer or professional")
	fs.StringVar(&opts.Description, "description", "", "professional profile description")
	fs.StringVar(&opts.Experience, "experience", "", "professional experience summary")
	fs.StringVar(&opts.ServiceType, "service-type", "", "professional service type")
	fs.Var(&opts.Documents, "document", "verification document as type=path, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.Username == "" {
		return errors.New("--username is required")
	}
	if opts.Email == "" {
		return errors.New("--email is required")
	}
	role := domainauth.Role(strings.ToLower(opts.Role))
	if role != domainauth.RoleCustomer && role != domainauth.RoleProfessional {
		return fmt.Errorf("invalid --role %q, expected customer or professional", opts.Role)
	}
	if opts.Password == "" {
		password, err := promptPassword()
		if err != nil {
			return err
		}
		opts.Password = password
	}

	reg := ports.Registration{
		Username:    opts.Username,
		Password:    opts.Password,
		Email:       opts.Email,
		Name:        opts.Name,
		PhoneNumber: opts.PhoneNumber,
		Role:        role,
		Description: opts.Description,
		Experience:  opts.Experience,
		ServiceType: opts.ServiceType,
	}

	for _, spec := range opts.Documents {
		file, err := os.Open(spec.Path)
		if err != nil {
			return fmt.Errorf("open document %s: %w", spec.Path, err)
		}
		defer file.Close()
		reg.Documents = append(reg.Documents, ports.Document{
			Type:    spec.Type,
			Name:    filepath.Base(spec.Path),
			Content: file,
		})
	}

	app, err := bootstrap.BuildApp(ctx.Ctx, ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer closeApp(app, ctx)

	result, err := app.Session.Register(ctx.Ctx, reg)
	if err != nil {
		if msg := app.Session.Err(); msg != "" {
			return fmt.Errorf("registration rejected: %s", msg)
		}
		return err
	}

	message := result.Message
	if message == "" {
		message = "account created"
	}
	if role == domainauth.RoleProfessional {
		message += " (professional accounts require approval before use)"
	}
	return writef(os.Stdout, "%s\n", message)
}

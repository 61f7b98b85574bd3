package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"journal/internal/cmd/flags"
	"journal/internal/core"
	"journal/internal/session"
)

var registerCmd = &cli.Command{
	Name:  "register",
	Usage: "Create an account, the password is prompted for",
	Flags: []cli.Flag{
		flags.Email,
		flags.DisplayName,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, pal.Provide[core.Command, registerRunner]())
	},
}

var verifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "Verify an email address with the token from the verification link",
	ArgsUsage: "<token>",
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, pal.Provide[core.Command, verifyRunner]())
	},
}

type registerRunner struct {
	Logger  *slog.Logger
	API     core.API
	Command *cli.Command
}

func (r *registerRunner) Run(ctx context.Context) error {
	p := newPrompter(os.Stdin, os.Stderr)

	password, err := p.Password("Password: ")
	if err != nil {
		return err
	}

	store := session.New(r.API, r.Logger)
	err = store.Register(ctx, core.Registration{
		Email:       r.Command.String(flags.Email.Name),
		Password:    password,
		DisplayName: r.Command.String(flags.DisplayName.Name),
	})
	if err != nil {
		return err
	}

	fmt.Println("Account created. Check your email for the verification link.")
	return nil
}

type verifyRunner struct {
	Logger  *slog.Logger
	API     core.API
	Command *cli.Command
}

func (r *verifyRunner) Run(ctx context.Context) error {
	store := session.New(r.API, r.Logger)
	if err := store.VerifyEmail(ctx, r.Command.Args().First()); err != nil {
		return err
	}

	fmt.Println("Email verified. You can sign in now.")
	return nil
}

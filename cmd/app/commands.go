package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/btsguard/cmd/app/commands"
	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	"github.com/allisson/btsguard/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getConfigCommands()...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getBackupCommands()...)
	cmds = append(cmds, getAuthCommands()...)
	return cmds
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   commands.FormatText,
		Usage:   "Output format: 'text', 'json' or 'yaml'",
	}
}

// sessionFlags identify the operator running a guarded command.
func sessionFlags(flags ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:     "operator",
			Aliases:  []string{"u"},
			Sources:  cli.EnvVars("BTSGUARD_OPERATOR"),
			Required: true,
			Usage:    "Operator name; the password is read from stdin",
		},
		&cli.StringFlag{
			Name:  "totp",
			Usage: "One-time code for operators enrolled in TOTP",
		},
		formatFlag(),
	}, flags...)
}

// newContainer loads and validates the configuration.
func newContainer() (*app.Container, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.NewContainer(cfg), nil
}

// withSession logs the operator in, checks the action and runs fn.
func withSession(
	ctx context.Context,
	cmd *cli.Command,
	action authDomain.Action,
	fn func(container *app.Container, actor *authDomain.Actor) error,
) error {
	container, err := newContainer()
	if err != nil {
		return err
	}
	defer commands.CloseContainer(container)

	auth, err := container.AuthUseCase(ctx)
	if err != nil {
		return err
	}
	actor, err := commands.Login(ctx, auth, commands.PromptIO(), cmd.String("operator"), cmd.String("totp"), action)
	if err != nil {
		return err
	}
	return fn(container, actor)
}

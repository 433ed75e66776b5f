package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/btsguard/cmd/app/commands"
	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
)

func getAuthCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-operator",
			Usage: "Create an operator; the acting admin's and the new password are read from stdin",
			Flags: sessionFlags(
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Name of the new operator",
				},
				&cli.StringFlag{
					Name:    "permissions",
					Aliases: []string{"p"},
					Value:   "read",
					Usage:   "Comma-separated permissions: read, edit, apply, rotate-cert, restore, admin",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionManageOperator,
					func(container *app.Container, actor *authDomain.Actor) error {
						auth, err := container.AuthUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunCreateOperator(
							ctx,
							auth,
							container.Logger(),
							commands.IOTuple{Reader: commands.PromptIO().Reader, Writer: commands.DefaultIO().Writer},
							actor.ID,
							cmd.String("name"),
							cmd.String("permissions"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "list-operators",
			Usage: "List operators and their permissions",
			Flags: sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionManageOperator,
					func(container *app.Container, actor *authDomain.Actor) error {
						auth, err := container.AuthUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunListOperators(ctx, auth, commands.DefaultIO().Writer, cmd.String("format"))
					})
			},
		},
		{
			Name:  "enroll-totp",
			Usage: "Enroll an operator in TOTP two-factor authentication",
			Flags: sessionFlags(
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Operator to enroll",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionManageOperator,
					func(container *app.Container, actor *authDomain.Actor) error {
						auth, err := container.AuthUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunEnrollTOTP(
							ctx,
							auth,
							container.Logger(),
							commands.DefaultIO().Writer,
							actor.ID,
							cmd.String("name"),
							cmd.String("format"),
						)
					})
			},
		},
	}
}

package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/btsguard/cmd/app/commands"
	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
)

func getConfigCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "show-config",
			Usage: "Print the current configuration or a historical version",
			Flags: sessionFlags(
				&cli.Uint64Flag{
					Name:  "version",
					Usage: "Version to print (default: current)",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionView,
					func(container *app.Container, actor *authDomain.Actor) error {
						store, err := container.ConfigUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunShowConfig(
							ctx,
							store,
							commands.DefaultIO().Writer,
							cmd.Uint64("version"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:      "set-field",
			Usage:     "Edit fields and commit them as a new version",
			ArgsUsage: "section.key=value [section.key=value ...]",
			Flags: sessionFlags(
				&cli.BoolFlag{
					Name:  "apply",
					Usage: "Apply the new version right away (requires the apply permission)",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionEditConfig,
					func(container *app.Container, actor *authDomain.Actor) error {
						auth, err := container.AuthUseCase(ctx)
						if err != nil {
							return err
						}
						if cmd.Bool("apply") {
							if err := auth.Authorize(ctx, actor, authDomain.ActionApplyConfig); err != nil {
								return err
							}
						}
						store, err := container.ConfigUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunSetField(
							ctx,
							store,
							container.Logger(),
							commands.DefaultIO().Writer,
							actor.ID,
							cmd.Args().Slice(),
							cmd.Bool("apply"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "apply",
			Usage: "Apply the current version to the station",
			Flags: sessionFlags(
				&cli.Uint64Flag{
					Name:  "version",
					Usage: "Version the operator reviewed; must be the current one",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionApplyConfig,
					func(container *app.Container, actor *authDomain.Actor) error {
						store, err := container.ConfigUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunApply(
							ctx,
							store,
							container.Logger(),
							commands.DefaultIO().Writer,
							actor.ID,
							cmd.Uint64("version"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "history",
			Usage: "List every committed configuration version",
			Flags: sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionView,
					func(container *app.Container, actor *authDomain.Actor) error {
						store, err := container.ConfigUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunHistory(ctx, store, commands.DefaultIO().Writer, cmd.String("format"))
					})
			},
		},
	}
}

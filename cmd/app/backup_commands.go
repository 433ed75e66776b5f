package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/btsguard/cmd/app/commands"
	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
)

func getBackupCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "snapshot",
			Usage: "Snapshot the configuration history and keystore",
			Flags: sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionSnapshot,
					func(container *app.Container, actor *authDomain.Actor) error {
						backups, err := container.BackupUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunSnapshot(
							ctx,
							backups,
							container.Logger(),
							commands.DefaultIO().Writer,
							actor.ID,
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:      "restore",
			Usage:     "Restore a snapshot after saving the current state",
			ArgsUsage: "<snapshot-id>",
			Flags:     sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionRestore,
					func(container *app.Container, actor *authDomain.Actor) error {
						backups, err := container.BackupUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunRestore(
							ctx,
							backups,
							container.Logger(),
							commands.DefaultIO().Writer,
							actor.ID,
							cmd.Args().First(),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "list-backups",
			Usage: "List snapshots, newest first",
			Flags: sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionView,
					func(container *app.Container, actor *authDomain.Actor) error {
						backups, err := container.BackupUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunListBackups(ctx, backups, commands.DefaultIO().Writer, cmd.String("format"))
					})
			},
		},
	}
}

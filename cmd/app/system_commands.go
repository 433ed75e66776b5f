package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/btsguard/cmd/app/commands"
	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	"github.com/allisson/btsguard/internal/config"
	cryptoService "github.com/allisson/btsguard/internal/crypto/service"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "init",
			Usage: "Prepare the state directory, the first admin operator and a default certificate",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "admin",
					Value: "admin",
					Usage: "Name of the admin operator created when none exists",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container)

				store, err := container.ConfigUseCase(ctx)
				if err != nil {
					return err
				}
				auth, err := container.AuthUseCase(ctx)
				if err != nil {
					return err
				}
				certs, err := container.CertificateUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunInit(
					ctx,
					store,
					auth,
					certs,
					container.Logger(),
					commands.PromptIO(),
					commands.InitParams{
						AdminName: cmd.String("admin"),
						Subject:   container.DefaultSubject(),
						Validity:  container.Config().CertValidity,
					},
				)
			},
		},
		{
			Name:  "dashboard",
			Usage: "Open the interactive dashboard",
			Flags: []cli.Flag{
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
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunDashboard(ctx, commands.PromptIO(), cmd.String("operator"), cmd.String("totp"))
			},
		},
		{
			Name:  "monitor",
			Usage: "Sample the station and serve /metrics, /health and /ready",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunMonitor(ctx, version)
			},
		},
		{
			Name:  "create-keystore-key",
			Usage: "Generate or verify the KMS key wrapping the keystore data key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "KMS key to verify (omit to generate a local base64key:// key)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container)

				return commands.RunCreateKeystoreKey(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "audit-log",
			Usage: "Print the audit trail",
			Flags: sessionFlags(
				&cli.Uint64Flag{
					Name:  "after",
					Usage: "Only entries with a greater sequence number",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"n"},
					Usage:   "Only the newest N entries",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionReadAudit,
					func(container *app.Container, actor *authDomain.Actor) error {
						audit, err := container.AuditUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunAuditLog(
							ctx,
							audit,
							commands.DefaultIO().Writer,
							cmd.Uint64("after"),
							int(cmd.Int("limit")),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "verify-audit-log",
			Usage: "Verify the signature and sequence of every audit entry",
			Flags: sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionReadAudit,
					func(container *app.Container, actor *authDomain.Actor) error {
						audit, err := container.AuditUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunVerifyAuditLog(
							ctx,
							audit,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.String("format"),
						)
					})
			},
		},
	}
}

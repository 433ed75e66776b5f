package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/btsguard/cmd/app/commands"
	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "generate-cert",
			Usage: "Generate a self-signed certificate for the station",
			Flags: sessionFlags(
				&cli.StringFlag{
					Name:  "common-name",
					Usage: "Subject common name (default: CERT_COMMON_NAME)",
				},
				&cli.StringSliceFlag{
					Name:  "dns",
					Usage: "Subject alternative DNS name (repeatable)",
				},
				&cli.StringSliceFlag{
					Name:  "ip",
					Usage: "Subject alternative IP address (repeatable)",
				},
				&cli.IntFlag{
					Name:  "days",
					Usage: "Validity in days (default: CERT_VALIDITY_DAYS)",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionGenerateCert,
					func(container *app.Container, actor *authDomain.Actor) error {
						certs, err := container.CertificateUseCase(ctx)
						if err != nil {
							return err
						}

						subject := container.DefaultSubject()
						if name := cmd.String("common-name"); name != "" {
							subject.CommonName = name
						}
						subject.DNSNames = cmd.StringSlice("dns")
						subject.IPAddresses = cmd.StringSlice("ip")

						validity := container.Config().CertValidity
						if days := cmd.Int("days"); days != 0 {
							validity = time.Duration(days) * 24 * time.Hour
						}

						return commands.RunGenerateCert(
							ctx,
							certs,
							container.Logger(),
							commands.DefaultIO().Writer,
							actor.ID,
							subject,
							validity,
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:      "rotate-cert",
			Usage:     "Replace an active certificate; the old one stays usable for the overlap window",
			ArgsUsage: "<certificate-id>",
			Flags:     sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionRotateCert,
					func(container *app.Container, actor *authDomain.Actor) error {
						certs, err := container.CertificateUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunRotateCert(
							ctx,
							certs,
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
			Name:  "list-certs",
			Usage: "List every certificate in the keystore",
			Flags: sessionFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionView,
					func(container *app.Container, actor *authDomain.Actor) error {
						certs, err := container.CertificateUseCase(ctx)
						if err != nil {
							return err
						}
						return commands.RunListCerts(ctx, certs, commands.DefaultIO().Writer, cmd.String("format"))
					})
			},
		},
		{
			Name:  "expiring-certs",
			Usage: "List active certificates expiring soon",
			Flags: sessionFlags(
				&cli.IntFlag{
					Name:    "days",
					Aliases: []string{"d"},
					Usage:   "Window in days (default: CERT_EXPIRY_WARNING_DAYS)",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSession(ctx, cmd, authDomain.ActionView,
					func(container *app.Container, actor *authDomain.Actor) error {
						certs, err := container.CertificateUseCase(ctx)
						if err != nil {
							return err
						}

						within := container.Config().CertExpiryWarning
						if days := cmd.Int("days"); days != 0 {
							within = time.Duration(days) * 24 * time.Hour
						}

						return commands.RunExpiringCerts(
							ctx,
							certs,
							commands.DefaultIO().Writer,
							within,
							cmd.String("format"),
						)
					})
			},
		},
	}
}

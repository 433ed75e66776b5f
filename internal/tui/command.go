package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/allisson/btsguard/internal/dashboard"
	apperrors "github.com/allisson/btsguard/internal/errors"
)

// ParseCommand turns a prompt line into an intent. Accepted forms:
//
//	set <section>.<key> <value>
//	commit | discard | refresh | reload | snapshot
//	apply [version]
//	generate-cert [validity-days]
//	rotate-cert <certificate-id>
//	restore <snapshot-id>
func ParseCommand(line string) (dashboard.Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return dashboard.Intent{}, apperrors.Wrap(apperrors.ErrInvalidInput, "empty command")
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "set":
		if len(args) < 2 {
			return dashboard.Intent{}, usage("set <section>.<key> <value>")
		}
		section, key, ok := strings.Cut(args[0], ".")
		if !ok || section == "" || key == "" {
			return dashboard.Intent{}, usage("set <section>.<key> <value>")
		}
		// Values may contain spaces, e.g. interface lists.
		value := strings.Join(args[1:], " ")
		return dashboard.Intent{Kind: dashboard.KindSetField, Section: section, Key: key, Value: value}, nil

	case "commit", "discard", "refresh", "reload", "snapshot":
		if len(args) != 0 {
			return dashboard.Intent{}, usage(name)
		}
		return dashboard.Intent{Kind: dashboard.Kind(name)}, nil

	case "apply":
		intent := dashboard.Intent{Kind: dashboard.KindApply}
		if len(args) > 1 {
			return dashboard.Intent{}, usage("apply [version]")
		}
		if len(args) == 1 {
			version, err := strconv.ParseUint(strings.TrimPrefix(args[0], "v"), 10, 64)
			if err != nil {
				return dashboard.Intent{}, usage("apply [version]")
			}
			intent.Version = version
		}
		return intent, nil

	case "generate-cert":
		intent := dashboard.Intent{Kind: dashboard.KindGenerateCert}
		if len(args) > 1 {
			return dashboard.Intent{}, usage("generate-cert [validity-days]")
		}
		if len(args) == 1 {
			days, err := strconv.Atoi(args[0])
			if err != nil || days <= 0 {
				return dashboard.Intent{}, usage("generate-cert [validity-days]")
			}
			intent.Validity = time.Duration(days) * 24 * time.Hour
		}
		return intent, nil

	case "rotate-cert", "restore":
		if len(args) != 1 {
			return dashboard.Intent{}, usage(name + " <id>")
		}
		return dashboard.Intent{Kind: dashboard.Kind(name), Target: args[0]}, nil
	}

	return dashboard.Intent{}, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown command %q", name)
}

func usage(form string) error {
	return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("usage: %s", form))
}

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
	configUseCase "github.com/allisson/btsguard/internal/stationconfig/usecase"
)

type fieldView struct {
	Key   string `json:"key"   yaml:"key"`
	Type  string `json:"type"  yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

type sectionView struct {
	Name   string      `json:"name"   yaml:"name"`
	Fields []fieldView `json:"fields" yaml:"fields"`
}

type documentView struct {
	Version      uint64        `json:"version"                 yaml:"version"`
	Digest       string        `json:"digest"                  yaml:"digest"`
	Status       string        `json:"status"                  yaml:"status"`
	StatusReason string        `json:"status_reason,omitempty" yaml:"status_reason,omitempty"`
	CommittedBy  string        `json:"committed_by"            yaml:"committed_by"`
	CommittedAt  time.Time     `json:"committed_at"            yaml:"committed_at"`
	Sections     []sectionView `json:"sections,omitempty"      yaml:"sections,omitempty"`
}

func newDocumentView(doc *configDomain.Document, withContent bool) documentView {
	view := documentView{
		Version:      doc.Version,
		Digest:       doc.Digest,
		Status:       string(doc.Status),
		StatusReason: doc.StatusReason,
		CommittedBy:  doc.CommittedBy,
		CommittedAt:  doc.CommittedAt,
	}
	if !withContent {
		return view
	}
	for _, section := range doc.Content {
		sv := sectionView{Name: section.Name}
		for _, field := range section.Fields {
			sv.Fields = append(sv.Fields, fieldView{
				Key:   field.Key,
				Type:  string(field.Value.Type),
				Value: field.Value.String(),
			})
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

// RunShowConfig prints the current document, or a historical one when version is set.
func RunShowConfig(
	ctx context.Context,
	store configUseCase.ConfigUseCase,
	writer io.Writer,
	version uint64,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	doc := store.Current(ctx)
	if version != 0 {
		var err error
		doc, err = store.Get(ctx, version)
		if err != nil {
			return fail(err)
		}
	}

	view := newDocumentView(doc, true)
	return writeOutput(writer, format, view, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Version %d (%s) committed by %s at %s\n",
			view.Version, view.Status, view.CommittedBy, view.CommittedAt.Format(time.RFC3339))
		if view.StatusReason != "" {
			_, _ = fmt.Fprintf(w, "Reason: %s\n", view.StatusReason)
		}
		_, _ = fmt.Fprintf(w, "Digest: %s\n", view.Digest)
		for _, section := range view.Sections {
			_, _ = fmt.Fprintf(w, "\n[%s]\n", section.Name)
			for _, field := range section.Fields {
				_, _ = fmt.Fprintf(w, "%s=%s\n", field.Key, field.Value)
			}
		}
	})
}

// parseAssignment splits "section.key=value".
func parseAssignment(assignment string) (section, key, value string, err error) {
	field, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return "", "", "", apperrors.Wrapf(apperrors.ErrInvalidInput, "expected section.key=value, got %q", assignment)
	}
	section, key, ok = strings.Cut(strings.TrimSpace(field), ".")
	if !ok || section == "" || key == "" {
		return "", "", "", apperrors.Wrapf(apperrors.ErrInvalidInput, "expected section.key=value, got %q", assignment)
	}
	return section, key, value, nil
}

// RunSetField edits one or more fields and commits them as a single version.
// When apply is set the new version is applied right away.
func RunSetField(
	ctx context.Context,
	store configUseCase.ConfigUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	assignments []string,
	apply bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if len(assignments) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "at least one section.key=value is required")
	}

	draft, err := store.BeginEdit(ctx)
	if err != nil {
		return fail(err)
	}
	for _, assignment := range assignments {
		section, key, value, err := parseAssignment(assignment)
		if err != nil {
			return err
		}
		if err := store.SetField(ctx, draft, section, key, value); err != nil {
			return fail(err)
		}
	}

	doc, err := store.Commit(ctx, actorID, draft)
	if err != nil {
		return fail(err)
	}
	logger.Info("configuration committed",
		slog.Uint64("version", doc.Version),
		slog.Int("changes", len(draft.Changes)),
		slog.String("actor_id", actorID),
	)

	if apply {
		if err := store.Apply(ctx, actorID, doc.Version); err != nil {
			return fail(err)
		}
		if applied, err := store.Get(ctx, doc.Version); err == nil {
			doc = applied
		}
	}

	view := newDocumentView(doc, false)
	return writeOutput(writer, format, view, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Committed version %d (%s)\n", view.Version, view.Status)
		for _, change := range draft.Changes {
			_, _ = fmt.Fprintf(w, "  %s: %s -> %s\n", change.Field(), change.Old.String(), change.New.String())
		}
	})
}

// RunApply applies the current version. version, when set, must name it.
func RunApply(
	ctx context.Context,
	store configUseCase.ConfigUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	version uint64,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if err := store.Apply(ctx, actorID, version); err != nil {
		return fail(err)
	}

	doc := store.Current(ctx)
	logger.Info("configuration applied", slog.Uint64("version", doc.Version), slog.String("actor_id", actorID))

	view := newDocumentView(doc, false)
	return writeOutput(writer, format, view, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Applied version %d\n", view.Version)
	})
}

// RunHistory lists every committed version, oldest first.
func RunHistory(
	ctx context.Context,
	store configUseCase.ConfigUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	history, err := store.History(ctx)
	if err != nil {
		return fail(err)
	}

	views := make([]documentView, 0, len(history))
	for _, doc := range history {
		views = append(views, newDocumentView(doc, false))
	}

	return writeOutput(writer, format, views, func(w io.Writer) {
		for _, view := range views {
			line := fmt.Sprintf("v%-5d %-10s %-20s %s", view.Version, view.Status, view.CommittedBy,
				view.CommittedAt.Format(time.RFC3339))
			if view.StatusReason != "" {
				line += " " + strconv.Quote(view.StatusReason)
			}
			_, _ = fmt.Fprintln(w, line)
		}
	})
}

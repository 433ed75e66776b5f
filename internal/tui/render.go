package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allisson/btsguard/internal/dashboard"
	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)
)

// Render draws a view. width 0 leaves panels unconstrained.
func Render(view *dashboard.ViewModel, width int) string {
	panel := panelStyle
	if width > 4 {
		panel = panel.Width(width - 4)
	}

	sections := []string{
		renderHeader(view),
		panel.Render(renderMetrics(view.Metrics)),
		panel.Render(renderConfig(view)),
		panel.Render(renderCertificates(view)),
		panel.Render(renderBackups(view)),
	}
	if notice := renderNotice(view.Notice); notice != "" {
		sections = append(sections, notice)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderHeader(view *dashboard.ViewModel) string {
	service := mutedStyle.Render("service: unknown")
	if view.Service != nil {
		if view.Service.Running {
			service = okStyle.Render("service: running")
		} else {
			service = errorStyle.Render("service: stopped")
			if view.Service.Detail != "" {
				service += mutedStyle.Render(" (" + view.Service.Detail + ")")
			}
		}
	}

	line := fmt.Sprintf("%s  %s  %s",
		titleStyle.Render("btsguard"),
		mutedStyle.Render(fmt.Sprintf("operator %s [%s]", view.Operator, strings.Join(view.Permissions, ","))),
		service,
	)
	if view.Drift != nil {
		line += "\n" + warnStyle.Render(fmt.Sprintf("drift: %s %s at %s",
			view.Drift.Path, view.Drift.Op, view.Drift.DetectedAt.Format(time.TimeOnly)))
	}
	return line
}

func renderMetrics(sample *monitorDomain.Snapshot) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Metrics"))
	if sample == nil {
		b.WriteString("\n" + mutedStyle.Render("no sample yet"))
		return b.String()
	}
	if sample.Stale {
		b.WriteString(" " + warnStyle.Render("(stale)"))
	}

	b.WriteString("\n")
	if sample.CPU != nil {
		fmt.Fprintf(&b, "cpu %.1f%%  load %.2f %.2f %.2f", sample.CPU.Percent, sample.CPU.Load1, sample.CPU.Load5, sample.CPU.Load15)
	} else {
		b.WriteString(unavailable(sample, monitorDomain.FieldCPU))
	}
	b.WriteString("\n")
	if sample.Memory != nil {
		fmt.Fprintf(&b, "memory %.1f%% of %d MiB", sample.Memory.UsedPercent, sample.Memory.Total>>20)
	} else {
		b.WriteString(unavailable(sample, monitorDomain.FieldMemory))
	}
	b.WriteString("\n")
	if sample.Sessions != nil {
		fmt.Fprintf(&b, "active sessions %d", *sample.Sessions)
	} else {
		b.WriteString(unavailable(sample, monitorDomain.FieldSessions))
	}
	for _, iface := range sample.Interfaces {
		state := errorStyle.Render("down")
		if iface.Up {
			state = okStyle.Render("up")
		}
		fmt.Fprintf(&b, "\n%-10s %s %s", iface.Name, state, iface.IPv4())
	}
	return b.String()
}

func unavailable(sample *monitorDomain.Snapshot, field monitorDomain.Field) string {
	return mutedStyle.Render(fmt.Sprintf("%s unavailable: %s", field, sample.Unavailable[field]))
}

func renderConfig(view *dashboard.ViewModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%d %s", headingStyle.Render("Configuration"), view.Config.Version, view.Config.Status)
	if view.Config.Reason != "" {
		b.WriteString(mutedStyle.Render(" (" + view.Config.Reason + ")"))
	}
	for _, section := range view.Config.Sections {
		b.WriteString("\n[" + section.Name + "]")
		for _, field := range section.Fields {
			if field.Changed {
				fmt.Fprintf(&b, "\n  %s = %s %s", field.Key, field.Value, pendingStyle.Render("-> "+field.Pending))
				continue
			}
			fmt.Fprintf(&b, "\n  %s = %s", field.Key, field.Value)
		}
	}
	if view.Draft != nil {
		fmt.Fprintf(&b, "\n%s on v%d", pendingStyle.Render("draft"), view.Draft.BaseVersion)
		for _, change := range view.Draft.Changes {
			b.WriteString("\n  " + pendingStyle.Render(change))
		}
	}
	return b.String()
}

func renderCertificates(view *dashboard.ViewModel) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Certificates"))
	if len(view.Certificates) == 0 {
		b.WriteString("\n" + mutedStyle.Render("none"))
	}
	for _, cert := range view.Certificates {
		line := fmt.Sprintf("%s %-10s %s until %s", cert.ID, cert.Status, cert.CommonName, cert.NotAfter.Format(time.DateOnly))
		switch {
		case !cert.Usable:
			line = mutedStyle.Render(line)
		case cert.Expiring:
			line = warnStyle.Render(line + " (expiring)")
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

func renderBackups(view *dashboard.ViewModel) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Backups"))
	if len(view.Backups) == 0 {
		b.WriteString("\n" + mutedStyle.Render("none"))
	}
	for _, backup := range view.Backups {
		fmt.Fprintf(&b, "\n%s %s v%d %s by %s",
			backup.ID, backup.CreatedAt.Format(time.DateTime), backup.ConfigVersion, backup.Reason, backup.CreatedBy)
	}
	return b.String()
}

func renderNotice(notice dashboard.Notice) string {
	switch notice.Level {
	case dashboard.LevelError:
		return errorStyle.Render(notice.Text)
	case dashboard.LevelWarning:
		return warnStyle.Render(notice.Text)
	}
	if notice.Text == "" {
		return ""
	}
	return okStyle.Render(notice.Text)
}

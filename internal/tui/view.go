package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/nanobanan/banana/internal/db/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")).
			Padding(0, 1)

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("220")).
			Padding(0, 1)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

func (m model) View() string {
	if m.detail != nil {
		return m.detailView()
	}

	var b strings.Builder

	filterName := "all"
	if statusFilters[m.filter] != models.JobStatusUnknown {
		filterName = statusFilters[m.filter].String()
	}
	title := titleStyle.Render("banana · job history")
	filter := filterStyle.Render(fmt.Sprintf("filter: %s", filterName))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", filter))
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.writing {
		b.WriteString(inputStyle.Render(m.input.View()))
		b.WriteString("\n")
	}

	b.WriteString(m.statusBar())
	b.WriteString("\n")

	help := "n new · enter detail · c cancel · f filter · r refresh · q quit"
	if m.writing {
		help = "enter submit · esc back"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m model) statusBar() string {
	active := m.counts[models.JobStatusQueued] + m.counts[models.JobStatusRunning]
	bar := fmt.Sprintf("%d queued · %d running · %d completed · %d failed",
		m.counts[models.JobStatusQueued],
		m.counts[models.JobStatusRunning],
		m.counts[models.JobStatusCompleted],
		m.counts[models.JobStatusFailed],
	)
	if active > 0 {
		bar = m.spin.View() + " " + bar
	}
	if m.status != "" {
		bar += "  " + errorStyle.Render(m.status)
	}
	return statusBarStyle.Render(bar)
}

func (m model) detailView() string {
	job := m.detail

	var b strings.Builder
	fmt.Fprintf(&b, "Job:      %s\n", job.ID)
	fmt.Fprintf(&b, "Kind:     %s\n", job.Kind)
	fmt.Fprintf(&b, "Status:   %s\n", job.Status)
	fmt.Fprintf(&b, "Attempts: %d\n", job.Attempts)
	fmt.Fprintf(&b, "Model:    %s\n", job.Params.Model)
	fmt.Fprintf(&b, "Ratio:    %s   Size: %s\n", job.Params.AspectRatio, job.Params.Size)
	fmt.Fprintf(&b, "Created:  %s\n", job.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Updated:  %s\n", job.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "\nPrompt:\n%s\n", job.Prompt)

	if job.SourceImage != "" {
		fmt.Fprintf(&b, "\nSource: %s\n", job.SourceImage)
	}
	if len(job.Images) > 0 {
		fmt.Fprintf(&b, "\nArtifacts:\n")
		for _, img := range job.Images {
			if img.Path != "" {
				fmt.Fprintf(&b, "  [%d] %s\n", img.Index, img.Path)
			} else {
				fmt.Fprintf(&b, "  [%d] %s (in history, not downloaded)\n", img.Index, img.MIMEType)
			}
		}
	}
	if job.ErrorKind != models.ErrorKindNone {
		fmt.Fprintf(&b, "\n%s\n", errorStyle.Render(fmt.Sprintf("error (%s): %s", job.ErrorKind, job.ErrorMsg)))
	}

	content := detailStyle.Render(b.String())
	hint := helpStyle.Render("esc back")
	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

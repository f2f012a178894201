// cmd/boardctl/render.go
package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/javajoker/tink-backend/internal/apiclient"
	"github.com/javajoker/tink-backend/internal/workflow"
)

const columnWidth = 34

type styles struct {
	column lipgloss.Style
	title  lipgloss.Style
	card   lipgloss.Style
	faint  lipgloss.Style
	alert  lipgloss.Style
	info   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		column: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(columnWidth),
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		card:  lipgloss.NewStyle().MarginTop(1),
		faint: lipgloss.NewStyle().Faint(true),
		alert: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		info:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func (s styles) renderBoard(columns []apiclient.Column) string {
	panels := make([]string, 0, len(columns))
	for _, column := range columns {
		panels = append(panels, s.renderColumn(column))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

func (s styles) renderColumn(column apiclient.Column) string {
	header := s.title.Render(fmt.Sprintf("%s (%d)", column.Title, len(column.Cards)))
	sections := []string{header, s.faint.Render("sort: " + string(column.SortMode))}

	if len(column.Cards) == 0 {
		sections = append(sections, s.card.Render(s.faint.Render("No applications")))
	}
	for _, card := range column.Cards {
		sections = append(sections, s.card.Render(s.renderCard(card)))
	}
	return s.column.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (s styles) renderCard(card apiclient.Card) string {
	labels := make([]string, 0, len(card.Actions))
	for _, action := range card.Actions {
		labels = append(labels, action.Label)
	}

	lines := []string{
		fmt.Sprintf("#%d %s", card.ID, workflow.DisplayName(card.Application)),
		s.faint.Render(fmt.Sprintf("%s, applied %s", card.Status, workflow.FormatDate(&card.ApplicationDate))),
	}
	if len(labels) > 0 {
		lines = append(lines, strings.Join(labels, " | "))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (s styles) renderDetail(app workflow.Application) string {
	rows := []string{
		s.title.Render(fmt.Sprintf("#%d %s", app.ID, workflow.DisplayName(app))),
		fmt.Sprintf("Status:      %s (%s)", app.Status, workflow.ColumnFor(string(app.Status))),
		fmt.Sprintf("Property:    #%d", app.PropertyRef),
		fmt.Sprintf("Applied:     %s", workflow.FormatDate(&app.ApplicationDate)),
		fmt.Sprintf("Move-in:     %s", workflow.FormatDate(app.DesiredMoveInDate)),
	}
	if app.TenantEmail != "" {
		rows = append(rows, fmt.Sprintf("Email:       %s", app.TenantEmail))
	}
	if app.TenantPhone != "" {
		rows = append(rows, fmt.Sprintf("Phone:       %s", app.TenantPhone))
	}
	if app.DecisionNotes != "" {
		rows = append(rows, fmt.Sprintf("Notes:       %s", app.DecisionNotes))
	}
	for _, v := range app.Viewings {
		date := v.Date
		rows = append(rows, fmt.Sprintf("Viewing:     %s %s with %s", workflow.FormatDate(&date), v.Time, v.ContactPerson))
	}
	if app.Lease != nil {
		rows = append(rows, fmt.Sprintf("Lease:       #%d (%s)", app.Lease.ID, app.Lease.Status))
	}
	return strings.Join(rows, "\n")
}

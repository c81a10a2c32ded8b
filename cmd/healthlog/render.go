package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"healthlog/internal/app"
	"healthlog/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const timeLayout = "2006-01-02 15:04"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
		Headers(headers...)
}

// renderEntries renders the list returned by EntryService.List or
// SearchNutrition as a table. Weights are shown in units.
func renderEntries(items any, units string, loc *time.Location) string {
	switch list := items.(type) {
	case []domain.WeightEntry:
		if len(list) == 0 {
			return mutedStyle.Render("No weight entries yet.")
		}
		t := newTable("ID", "When", "Weight", "Note")
		for _, e := range list {
			t.Row(e.ID, e.Timestamp.In(loc).Format(timeLayout),
				fmt.Sprintf("%.1f %s", domain.DisplayWeight(e.ValueKg, units), units), e.Note)
		}
		return t.String()
	case []domain.MoodEntry:
		if len(list) == 0 {
			return mutedStyle.Render("No mood entries yet.")
		}
		t := newTable("ID", "When", "Mood", "Tags", "Note")
		for _, e := range list {
			t.Row(e.ID, e.Timestamp.In(loc).Format(timeLayout),
				fmt.Sprintf("%d %s", e.MoodScore, domain.MoodLabels[e.MoodScore]),
				strings.Join(e.Tags, ", "), e.Note)
		}
		return t.String()
	case []domain.NutritionNote:
		if len(list) == 0 {
			return mutedStyle.Render("No nutrition notes found.")
		}
		t := newTable("ID", "When", "Meal", "Note")
		for _, n := range list {
			t.Row(n.ID, n.Timestamp.In(loc).Format(timeLayout), n.MealType, n.Text)
		}
		return t.String()
	}
	return fmt.Sprintf("%v", items)
}

func orDash(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// renderSummary renders the dashboard summary. now is passed in so relative
// times are stable.
func renderSummary(s app.Summary, now time.Time, loc *time.Location) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	name := s.Name
	if name == "" {
		name = "Health Tracker"
	}
	b.WriteString(titleStyle.Render(name) + "\n\n")

	line("Latest weight", orDash(s.Weight.Latest, "%.1f "+s.Units))
	line("7-day average", orDash(s.Weight.SevenDayAvg, "%.1f "+s.Units))
	line("Change", orDash(s.Weight.Change, "%+.1f "+s.Units))
	mood := "-"
	if s.AverageMood > 0 {
		mood = fmt.Sprintf("%.1f / 5", s.AverageMood)
	}
	line("Mood (7 days)", mood)
	line("Streak", humanize.Comma(int64(s.Consistency.Streak))+" days")
	line("Active this week", fmt.Sprintf("%d of 7 days", s.Consistency.ActiveDaysThisWeek))
	last := "never"
	if s.Consistency.LastLoggedAt != nil {
		last = humanize.RelTime(*s.Consistency.LastLoggedAt, now, "ago", "from now")
	}
	line("Last logged", last)
	line("Entries", fmt.Sprintf("%s weight, %s mood, %s nutrition",
		humanize.Comma(int64(s.Counts.Weight)), humanize.Comma(int64(s.Counts.Mood)), humanize.Comma(int64(s.Counts.Nutrition))))
	if s.Unsynced > 0 {
		line("Not synced", fmt.Sprintf("%d entries", s.Unsynced))
	}

	b.WriteString("\n" + titleStyle.Render("Today") + "\n")
	if len(s.Today) == 0 {
		b.WriteString(mutedStyle.Render("Nothing logged today."))
	}
	for i, it := range s.Today {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s  %-9s %s", it.Timestamp.In(loc).Format("15:04"), it.Kind, timelineValue(it, s.Units)))
	}
	return boxStyle.Render(b.String())
}

func timelineValue(it domain.TimelineItem, units string) string {
	var v string
	switch {
	case it.Weight != nil:
		v = fmt.Sprintf("%.1f %s", domain.DisplayWeight(it.Weight.ValueKg, units), units)
	case it.Mood != nil:
		v = domain.MoodLabels[it.Mood.MoodScore]
	}
	if snip := it.Snippet(); snip != "" {
		if v != "" {
			v += " · "
		}
		v += snip
	}
	return v
}

// renderConnection renders the health connection and its permissions.
func renderConnection(c domain.HealthConnection, now time.Time) string {
	var b strings.Builder
	status := "Disconnected"
	if c.Connected() {
		status = "Connected"
	}
	b.WriteString(titleStyle.Render(status))
	if c.LastSyncAt != nil {
		b.WriteString(mutedStyle.Render("  last sync " + humanize.RelTime(*c.LastSyncAt, now, "ago", "from now")))
	}
	b.WriteString("\n")
	for _, p := range c.Permissions {
		mark := "[ ]"
		if p.Enabled {
			mark = "[x]"
		}
		b.WriteString(fmt.Sprintf("\n%s %s", mark, p.Name))
	}
	return b.String()
}

func renderDaily(points []app.DayPoint) string {
	t := newTable("Day", "Weight", "Mood", "Meals")
	for _, p := range points {
		weight := "-"
		if p.Weight != nil {
			weight = fmt.Sprintf("%.1f %s", p.Weight.Value, p.Weight.Unit)
		}
		t.Row(p.Day, weight, orDash(p.Mood, "%.1f"), fmt.Sprint(p.Meals))
	}
	return t.String()
}

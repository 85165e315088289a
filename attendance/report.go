package attendance

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// RunMeta is run metadata rendered into every status report.
type RunMeta struct {
	CheckName  string
	StartedAt  time.Time
	Repository string
	RunNumber  string
	RunURL     string
}

// MetaFromEnv builds RunMeta from the GitHub Actions environment, falling
// back to local-run placeholders outside CI.
func MetaFromEnv(checkName string, start time.Time) RunMeta {
	m := RunMeta{
		CheckName:  checkName,
		StartedAt:  start,
		Repository: os.Getenv("GITHUB_REPOSITORY"),
		RunNumber:  os.Getenv("GITHUB_RUN_NUMBER"),
	}
	if m.Repository == "" {
		m.Repository = "local run"
	}
	if m.RunNumber == "" {
		m.RunNumber = "local"
	}
	server := os.Getenv("GITHUB_SERVER_URL")
	repo := os.Getenv("GITHUB_REPOSITORY")
	runID := os.Getenv("GITHUB_RUN_ID")
	if server != "" && repo != "" && runID != "" {
		m.RunURL = fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, runID)
	}
	return m
}

// Lines renders the pass counts as the fixed-order status report.
func (r Report) Lines(meta RunMeta) []string {
	head := "✅ Attendance update completed"
	if r.DryRun {
		head += " (dry run)"
	}
	yesterday := "N/A"
	if r.YesterdayMarked != nil {
		yesterday = fmt.Sprintf("%d", *r.YesterdayMarked)
	}
	lines := []string{
		head,
		"• Check: " + meta.CheckName,
		"• When: " + meta.StartedAt.Format("3:04PM MST"),
		fmt.Sprintf("• Today marked: %d", r.TodayMarked),
		"• Yesterday marked: " + yesterday,
		fmt.Sprintf("• Reactors found: %d", r.ReactorsFound),
		fmt.Sprintf("• Individuals updated: %d", r.IndividualsUpdated),
		fmt.Sprintf("• Groups updated: %d", r.GroupsUpdated),
		fmt.Sprintf("• Unmapped reactors: %d", r.UnmappedReactors),
		fmt.Sprintf("• Missing rows in Individuals: %d", r.MissingRows),
		fmt.Sprintf("• Took: %ds", int(r.Elapsed.Seconds())),
		"• Repo: " + meta.Repository,
		"• Run: #" + meta.RunNumber,
	}
	return append(lines, logsLine(meta))
}

// FailureLines renders the failure-flavored report: same metadata, with the
// error description in place of the counts.
func FailureLines(meta RunMeta, reason string) []string {
	return []string{
		"❌ Attendance update failed",
		"• Check: " + meta.CheckName,
		"• When: " + meta.StartedAt.Format("3:04PM MST"),
		"• Reason: " + reason,
		"• Repo: " + meta.Repository,
		"• Run: #" + meta.RunNumber,
		logsLine(meta),
	}
}

// Lines renders a backfill range as a status report.
func (r BackfillReport) Lines(meta RunMeta) []string {
	lines := []string{
		"✅ Attendance backfill completed",
		"• Check: " + meta.CheckName,
		"• When: " + meta.StartedAt.Format("3:04PM MST"),
		fmt.Sprintf("• Range: %s → %s", r.From.Format("2006-01-02"), r.To.Format("2006-01-02")),
		fmt.Sprintf("• Days updated: %d/%d", r.DaysUpdated, r.DaysTried),
	}
	if len(r.SkippedDates) > 0 {
		lines = append(lines, "• Skipped: "+strings.Join(r.SkippedDates, ", "))
	}
	lines = append(lines,
		"• Repo: "+meta.Repository,
		"• Run: #"+meta.RunNumber,
		logsLine(meta),
	)
	return lines
}

func logsLine(meta RunMeta) string {
	if meta.RunURL != "" {
		return "• Logs: " + meta.RunURL
	}
	return "• Logs: (local)"
}

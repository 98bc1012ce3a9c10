// Package email renders verification run notifications. Delivery lives in
// the ses and noop subpackages.
package email

import (
	"fmt"
	"html"
	"strings"

	"reportverify/internal/domain"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// RunReport renders the notification for a finished run. appURL is the base
// URL of the API, used to link the stored run.
func RunReport(run *domain.VerificationRun, appURL string) Message {
	status := "PASSED"
	if !run.Passed {
		status = "FAILED"
	}
	link := fmt.Sprintf("%s/api/v1/verifications/%s", strings.TrimRight(appURL, "/"), run.ID)
	subject := fmt.Sprintf("Report verification %s: %s", status, run.ReportName)

	lines := failedChecks(run.Report)

	var text strings.Builder
	fmt.Fprintf(&text, "Verification of %s against %s %s.\n\n", run.ReportName, run.DesignSpecName, strings.ToLower(status))
	if len(lines) > 0 {
		text.WriteString("Failed checks:\n")
		for _, l := range lines {
			fmt.Fprintf(&text, "  - %s\n", l)
		}
		text.WriteString("\n")
	}
	fmt.Fprintf(&text, "Full results: %s\n", link)

	var items strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&items, "<li>%s</li>", html.EscapeString(l))
	}
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Report verification %s</h2>
  <p><strong>%s</strong> checked against <strong>%s</strong>.</p>
  <ul>%s</ul>
  <p><a href="%s">View full results</a></p>
</body>
</html>`, status, html.EscapeString(run.ReportName), html.EscapeString(run.DesignSpecName), items.String(), link)

	return Message{Subject: subject, Text: text.String(), HTML: body}
}

func failedChecks(r *domain.Report) []string {
	if r == nil {
		return nil
	}
	var out []string
	add := func(name string, passed bool, msg string) {
		if !passed {
			out = append(out, fmt.Sprintf("%s: %s", name, msg))
		}
	}
	add("Cover title", r.Cover.Title.Passed, r.Cover.Title.Message)
	add("Cover version", r.Cover.Version.Passed, r.Cover.Version.Message)
	add("ETL dates", r.Cover.ETLDates.Passed, r.Cover.ETLDates.Message)
	for _, c := range r.Columns {
		add(fmt.Sprintf("Standard %d columns", c.Standard), c.Result.Passed, c.Result.Message)
	}
	add("Spot check", r.SpotCheck.Passed, r.SpotCheck.Message)
	add("Summary fields", r.SummaryFields.Passed, r.SummaryFields.Message)
	for _, a := range r.Assertions {
		add(a.Name, a.Passed, a.Message)
	}
	add("Reconciliation", r.Reconciliation.Passed, r.Reconciliation.Message)
	return out
}

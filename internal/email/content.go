// Package email renders reconciliation notifications; the ses and noop
// subpackages deliver them.
package email

import (
	"fmt"
	"html"
	"strings"

	"recontab/internal/port"
	"recontab/internal/report"
)

// Content is a rendered message.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// RunURL links to a run in the web app.
func RunURL(frontendURL string, msg port.ReportEmail) string {
	return fmt.Sprintf("%s/reconciliations/%s", strings.TrimRight(frontendURL, "/"), msg.RunID)
}

func outcome(msg port.ReportEmail) string {
	if msg.Summary.IsZeroDelta {
		return "zero delta"
	}
	n := msg.Summary.Discrepancies + msg.Summary.Missing + msg.Summary.Extra
	if n == 1 {
		return "1 difference"
	}
	return fmt.Sprintf("%d differences", n)
}

// BuildReportContent renders the notification for a completed run.
func BuildReportContent(msg port.ReportEmail, frontendURL string) Content {
	s := msg.Summary
	subject := fmt.Sprintf("%s %s reconciliation: %s", msg.ClientName, report.TypeLabel(msg.Type), outcome(msg))
	period := fmt.Sprintf("%s to %s", msg.Period.Start.Format("2006-01-02"), msg.Period.End.Format("2006-01-02"))
	runURL := RunURL(frontendURL, msg)

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n", msg.ToName)
	fmt.Fprintf(&text, "The %s reconciliation for %s (%s) has finished: %s.\n\n", report.TypeLabel(msg.Type), msg.ClientName, period, outcome(msg))
	fmt.Fprintf(&text, "Match rate: %d%%\nPerfect: %d\nWithin tolerance: %d\nDiscrepancies: %d\nMissing from system: %d\nExtra in system: %d\n\n",
		s.MatchRate, s.Perfect, s.WithinTolerance, s.Discrepancies, s.Missing, s.Extra)
	if msg.ReportURL != "" {
		fmt.Fprintf(&text, "Audit report (link valid for a limited time):\n%s\n\n", msg.ReportURL)
	}
	fmt.Fprintf(&text, "Open the run:\n%s\n\nRecontab", runURL)

	reportLink := ""
	if msg.ReportURL != "" {
		reportLink = fmt.Sprintf(`<p><a href="%s">Download the audit report</a> (link valid for a limited time)</p>`, html.EscapeString(msg.ReportURL))
	}
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s reconciliation: %s</h2>
  <p>Hi %s,</p>
  <p>The reconciliation for <strong>%s</strong> covering %s has finished.</p>
  <table style="border-collapse: collapse;">
    <tr><td>Match rate</td><td style="text-align: right;">%d%%</td></tr>
    <tr><td>Perfect</td><td style="text-align: right;">%d</td></tr>
    <tr><td>Within tolerance</td><td style="text-align: right;">%d</td></tr>
    <tr><td>Discrepancies</td><td style="text-align: right;">%d</td></tr>
    <tr><td>Missing from system</td><td style="text-align: right;">%d</td></tr>
    <tr><td>Extra in system</td><td style="text-align: right;">%d</td></tr>
  </table>
  %s
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Open run</a>
  </p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">Recontab</p>
</body>
</html>`,
		html.EscapeString(report.TypeLabel(msg.Type)), html.EscapeString(outcome(msg)),
		html.EscapeString(msg.ToName), html.EscapeString(msg.ClientName), period,
		s.MatchRate, s.Perfect, s.WithinTolerance, s.Discrepancies, s.Missing, s.Extra,
		reportLink, html.EscapeString(runURL))

	return Content{Subject: subject, HTML: body, Text: text.String()}
}

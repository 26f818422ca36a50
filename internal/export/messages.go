package export

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"feeledger/internal/core"
)

const reminderText = `Dear Parent,
This is a friendly reminder that the fee payment for {{.Month}} is due for {{.Name}} ({{.Class}}).
Amount: {{.Fee}}
Please pay at your earliest convenience.
Thank you,
{{.School}}
{{/* blank line between messages */}}
`

var reminderTmpl = template.Must(template.New("reminder").Parse(reminderText))

type reminderMessage struct {
	Month  string
	Name   string
	Class  core.ClassCategory
	Fee    core.Money
	School string
}

// RenderReminderMessages writes one ready-to-send message per reminder row.
// Nothing is written for an inactive report.
func RenderReminderMessages(out io.Writer, report core.ReminderReport, school string) error {
	if !report.Active {
		return nil
	}
	month := displayMonth(report.Month)
	for _, r := range report.Rows {
		msg := reminderMessage{
			Month:  month,
			Name:   r.StudentName,
			Class:  r.Class,
			Fee:    r.MonthlyFee,
			School: school,
		}
		if err := reminderTmpl.Execute(out, msg); err != nil {
			return fmt.Errorf("render reminder for %s: %w", r.StudentID, err)
		}
	}
	return nil
}

// displayMonth turns "APRIL" into "April".
func displayMonth(m core.Month) string {
	s := strings.ToLower(string(m))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

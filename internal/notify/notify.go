// Package notify posts quality alerts to a chat channel webhook.
package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"qcportal/internal/model"
)

// Message is a chat card: a bold title followed by one line per detail.
type Message struct {
	Title string
	Lines []string
}

// Text renders m in the markdown subset accepted by incoming webhooks.
func (m Message) Text() string {
	return "**" + m.Title + "**\n" + strings.Join(m.Lines, "\n")
}

// Notifier delivers alerts. Send must not block the caller on network I/O
// and never reports delivery failures.
type Notifier interface {
	Send(ctx context.Context, msg Message)
}

// Noop drops every message.
type Noop struct{}

func (Noop) Send(context.Context, Message) {}

const descriptionLimit = 300

// ForRecord returns the alert for a freshly stored record, or false when the
// record does not warrant one. First-piece records alert only on status NG;
// every nonconformity alerts.
func ForRecord(r *model.Record) (Message, bool) {
	root := model.Root(r.ModelNo)
	switch r.Kind {
	case model.KindFirstPiece:
		if !strings.EqualFold(r.Status, "NG") {
			return Message{}, false
		}
		return Message{
			Title: fmt.Sprintf("FPA NG - %s / %s", root, r.Version),
			Lines: []string{
				"MO: " + r.MO,
				"SN: " + r.SerialNo,
				"Reporter: " + r.Reporter,
				"Notes: " + orDash(r.ReviewNotes),
			},
		}, true
	case model.KindNonconformity:
		return Message{
			Title: fmt.Sprintf("NC %s - %s / %s", r.Severity, root, r.Version),
			Lines: []string{
				"MO: " + r.MO,
				fmt.Sprintf("Station: %s | Line: %s", r.Station, r.Line),
				fmt.Sprintf("Qty: %s/%s (Lot %s)", qty(r.DefectiveQty), qty(r.InspectionQty), qty(r.LotQty)),
				"Reporter: " + r.Reporter,
				"Desc: " + truncate(r.Description, descriptionLimit),
			},
		}, true
	}
	return Message{}, false
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func qty(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", f), "0"), ".")
}

// truncate cuts s to n runes and marks the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// package formatter renders queue state for terminal output: a styled
// listing, humanized wait estimates, and JSON export.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spool/internal/queue"
	"github.com/desertthunder/spool/internal/shared"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	positionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	readyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	streamStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	emptyStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
)

// QueueListing renders the session's queue, one line per entry with its
// 1-based position, readiness marker, title, and duration when known.
func QueueListing(session string, entries []queue.Entry) string {
	var buf bytes.Buffer

	buf.WriteString(titleStyle.Render(fmt.Sprintf("Queue for %s", session)))
	buf.WriteString("\n")

	if len(entries) == 0 {
		buf.WriteString(emptyStyle.Render("(empty)"))
		buf.WriteString("\n")
		return buf.String()
	}

	for i, e := range entries {
		buf.WriteString(positionStyle.Render(fmt.Sprintf("%3d.", i+1)))
		buf.WriteString(" ")
		buf.WriteString(marker(e))
		buf.WriteString(" ")
		buf.WriteString(e.Title())
		if d, ok := e.Duration(); ok {
			buf.WriteString(positionStyle.Render(fmt.Sprintf(" [%s]", shared.FormatDuration(d))))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

func marker(e queue.Entry) string {
	if _, ok := e.(*queue.StreamEntry); ok {
		return streamStyle.Render("~")
	}
	if e.IsDownloaded() {
		return readyStyle.Render("*")
	}
	return pendingStyle.Render("-")
}

// ETAText renders a wait estimate as relative human time ("4 minutes from
// now"). Sub-second estimates render as "now".
func ETAText(eta time.Duration) string {
	if eta < time.Second {
		return "now"
	}
	return humanize.Time(time.Now().Add(eta))
}

// SizeText renders a byte count in human form.
func SizeText(n int64) string {
	return humanize.Bytes(uint64(n))
}

// queueItem is the JSON shape of one listed entry.
type queueItem struct {
	Position int      `json:"position"`
	Title    string   `json:"title"`
	Locator  string   `json:"locator"`
	Duration *float64 `json:"duration,omitempty"`
	Ready    bool     `json:"ready"`
	Stream   bool     `json:"stream"`
}

// QueueJSON renders the queue listing as indented JSON.
func QueueJSON(entries []queue.Entry) ([]byte, error) {
	items := make([]queueItem, 0, len(entries))
	for i, e := range entries {
		item := queueItem{
			Position: i + 1,
			Title:    e.Title(),
			Locator:  e.Locator(),
			Ready:    e.IsDownloaded(),
		}
		if d, ok := e.Duration(); ok {
			s := d.Seconds()
			item.Duration = &s
		}
		if _, ok := e.(*queue.StreamEntry); ok {
			item.Stream = true
		}
		items = append(items, item)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue listing: %w", err)
	}
	return data, nil
}

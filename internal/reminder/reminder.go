// Package reminder delivers the daily "items are overdue" notification.
package reminder

import "fmt"

const (
	Title = "Freezer reminder"
	Tag   = "freezer-overdue"
)

// Request asks for a daily reminder at Hour:00 about OverdueCount items.
type Request struct {
	OverdueCount int
	Hour         int
}

// Notifier keeps at most one pending reminder. Schedule replaces it.
type Notifier interface {
	Schedule(req Request)
	Clear()
}

// Nop discards reminders.
type Nop struct{}

func (Nop) Schedule(Request) {}
func (Nop) Clear()           {}

// Body is the reminder text for count overdue items.
func Body(count int) string {
	if count == 1 {
		return "1 item has been in the freezer longer than your limit."
	}
	return fmt.Sprintf("%d items have been in the freezer longer than your limit.", count)
}

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// PayloadFor builds the reminder payload for req.
func PayloadFor(req Request) Payload {
	return Payload{Title: Title, Body: Body(req.OverdueCount), Tag: Tag}
}

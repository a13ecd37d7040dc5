package notify

import (
	"fmt"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/model"
)

// FormatDuration renders a ban length for humans.
func FormatDuration(seconds uint32) string {
	if seconds == model.PermanentDuration {
		return "permanent"
	}

	return (time.Duration(seconds) * time.Second).String()
}

// Title is the headline of an event.
func Title(kind model.EventKind) string {
	switch kind {
	case model.EventBanIssued:
		return "Player banned"
	case model.EventEvasionDetected:
		return "Ban evasion detected"
	case model.EventKick:
		return "Player kicked"
	case model.EventUnban:
		return "Player unbanned"
	default:
		return "Ban event"
	}
}

// Describe is a one line summary of an event.
func Describe(event model.BanEvent) string {
	switch event.Kind {
	case model.EventBanIssued:
		return fmt.Sprintf("%s was banned. Reason: %s", event.Subject, event.Reason)
	case model.EventEvasionDetected:
		return fmt.Sprintf("%s tried to evade a ban. Reason: %s", event.Subject, event.Reason)
	case model.EventKick:
		return fmt.Sprintf("%s was kicked. Reason: %s", event.Subject, event.Reason)
	case model.EventUnban:
		return fmt.Sprintf("%s was unbanned", event.Subject)
	default:
		return event.Subject
	}
}

// Field is a labelled value of an event.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Fields lists the details shown for each kind of event.
func Fields(event model.BanEvent) []Field {
	fields := []Field{
		{Name: "Account", Value: event.SubjectID.ToString(), Inline: true},
	}

	switch event.Kind {
	case model.EventBanIssued:
		fields = append(fields, Field{Name: "Banned by", Value: actor(event), Inline: true})
	case model.EventKick:
		fields = append(fields, Field{Name: "Kicked by", Value: actor(event), Inline: true})
	case model.EventUnban:
		fields = append(fields, Field{Name: "Unbanned by", Value: actor(event), Inline: true})
	case model.EventEvasionDetected:
	}

	fields = append(fields, Field{Name: "Time", Value: event.At.UTC().Format(time.RFC1123), Inline: true})

	if event.Kind != model.EventUnban {
		fields = append(fields, Field{Name: "Reason", Value: event.Reason, Inline: event.Kind != model.EventEvasionDetected})
	}

	if event.Kind == model.EventBanIssued || event.Kind == model.EventEvasionDetected {
		fields = append(fields, Field{Name: "Duration", Value: FormatDuration(event.DurationSeconds), Inline: true})
	}

	return fields
}

func actor(event model.BanEvent) string {
	if event.External && event.ActorID != 0 {
		return event.Actor + " (" + event.ActorID.ToString() + ")"
	}

	return event.Actor
}

// internal/delivery/format.go
package delivery

import (
	"fmt"
	"html"
	"strings"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	"github.com/dhivaai/microlearn-backend/internal/model"
)

// RenderContent turns a content item into the channel-agnostic message,
// framed with its position in the course ("Day 3 of 10"). Empty sections
// are skipped so partially generated items still read cleanly.
func RenderContent(item *model.ContentItem, totalDays int) channel.Message {
	header := fmt.Sprintf("Day %d of %d", item.DayNumber, totalDays)

	subject := item.Subject
	if subject == "" {
		subject = header
	}

	sections := []string{}
	for _, s := range []string{item.Intro, item.Concept, item.Recap} {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}

	text := header
	if item.Subject != "" {
		text += ": " + item.Subject
	}
	if len(sections) > 0 {
		text += "\n\n" + strings.Join(sections, "\n\n")
	}

	var b strings.Builder
	b.WriteString("<h2>" + html.EscapeString(header) + "</h2>")
	if item.Subject != "" {
		b.WriteString("<h3>" + html.EscapeString(item.Subject) + "</h3>")
	}
	for i, s := range sections {
		if i == len(sections)-1 && len(sections) > 1 {
			// Recap reads as a closing note.
			b.WriteString("<p><em>" + html.EscapeString(s) + "</em></p>")
			continue
		}
		b.WriteString("<p>" + html.EscapeString(s) + "</p>")
	}

	return channel.Message{
		Subject: subject,
		Text:    text,
		HTML:    b.String(),
	}
}

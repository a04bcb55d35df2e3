package main

import (
	"chat-relay/client"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/ws"
	"encoding/json"
	"fmt"

	"github.com/gookit/color"
)

type printer struct {
	colours bool
}

func newPrinter(colours bool) printer {
	return printer{colours: colours}
}

func (p printer) render(style color.Style, text string) string {
	if !p.colours {
		return text
	}
	return style.Render(text)
}

func (p printer) info(format string, args ...any) {
	fmt.Println(p.render(color.New(color.FgGray), fmt.Sprintf(format, args...)))
}

func (p printer) failure(format string, args ...any) {
	fmt.Println(p.render(color.New(color.FgRed), fmt.Sprintf(format, args...)))
}

func (p printer) status(send client.PendingSend) {
	switch send.Status {
	case client.StatusSent:
		p.info("sent %s", send.MessageID)
	case client.StatusFailed:
		p.failure("failed %q: %v (/retry to resend)", send.Content, send.Err)
	default:
		p.info("pending %s", send.CorrelationID)
	}
}

// event prints one pushed event. Unknown payloads are shown raw.
func (p printer) event(frame ws.Frame) {
	switch event.Type(frame.Type) {
	case event.MessageCreatedType:
		var m event.MessageCreated
		if json.Unmarshal(frame.Payload, &m) == nil {
			fmt.Printf("%s %s %s\n",
				p.render(color.New(color.FgGray), m.CreatedAt.Local().Format("15:04:05")),
				p.render(color.New(color.FgCyan, color.OpBold), m.DisplayName+":"),
				m.Content)
			return
		}
	case event.PresenceListType:
		var list event.PresenceList
		if json.Unmarshal(frame.Payload, &list) == nil {
			names := make([]string, 0, len(list.Users))
			for _, u := range list.Users {
				names = append(names, u.DisplayName)
			}
			p.info("online in %s: %v", list.RoomID, names)
			return
		}
	case event.TypingStartedType, event.TypingStoppedType:
		return
	case event.ErrorType:
		p.failure("error: %s", frame.Payload)
		return
	case event.NotificationCreatedType, event.RoomJoinedType, event.RoomDeletedType:
		fmt.Println(p.render(color.New(color.BgBlack, color.FgGreen), fmt.Sprintf("%s %s", frame.Type, frame.Payload)))
		return
	}
	p.info("%s %s", frame.Type, frame.Payload)
}

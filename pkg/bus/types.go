package bus

import "fmt"

// Endpoint identifies one addressable chat destination that can receive
// broadcasts and relayed traffic.
type Endpoint struct {
	Channel string `json:"channel"` // "telegram" | "discord" | "slack" | "console"
	ChatID  string `json:"chat_id"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s", e.Channel, e.ChatID)
}

// EventKind classifies an inbound chat event. Every event is routed to
// exactly one handler based on its kind.
type EventKind string

const (
	KindCommand  EventKind = "command"  // recognized slash command
	KindText     EventKind = "text"     // plain free text
	KindCallback EventKind = "callback" // inline control interaction
)

// InboundEvent is one chat event received from a channel.
type InboundEvent struct {
	ID         string    `json:"id"` // assigned by the channel, for log correlation
	Kind       EventKind `json:"kind"`
	Endpoint   Endpoint  `json:"endpoint"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Command    string    `json:"command,omitempty"` // kind == command
	Text       string    `json:"text,omitempty"`    // kind == text
	Payload    string    `json:"payload,omitempty"` // kind == callback, "<action>:<id>"
}

// ItemControls asks the delivering channel to attach claim/unclaim
// controls addressed to the given item.
type ItemControls struct {
	ItemID int64 `json:"item_id"`
}

// OutboundMessage is one message to deliver to a single endpoint.
type OutboundMessage struct {
	Endpoint Endpoint      `json:"endpoint"`
	Text     string        `json:"text"`
	Controls *ItemControls `json:"controls,omitempty"`
	ShowMenu bool          `json:"show_menu,omitempty"` // render the command keyboard where supported
}

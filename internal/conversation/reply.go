package conversation

import (
	"context"
	"fmt"
)

// Inbound event kinds, normalized from whatever webhook shape the
// messaging platform delivers.
const (
	EventMessage  = "message"  // free-text message from the user
	EventPostback = "postback" // button tap carrying a token
	EventFollow   = "follow"   // user added the bot
)

// Event is one normalized inbound webhook event.
type Event struct {
	Type         string
	SourceID     string // opaque platform identity of the sender
	Text         string // message text, EventMessage only
	PostbackData string // token payload, EventPostback only
	ReplyHandle  string // platform reply token for this event
}

// Choice is one quick-reply button: Label is shown on the button, Data
// is the postback token sent back when tapped. Text-only choices (no
// Data) echo Text as a user message instead.
type Choice struct {
	Label string `json:"label"`
	Text  string `json:"text,omitempty"`
	Data  string `json:"data,omitempty"`
}

// Card is one item card in a carousel prompt.
type Card struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Data  string `json:"data"`
}

// Reply is one outbound message: text, optionally decorated with
// quick-reply choices or a card carousel.
type Reply struct {
	Text    string   `json:"text"`
	Choices []Choice `json:"choices,omitempty"`
	Cards   []Card   `json:"cards,omitempty"`
}

// TextReply builds a plain text reply.
func TextReply(format string, args ...interface{}) Reply {
	if len(args) == 0 {
		return Reply{Text: format}
	}
	return Reply{Text: fmt.Sprintf(format, args...)}
}

// Replier delivers replies back to the platform against the event's
// reply handle.
type Replier interface {
	Send(ctx context.Context, replyHandle string, replies []Reply) error
}

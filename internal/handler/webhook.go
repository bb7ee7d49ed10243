package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/magokoro/onigiri-reservation/internal/conversation"
)

// WebhookHandler receives messaging-platform callbacks and feeds them
// through the conversation machine.
type WebhookHandler struct {
	Machine *conversation.Machine
	Replier conversation.Replier
}

func NewWebhookHandler(m *conversation.Machine, r conversation.Replier) *WebhookHandler {
	if r == nil {
		r = LogReplier{}
	}
	return &WebhookHandler{Machine: m, Replier: r}
}

type webhookEvent struct {
	Type         string `json:"type"`
	SourceID     string `json:"source_id"`
	Text         string `json:"text,omitempty"`
	PostbackData string `json:"postback_data,omitempty"`
	ReplyHandle  string `json:"reply_handle,omitempty"`
}

type webhookReq struct {
	Events []webhookEvent `json:"events"`
}

// Probe answers the platform's GET verification ping.
func (h *WebhookHandler) Probe(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Receive handles a webhook batch. Events are processed in order; one
// failing event is logged and skipped so the rest of the batch still
// gets its replies, and the platform always sees a 200 for a
// well-formed request.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var req webhookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	processed := 0
	for _, ev := range req.Events {
		if ev.SourceID == "" {
			continue
		}
		replies, err := h.Machine.Handle(ctx, conversation.Event{
			Type:         ev.Type,
			SourceID:     ev.SourceID,
			Text:         ev.Text,
			PostbackData: ev.PostbackData,
			ReplyHandle:  ev.ReplyHandle,
		})
		if err != nil {
			log.Printf("webhook: handle event from %s failed: %v", ev.SourceID, err)
			continue
		}
		if len(replies) > 0 {
			if err := h.Replier.Send(ctx, ev.ReplyHandle, replies); err != nil {
				log.Printf("webhook: send reply for %s failed: %v", ev.SourceID, err)
				continue
			}
		}
		processed++
	}
	return c.JSON(http.StatusOK, echo.Map{"processed": processed})
}

// LogReplier writes outbound replies to the process log. It stands in
// for a real platform client in development and in tests.
type LogReplier struct{}

func (LogReplier) Send(_ context.Context, handle string, replies []conversation.Reply) error {
	for _, r := range replies {
		log.Printf("reply[%s]: %s (choices=%d cards=%d)", handle, r.Text, len(r.Choices), len(r.Cards))
	}
	return nil
}

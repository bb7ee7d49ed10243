package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magokoro/onigiri-reservation/internal/booking"
	"github.com/magokoro/onigiri-reservation/internal/booking/bookingtest"
	"github.com/magokoro/onigiri-reservation/internal/conversation"
	"github.com/magokoro/onigiri-reservation/internal/model"
)

// recordReplier collects outbound replies per reply handle.
type recordReplier struct {
	sent map[string][]conversation.Reply
}

func (r *recordReplier) Send(_ context.Context, handle string, replies []conversation.Reply) error {
	if r.sent == nil {
		r.sent = make(map[string][]conversation.Reply)
	}
	r.sent[handle] = append(r.sent[handle], replies...)
	return nil
}

func newWebhookFixture(t *testing.T) (*WebhookHandler, *recordReplier) {
	t.Helper()
	engine := booking.NewEngine(
		bookingtest.NewMemLedger(10),
		bookingtest.NewMemMenu(model.MenuItem{ID: 1, Name: "Salt", Price: 120, IsAvailable: true}),
		bookingtest.NewMemUsers(),
		bookingtest.NewMemReservations(),
		bookingtest.NewMemCalendar(),
		booking.Policy{SlotCapacity: 10, MaxQuantity: 5, MaxActivePerUser: 3, LeadTime: 24 * time.Hour, DaysAhead: 3},
	)
	engine.Now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }
	machine := conversation.NewMachine(engine, conversation.StoreInfo{Name: "Magokoro Onigiri"})
	rec := &recordReplier{}
	return NewWebhookHandler(machine, rec), rec
}

func TestWebhookProbe(t *testing.T) {
	h, _ := newWebhookFixture(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Probe(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestWebhookReceive(t *testing.T) {
	t.Run("batch is processed and replied", func(t *testing.T) {
		h, replier := newWebhookFixture(t)
		e := echo.New()
		body := `{"events":[
			{"type":"message","source_id":"u1","text":"menu","reply_handle":"r1"},
			{"type":"message","source_id":"u2","text":"reserve","reply_handle":"r2"},
			{"type":"message","source_id":"","text":"ignored"}
		]}`
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		require.NoError(t, h.Receive(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"processed":2`)

		require.Len(t, replier.sent["r1"], 1)
		assert.Contains(t, replier.sent["r1"][0].Text, "Salt")
		require.Len(t, replier.sent["r2"], 1)
		assert.NotEmpty(t, replier.sent["r2"][0].Choices)
	})

	t.Run("malformed body", func(t *testing.T) {
		h, _ := newWebhookFixture(t)
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		require.NoError(t, h.Receive(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

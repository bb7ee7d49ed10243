// Package conversation implements the chat-facing order flow. The bot
// keeps no per-user session state: each prompt embeds its full context
// in a postback token, so any reply can be handled by any instance and
// stale buttons from old messages still parse into a well-defined step.
package conversation

import (
	"fmt"
	"net/url"
	"strconv"
)

// Flow steps carried in postback tokens. Each names the choice the user
// just made, not the prompt that follows it.
const (
	StepDate    = "date"    // a pickup date was chosen
	StepTime    = "time"    // a time slot was chosen
	StepItem    = "item"    // a menu item was chosen
	StepQty     = "qty"     // a quantity was chosen
	StepConfirm = "confirm" // the summary was accepted
	StepCancel  = "cancel"  // a reservation was picked for cancellation
	StepRestart = "restart" // start the date picker over
)

// Token is the decoded state of one postback. Fields beyond Step are
// filled progressively as the flow advances; a token carries everything
// chosen so far.
type Token struct {
	Step          string
	Date          string
	Time          string
	ItemID        uint64
	Quantity      uint32
	ReservationID uint64
}

// Encode renders the token as a URL-encoded query string, the shape
// messaging platforms pass back verbatim in postback events.
func (t Token) Encode() string {
	v := url.Values{}
	v.Set("step", t.Step)
	if t.Date != "" {
		v.Set("date", t.Date)
	}
	if t.Time != "" {
		v.Set("slot", t.Time)
	}
	if t.ItemID != 0 {
		v.Set("item", strconv.FormatUint(t.ItemID, 10))
	}
	if t.Quantity != 0 {
		v.Set("qty", strconv.FormatUint(uint64(t.Quantity), 10))
	}
	if t.ReservationID != 0 {
		v.Set("rid", strconv.FormatUint(t.ReservationID, 10))
	}
	return v.Encode()
}

// ParseToken decodes a postback payload. Unknown keys are ignored so
// tokens stay forward-compatible; a missing or unknown step, or a
// malformed numeric field, is an error and the caller restarts the
// flow.
func ParseToken(data string) (Token, error) {
	v, err := url.ParseQuery(data)
	if err != nil {
		return Token{}, fmt.Errorf("malformed postback data: %w", err)
	}
	t := Token{
		Step: v.Get("step"),
		Date: v.Get("date"),
		Time: v.Get("slot"),
	}
	switch t.Step {
	case StepDate, StepTime, StepItem, StepQty, StepConfirm, StepCancel, StepRestart:
	default:
		return Token{}, fmt.Errorf("unknown step %q", t.Step)
	}
	if s := v.Get("item"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Token{}, fmt.Errorf("bad item id %q", s)
		}
		t.ItemID = id
	}
	if s := v.Get("qty"); s != "" {
		q, err := strconv.ParseUint(s, 10, 32)
		if err != nil || q == 0 {
			return Token{}, fmt.Errorf("bad quantity %q", s)
		}
		t.Quantity = uint32(q)
	}
	if s := v.Get("rid"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Token{}, fmt.Errorf("bad reservation id %q", s)
		}
		t.ReservationID = id
	}
	return t, nil
}

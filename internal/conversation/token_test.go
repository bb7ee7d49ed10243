package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	cases := []Token{
		{Step: StepRestart},
		{Step: StepDate, Date: "2024-06-11"},
		{Step: StepTime, Date: "2024-06-11", Time: "11:30"},
		{Step: StepItem, Date: "2024-06-11", Time: "11:30", ItemID: 7},
		{Step: StepQty, Date: "2024-06-11", Time: "11:30", ItemID: 7, Quantity: 3},
		{Step: StepConfirm, Date: "2024-06-11", Time: "11:30", ItemID: 7, Quantity: 3},
		{Step: StepCancel, ReservationID: 42},
	}
	for _, want := range cases {
		got, err := ParseToken(want.Encode())
		require.NoError(t, err, "step %s", want.Step)
		assert.Equal(t, want, got)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, data := range []string{
		"",
		"step=teleport",
		"date=2024-06-11",                 // no step
		"step=item&item=abc",              // non-numeric item
		"step=qty&qty=0",                  // zero quantity
		"step=qty&qty=-1",                 // negative quantity
		"step=cancel&rid=notanumber",      // bad reservation id
		"step=confirm&qty=99999999999999", // overflows uint32
		"%zz",                             // not even a query string
	} {
		_, err := ParseToken(data)
		assert.Error(t, err, "data %q", data)
	}
}

func TestParseTokenIgnoresUnknownKeys(t *testing.T) {
	got, err := ParseToken("step=date&date=2024-06-11&utm_source=qr")
	require.NoError(t, err)
	assert.Equal(t, Token{Step: StepDate, Date: "2024-06-11"}, got)
}

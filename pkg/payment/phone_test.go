package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local safaricom", "0712345678", "254712345678"},
		{"local airtel", "0110345678", "254110345678"},
		{"plus prefixed", "+254712345678", "254712345678"},
		{"already canonical", "254712345678", "254712345678"},
		{"spaces and dashes", "0712 345-678", "254712345678"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhoneRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too short", "07123"},
		{"too long", "07123456789012"},
		{"landline prefix", "0202345678"},
		{"foreign country code", "447912345678"},
		{"letters", "07123abc78"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizePhone(tc.in)
			assert.ErrorIs(t, err, ErrInvalidPhone)
		})
	}
}

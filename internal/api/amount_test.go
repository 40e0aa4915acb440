package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidepay/paycore/internal/domain"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "10.50", want: 1050},
		{in: "0.01", want: 1},
		{in: "1", want: 100},
		{in: "250", want: 25000},
		{in: "0.10", want: 10},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-5.00", wantErr: true},
		{in: "1.005", wantErr: true},
		{in: "NaN", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseAmount(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "10.50", formatAmount(1050))
	assert.Equal(t, "0.01", formatAmount(1))
	assert.Equal(t, "0.00", formatAmount(0))
	assert.Equal(t, "250.00", formatAmount(25000))
}

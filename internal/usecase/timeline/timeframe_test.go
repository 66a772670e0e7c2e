package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

func TestResolveTimeframe(t *testing.T) {
	now := domain.MustDate("2024-05-20")
	earliest := domain.MustDate("2021-11-03")

	tests := []struct {
		name     string
		wantFrom string
		wantTo   string
	}{
		{name: "3m", wantFrom: "2024-03-01", wantTo: "2024-05-01"},
		{name: "6m", wantFrom: "2023-12-01", wantTo: "2024-05-01"},
		{name: "1y", wantFrom: "2023-06-01", wantTo: "2024-05-01"},
		{name: "2y", wantFrom: "2022-06-01", wantTo: "2024-05-01"},
		{name: "5y", wantFrom: "2019-06-01", wantTo: "2024-05-01"},
		{name: "YTD", wantFrom: "2024-01-01", wantTo: "2024-05-01"},
		{name: "all", wantFrom: "2021-11-01", wantTo: "2024-05-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf, err := ResolveTimeframe(tt.name, earliest, now)
			require.NoError(t, err)
			assert.Equal(t, domain.MustDate(tt.wantFrom), tf.From)
			assert.Equal(t, domain.MustDate(tt.wantTo), tf.To)
		})
	}

	t.Run("all without grants", func(t *testing.T) {
		tf, err := ResolveTimeframe("all", time.Time{}, now)
		require.NoError(t, err)
		assert.Len(t, tf.Months(), 1)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ResolveTimeframe("10y", earliest, now)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("2023-11", "2024-02")
	require.NoError(t, err)
	assert.Len(t, tf.Months(), 4)
	assert.Equal(t, domain.MustDate("2024-02-29"), tf.End())

	for _, tt := range []struct{ from, to string }{
		{"2024-13", "2024-12"},
		{"2024-01", "24-02"},
		{"2024-03", "2024-01"},
	} {
		_, err := ParseTimeframe(tt.from, tt.to)
		assert.ErrorIs(t, err, domain.ErrValidation, "%s..%s", tt.from, tt.to)
	}
}

package racetime

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) Parser {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	return NewParser(loc, time.Date(2025, 11, 23, 15, 0, 0, 0, loc))
}

func TestParseFullDateTime(t *testing.T) {
	p := newTestParser(t)
	want := time.Date(2025, 11, 23, 8, 28, 28, 915*int(time.Millisecond), p.Location()).UnixMilli()

	for _, raw := range []string{
		"2025-11-23 08:28:28.915",
		"2025-11-23T08:28:28.915",
		"  2025-11-23 08:28:28.9154 ",
		"finish 2025-11-23 08:28:28.915",
	} {
		got := p.Parse(raw)
		require.True(t, got.OK, raw)
		assert.Equal(t, want, got.Ms, raw)
		assert.Equal(t, raw, got.Raw)
	}

	got := p.Parse("2025-11-23 08:28:28.9")
	require.True(t, got.OK)
	assert.Equal(t, want-15, got.Ms)
}

func TestParseAnchoredToReferenceDate(t *testing.T) {
	p := newTestParser(t)
	loc := p.Location()

	tests := []struct {
		raw  string
		want time.Time
	}{
		{raw: "07:15:00", want: time.Date(2025, 11, 23, 7, 15, 0, 0, loc)},
		{raw: "7:15:00.5", want: time.Date(2025, 11, 23, 7, 15, 0, 500*int(time.Millisecond), loc)},
		{raw: "7:15", want: time.Date(2025, 11, 23, 7, 15, 0, 0, loc)},
		{raw: "7", want: time.Date(2025, 11, 23, 7, 0, 0, 0, loc)},
		{raw: "07", want: time.Date(2025, 11, 23, 7, 0, 0, 0, loc)},
	}
	for _, tc := range tests {
		got := p.Parse(tc.raw)
		require.True(t, got.OK, tc.raw)
		assert.Equal(t, tc.want.UnixMilli(), got.Ms, tc.raw)
	}
}

func TestParseIsDeterministicForSameReference(t *testing.T) {
	a := newTestParser(t).Parse("08:00:00")
	b := newTestParser(t).Parse("08:00:00")
	assert.Equal(t, a, b)
}

func TestParseFallbackAndFailure(t *testing.T) {
	p := newTestParser(t)

	// 完整日期时间优先于时区后缀
	got := p.Parse("2025-11-23T01:00:00Z")
	require.True(t, got.OK)
	assert.Equal(t, time.Date(2025, 11, 23, 1, 0, 0, 0, p.Location()).UnixMilli(), got.Ms)

	got = p.Parse("2025/11/24")
	require.True(t, got.OK)
	assert.Equal(t, time.Date(2025, 11, 24, 0, 0, 0, 0, p.Location()).UnixMilli(), got.Ms)

	got = p.Parse("2025-11-23")
	require.True(t, got.OK)
	assert.Equal(t, time.Date(2025, 11, 23, 0, 0, 0, 0, p.Location()).UnixMilli(), got.Ms)

	for _, raw := range []string{"", "   ", "abc", "123", "DNS"} {
		got := p.Parse(raw)
		assert.False(t, got.OK, raw)
		assert.Equal(t, raw, got.Raw)
	}
}

func TestOnDate(t *testing.T) {
	loc := time.UTC
	finish := time.Date(2025, 11, 23, 8, 28, 28, 0, loc)

	got, ok := OnDate("07:15:00", finish, loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 23, 7, 15, 0, 0, loc).UnixMilli(), got.Ms)

	got, ok = OnDate("6:30", finish, loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 23, 6, 30, 0, 0, loc).UnixMilli(), got.Ms)

	_, ok = OnDate("7", finish, loc)
	assert.False(t, ok)
}

func TestDateHelpers(t *testing.T) {
	assert.True(t, HasDate("2025-11-23 07:00"))
	assert.False(t, HasDate("07:00:00"))

	d, ok := FindDate("start 2025-11-23 07:00")
	require.True(t, ok)
	assert.Equal(t, "2025-11-23", d)

	_, ok = ParseDate("2025-11-23", time.UTC)
	assert.True(t, ok)
	_, ok = ParseDate("23/11/2025", time.UTC)
	assert.False(t, ok)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "01:28:28", FormatDuration(5308915))
	assert.Equal(t, "01:13:28", FormatDuration(4408915))
	assert.Equal(t, "00:00:00", FormatDuration(999))
	assert.Equal(t, "-", FormatDuration(-1))
	assert.Equal(t, "27:46:40", FormatDuration(100000000))

	assert.Equal(t, "00:00:00", FormatCountdown(-5000))
	assert.Equal(t, "03:00:00", FormatCountdown(10800000))

	assert.Equal(t, "08:28:28.915", ExtractTimeOfDay("2025-11-23 08:28:28.915"))
	assert.Equal(t, "08:28:28.900", ExtractTimeOfDay("2025-11-23 08:28:28.9"))
	assert.Equal(t, "08:28:28.000", ExtractTimeOfDay("08:28:28"))
	assert.Equal(t, "7:15", ExtractTimeOfDay("7:15"))
	assert.Equal(t, "-", ExtractTimeOfDay(""))
}

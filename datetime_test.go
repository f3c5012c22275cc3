package wmi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIMDatetime(t *testing.T) {
	got, err := ParseCIMDatetime("20190113200517.500000-180")
	require.NoError(t, err)

	want := time.Date(2019, 1, 13, 20, 5, 17, 500000*1000, time.FixedZone("", -3*60*60))
	assert.True(t, got.Equal(want), "got %s, want %s", got, want)
	_, offset := got.Zone()
	assert.Equal(t, -3*60*60, offset)

	got, err = ParseCIMDatetime("20190113200517.500000+060")
	require.NoError(t, err)
	_, offset = got.Zone()
	assert.Equal(t, 60*60, offset)
}

func TestParseCIMDatetimeErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"20190113200517.500000-18",    // Offset too short.
		"20190113200517.500000--180",  // Length off by one.
		"20190113200517.500000*180",   // Bad sign.
		"201901132005AB.500000-180",   // Garbage in the seconds.
		"00000001000000.000000:000",   // An interval, not a timestamp.
	} {
		_, err := ParseCIMDatetime(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestCIMDatetimeRoundtrip(t *testing.T) {
	orig := time.Date(2023, 6, 15, 9, 30, 0, 123456*1000, time.FixedZone("", 2*60*60))
	s := FormatCIMDatetime(orig)
	assert.Equal(t, "20230615093000.123456+120", s)

	back, err := ParseCIMDatetime(s)
	require.NoError(t, err)
	assert.True(t, back.Equal(orig))
}

func TestParseCIMInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"00000000000000.000000:000", 0},
		{"00000001000000.000000:000", 24 * time.Hour},
		{"00000000010203.000004:000", time.Hour + 2*time.Minute + 3*time.Second + 4*time.Microsecond},
		{"00001000123456.654321:000", 1000*24*time.Hour + 12*time.Hour + 34*time.Minute + 56*time.Second + 654321*time.Microsecond},
	}
	for _, c := range cases {
		got, err := ParseCIMInterval(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseCIMIntervalErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"20190113200517.500000-180", // A timestamp, not an interval.
		"000000000102AB.000004:000",
		"00000000010203.000004:001", // Bad fixed suffix.
	} {
		_, err := ParseCIMInterval(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestCIMIntervalRoundtrip(t *testing.T) {
	d := 3*24*time.Hour + 7*time.Hour + 59*time.Minute + 1*time.Second + 42*time.Microsecond
	s := FormatCIMInterval(d)
	assert.Equal(t, "00000003075901.000042:000", s)

	back, err := ParseCIMInterval(s)
	require.NoError(t, err)
	assert.Equal(t, d, back)

	assert.Equal(t, "00000000000000.000000:000", FormatCIMInterval(-time.Second))
}

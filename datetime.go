package wmi

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// CIM_DATETIME is the string format WMI uses for absolute timestamps:
//
//	yyyymmddHHMMSS.mmmmmmsUUU
//
// where "mmmmmm" is the microsecond part and "sUUU" is a signed offset from
// UTC in minutes. Intervals (CIM durations) use
//
//	ddddddddHHMMSS.mmmmmm:000
//
// instead.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/cim-datetime

const (
	cimDatetimeLen = 25
	cimSignPos     = 21
)

// ParseCIMDatetime parses a CIM_DATETIME string into a time.Time carrying a
// fixed zone with the encoded minute offset.
func ParseCIMDatetime(s string) (time.Time, error) {
	if len(s) != cimDatetimeLen {
		return time.Time{}, errors.Errorf("wmi: expected a %d char CIM datetime, got %q", cimDatetimeLen, s)
	}

	sign := s[cimSignPos]
	if sign != '+' && sign != '-' {
		return time.Time{}, errors.Errorf("wmi: CIM datetime %q has no UTC offset sign", s)
	}

	minOffset, err := strconv.Atoi(s[cimSignPos+1:])
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "wmi: bad UTC offset in %q", s)
	}

	// Go has no layout verb for minute-granular offsets, so rewrite the
	// trailing "sUUU" into an ISO "sHHMM" offset first.
	isoOffset := fmt.Sprintf("%02d%02d", minOffset/60, minOffset%60)
	return time.Parse("20060102150405.000000-0700", s[:cimSignPos+1]+isoOffset)
}

// FormatCIMDatetime is the inverse of ParseCIMDatetime.
func FormatCIMDatetime(t time.Time) string {
	_, secOffset := t.Zone()
	sign := '+'
	if secOffset < 0 {
		sign = '-'
		secOffset = -secOffset
	}
	return t.Format("20060102150405.000000") + fmt.Sprintf("%c%03d", sign, secOffset/60)
}

// ParseCIMInterval parses a CIM interval ("ddddddddHHMMSS.mmmmmm:000") into a
// time.Duration. The trailing ":000" is a fixed marker distinguishing
// intervals from timestamps.
func ParseCIMInterval(s string) (time.Duration, error) {
	if len(s) != cimDatetimeLen || s[21:] != ":000" || s[14] != '.' {
		return 0, errors.Errorf("wmi: %q is not a CIM interval", s)
	}

	days, err := strconv.ParseUint(s[0:8], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "wmi: bad interval days in %q", s)
	}
	hours, err := strconv.ParseUint(s[8:10], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "wmi: bad interval hours in %q", s)
	}
	mins, err := strconv.ParseUint(s[10:12], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "wmi: bad interval minutes in %q", s)
	}
	secs, err := strconv.ParseUint(s[12:14], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "wmi: bad interval seconds in %q", s)
	}
	micros, err := strconv.ParseUint(s[15:21], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "wmi: bad interval microseconds in %q", s)
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second +
		time.Duration(micros)*time.Microsecond
	return d, nil
}

// FormatCIMInterval is the inverse of ParseCIMInterval. Negative durations
// are not representable and are clamped to zero.
func FormatCIMInterval(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	secs := d / time.Second
	d -= secs * time.Second
	micros := d / time.Microsecond

	return fmt.Sprintf("%08d%02d%02d%02d.%06d:000", days, hours, mins, secs, micros)
}

package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSpec is a parsed 5-field cron expression (minute hour day-of-month
// month day-of-week). Each field is a bitmask over the allowed values.
type CronSpec struct {
	minute uint64
	hour   uint32
	dom    uint32
	month  uint16
	dow    uint8
}

type fieldRange struct {
	name string
	min  int
	max  int
}

var fieldRanges = [5]fieldRange{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

func ParseCronSpec(expr string) (CronSpec, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return CronSpec{}, fmt.Errorf("expected 5 fields")
	}

	var bits [5]uint64
	for i, fr := range fieldRanges {
		b, err := parseField(parts[i], fr.min, fr.max)
		if err != nil {
			return CronSpec{}, fmt.Errorf("%s: %w", fr.name, err)
		}
		bits[i] = b
	}

	return CronSpec{
		minute: bits[0],
		hour:   uint32(bits[1]),
		dom:    uint32(bits[2]),
		month:  uint16(bits[3]),
		dow:    uint8(bits[4]),
	}, nil
}

func (s CronSpec) Matches(t time.Time) bool {
	return s.minute&(1<<uint(t.Minute())) != 0 &&
		s.hour&(1<<uint(t.Hour())) != 0 &&
		s.dom&(1<<uint(t.Day())) != 0 &&
		s.month&(1<<uint(t.Month())) != 0 &&
		s.dow&(1<<uint(t.Weekday())) != 0
}

func parseField(token string, min, max int) (uint64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("empty field")
	}
	if token == "*" {
		return rangeBits(min, max, 1), nil
	}

	var bits uint64
	for _, part := range strings.Split(token, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, fmt.Errorf("empty list element")
		}

		if strings.HasPrefix(part, "*/") {
			step, err := strconv.Atoi(strings.TrimPrefix(part, "*/"))
			if err != nil || step <= 0 {
				return 0, fmt.Errorf("invalid step %q", part)
			}
			bits |= rangeBits(min, max, step)
			continue
		}

		if strings.Contains(part, "-") {
			ends := strings.SplitN(part, "-", 2)
			start, errA := strconv.Atoi(strings.TrimSpace(ends[0]))
			end, errB := strconv.Atoi(strings.TrimSpace(ends[1]))
			if errA != nil || errB != nil {
				return 0, fmt.Errorf("invalid range %q", part)
			}
			if start > end || start < min || end > max {
				return 0, fmt.Errorf("range out of bounds %q", part)
			}
			bits |= rangeBits(start, end, 1)
			continue
		}

		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q", part)
		}
		if v < min || v > max {
			return 0, fmt.Errorf("value out of bounds %d", v)
		}
		bits |= 1 << uint(v)
	}

	if bits == 0 {
		return 0, fmt.Errorf("no values")
	}
	return bits, nil
}

func rangeBits(start, end, step int) uint64 {
	var bits uint64
	for v := start; v <= end; v += step {
		bits |= 1 << uint(v)
	}
	return bits
}

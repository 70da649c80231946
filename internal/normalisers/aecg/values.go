package aecg

import (
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// ParseHL7Time parses an HL7 TS value: YYYY[MM[DD[HH[MM[SS[.fff]]]]]] with
// an optional +HHMM or -HHMM offset. Omitted components take their minimum.
// Values without an offset are returned in UTC.
func ParseHL7Time(s string) (time.Time, error) {
	raw := s
	s = strings.TrimSpace(s)

	loc := time.UTC
	if i := strings.IndexAny(s, "+-"); i >= 0 {
		tz := s[i:]
		s = s[:i]
		if len(tz) != 5 || !allDigits(tz[1:]) {
			return time.Time{}, domain.NewValueError("HL7 timestamp", raw)
		}
		hh, _ := strconv.Atoi(tz[1:3])
		mm, _ := strconv.Atoi(tz[3:5])
		offset := hh*3600 + mm*60
		if tz[0] == '-' {
			offset = -offset
		}
		loc = time.FixedZone(tz, offset)
	}

	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		frac = s[i+1:]
		s = s[:i]
		if frac == "" || !allDigits(frac) || len(s) != 14 {
			return time.Time{}, domain.NewValueError("HL7 timestamp", raw)
		}
	}

	// 4, 6, 8, 10, 12 or 14 digits.
	if len(s) < 4 || len(s) > 14 || len(s)%2 != 0 || !allDigits(s) {
		return time.Time{}, domain.NewValueError("HL7 timestamp", raw)
	}

	field := func(from, to, def int) int {
		if len(s) < to {
			return def
		}
		v, _ := strconv.Atoi(s[from:to])
		return v
	}
	year := field(0, 4, 0)
	month := field(4, 6, 1)
	day := field(6, 8, 1)
	hour := field(8, 10, 0)
	minute := field(10, 12, 0)
	sec := field(12, 14, 0)

	nsec := 0
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		nsec, _ = strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, domain.NewValueError("HL7 timestamp", raw)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc)
	// time.Date normalises out of range days, so 20230231 would become March.
	if t.Day() != day {
		return time.Time{}, domain.NewValueError("HL7 timestamp", raw)
	}
	return t, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseDigits parses whitespace separated integer samples.
// NA, NaN and nan mark missing samples, which are returned as zero with
// their flag set.
func ParseDigits(s string) ([]int, []bool, error) {
	fields := strings.Fields(s)
	digits := make([]int, len(fields))
	missing := make([]bool, len(fields))
	for i, f := range fields {
		switch f {
		case "NA", "NaN", "nan":
			missing[i] = true
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, nil, domain.NewValueError("integer", f)
		}
		digits[i] = v
	}
	return digits, missing, nil
}

// ParseFloat parses a decimal value.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, domain.NewValueError("number", s)
	}
	return v, nil
}

// ParseQuantity parses a PQ value. An absent value returns def with
// ok=false so the caller can report the missing attribute.
func ParseQuantity(value, unit string, def domain.Quantity) (q domain.Quantity, ok bool, err error) {
	if strings.TrimSpace(value) == "" {
		return def, false, nil
	}
	v, err := ParseFloat(value)
	if err != nil {
		return def, false, err
	}
	if unit == "" {
		unit = def.Unit
	}
	return domain.Quantity{Value: v, Unit: unit}, true, nil
}

// RelativeMS converts a relative time value to ms.
func RelativeMS(value, unit string) (float64, error) {
	v, err := ParseFloat(value)
	if err != nil {
		return 0, err
	}
	f, err := domain.TimeFactorMS(unit)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

// DiffMS returns b-a in ms.
func DiffMS(a, b time.Time) float64 {
	return float64(b.Sub(a)) / float64(time.Millisecond)
}

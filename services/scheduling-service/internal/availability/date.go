package availability

import "errors"

var (
	ErrMissingDate = errors.New("missing date")
	ErrInvalidDate = errors.New("invalid date")
)

// Date is a timezone-naive calendar day. Weekday math is done on the
// triple directly so a server's local timezone can never shift the day.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ParseDate accepts strict YYYY-MM-DD and validates the calendar day,
// including leap years.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, ErrMissingDate
	}
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, ErrInvalidDate
	}
	year, ok := atoi(s[0:4])
	if !ok {
		return Date{}, ErrInvalidDate
	}
	month, ok := atoi(s[5:7])
	if !ok || month < 1 || month > 12 {
		return Date{}, ErrInvalidDate
	}
	day, ok := atoi(s[8:10])
	if !ok || day < 1 || day > daysInMonth(year, month) {
		return Date{}, ErrInvalidDate
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// Weekday returns 0-6 with Sunday = 0, via Sakamoto's algorithm.
func (d Date) Weekday() int {
	offsets := [12]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}
	y := d.Year
	if d.Month < 3 {
		y--
	}
	return (y + y/4 - y/100 + y/400 + offsets[d.Month-1] + d.Day) % 7
}

func atoi(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 29
	}
	return 28
}

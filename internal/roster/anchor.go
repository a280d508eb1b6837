package roster

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"ewroster/internal/model"
)

// ErrNoAnchor means the roster period start could not be determined.
// Nothing after it can be dated, so it ends the run.
var ErrNoAnchor = errors.New("roster: period start date not found")

var periodPattern = regexp.MustCompile(`Period:\s+([0-9]{2})([A-Za-z]{3})([0-9]{2})`)

var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// ResolveAnchor finds "Period: DDMonYY" in header text and returns that date.
// Years are taken as 20YY.
func ResolveAnchor(header string) (model.Date, error) {
	m := periodPattern.FindStringSubmatch(header)
	if m == nil {
		return model.Date{}, ErrNoAnchor
	}

	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	year += 2000

	month, ok := monthFromAbbrev(m[2])
	if !ok {
		return model.Date{}, fmt.Errorf("%w: unknown month %q", ErrNoAnchor, m[2])
	}

	d, ok := model.NewDate(year, month, day)
	if !ok {
		return model.Date{}, fmt.Errorf("%w: invalid date %s%s%s", ErrNoAnchor, m[1], m[2], m[3])
	}
	return d, nil
}

// monthFromAbbrev is an exact, case-sensitive match on "Jan".."Dec".
func monthFromAbbrev(s string) (time.Month, bool) {
	for i, a := range monthAbbrevs {
		if a == s {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

package roster

import (
	"errors"
	"fmt"

	"ewroster/internal/model"
)

// ErrInvalidDate is returned when a day marker does not exist in the
// month it falls into, e.g. "Tue31" in a 30-day month.
var ErrInvalidDate = errors.New("roster: invalid calendar date")

// Cursor is the running "current date" of a roster.
type Cursor struct {
	date model.Date
}

func NewCursor(anchor model.Date) *Cursor {
	return &Cursor{date: anchor}
}

func (c *Cursor) Date() model.Date {
	return c.date
}

// AdvanceToDay moves the cursor to day-of-month day. A day lower than the
// current one starts the next month; December rolls into January of the
// following year. On ErrInvalidDate the cursor keeps its previous value.
func (c *Cursor) AdvanceToDay(day int) error {
	year, month := c.date.Year, c.date.Month
	if day < c.date.Day {
		month++
		if month > 12 {
			month = 1
			year++
		}
	}

	next, ok := model.NewDate(year, month, day)
	if !ok {
		return fmt.Errorf("%w: day %d of %04d-%02d", ErrInvalidDate, day, year, month)
	}
	c.date = next
	return nil
}

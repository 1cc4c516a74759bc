package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time or zone, e.g. a birth date.
type Date struct {
	time.Time
}

// NewDate returns the date for y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "yyyy-mm-dd".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want yyyy-mm-dd", s)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

// MarshalJSON renders "yyyy-mm-dd".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "yyyy-mm-dd".
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as text.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads text or time columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	case time.Time:
		*d = Date{time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

// GormDataType makes AutoMigrate create a text column.
func (Date) GormDataType() string { return "text" }

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

var errInvalidDay = errors.New("invalid_day")

// Day is a calendar date sent by clients either as "2006-01-02" or as an RFC3339
// timestamp. Bare dates decode to midnight UTC.
type Day struct {
	time.Time
}

func DayOf(t time.Time) *Day {
	return &Day{Time: t}
}

func ParseDay(raw string) (Day, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(dayLayout, raw); err == nil {
		return Day{Time: parsed}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return Day{Time: parsed}, nil
	}
	return Day{}, errInvalidDay
}

func (d *Day) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

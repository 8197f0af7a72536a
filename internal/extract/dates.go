package extract

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// SiteLocation is the zone booking timestamps are published in.
const SiteLocation = "America/Chicago"

var dobLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
}

var bookingLayouts = []string{
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 3:04 PM",
	"01/02/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseBookingTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range bookingLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised booking timestamp %q", s)
}

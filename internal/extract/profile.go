package extract

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/your-org/jailcrawler/internal/models"
)

// profileLabelCount is the size of the recognised label vocabulary.
const profileLabelCount = 15

type profileBuilder struct {
	profile models.Profile
	loc     *time.Location
	found   int
}

type labelSetter func(b *profileBuilder, value string)

// profileLabels maps a normalised label (trimmed, lowercased, no trailing
// colon) to the field it populates. Labels not listed here are ignored.
var profileLabels = map[string]labelSetter{
	"first": func(b *profileBuilder, v string) { b.profile.FirstName = v },
	"middle": func(b *profileBuilder, v string) { b.profile.MiddleName = optional(v) },
	"last": func(b *profileBuilder, v string) { b.profile.LastName = v },
	"affix": func(b *profileBuilder, v string) { b.profile.Suffix = optional(v) },
	"permanent id": func(b *profileBuilder, v string) { b.profile.PermanentID = optional(v) },
	"sex": func(b *profileBuilder, v string) { b.profile.Sex = optional(v) },
	"date of birth": func(b *profileBuilder, v string) {
		if v == "" {
			return
		}
		dob, err := parseDate(v)
		if err != nil {
			slog.Warn("date of birth not understood", "value", v, "error", err)
			return
		}
		b.profile.DateOfBirth = dob
	},
	"height": func(b *profileBuilder, v string) {
		b.profile.Height = optional(strings.TrimSpace(strings.ReplaceAll(v, `\`, "")))
	},
	"weight": func(b *profileBuilder, v string) { b.profile.Weight = optional(v) },
	"race": func(b *profileBuilder, v string) { b.profile.Race = optional(v) },
	"eye color": func(b *profileBuilder, v string) { b.profile.EyeColor = optional(v) },
	"alias(es)": func(b *profileBuilder, v string) { b.profile.Aliases = ParseAliases(v) },
	"committing agency": func(b *profileBuilder, v string) { b.profile.ArrestingAgency = optional(v) },
	"booking date time": func(b *profileBuilder, v string) {
		if v == "" {
			return
		}
		booked, err := parseBookingTime(v, b.loc)
		if err != nil {
			slog.Warn("booking timestamp not understood", "value", v, "error", err)
			return
		}
		b.profile.BookedAt = booked
	},
	"booking number": func(b *profileBuilder, v string) { b.profile.BookingNumber = optional(v) },
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(strings.TrimSuffix(s, ":"))
}

// readLabels walks every term/definition pair of the profile section. Terms
// and definitions are paired by position.
func (b *profileBuilder) readLabels(doc *goquery.Document) {
	doc.Find(".table-display").Each(func(_ int, table *goquery.Selection) {
		terms := table.Find("dt")
		defs := table.Find("dd")
		n := min(terms.Length(), defs.Length())
		for i := 0; i < n; i++ {
			label := normalizeLabel(terms.Eq(i).Text())
			if label == "" {
				slog.Warn("profile term without text, skipping", "index", i)
				continue
			}
			set, ok := profileLabels[label]
			if !ok {
				continue
			}
			set(b, strings.TrimSpace(defs.Eq(i).Text()))
			b.found++
		}
	})

	if b.found != profileLabelCount {
		slog.Warn("profile labels found differ from expected",
			"found", b.found, "expected", profileLabelCount)
	}
}

// ParseAliases splits a comma separated alias list, trimming each name and
// dropping empty ones. It returns nil when no name survives.
func ParseAliases(raw string) []string {
	var aliases []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			aliases = append(aliases, part)
		}
	}
	return aliases
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

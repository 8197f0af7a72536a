package models

import (
	"fmt"
	"strings"

	"github.com/your-org/jailcrawler/internal/money"
)

// TotalDescription is "unbondable" when any bond forbids release, otherwise
// the formatted sum of all bonds.
func (b BondInfo) TotalDescription() string {
	if b.Unbondable() {
		return "unbondable"
	}
	return money.FormatCents(b.TotalCents())
}

// Synopsis renders the natural-language story handed to the embedding service.
func (r *Record) Synopsis() string {
	p := &r.Profile

	noun := "person"
	if p.Sex != nil {
		if strings.EqualFold(*p.Sex, "male") {
			noun = "man"
		} else {
			noun = "woman"
		}
	}

	aliases := "No known aliases."
	if len(p.Aliases) > 0 {
		aliases = fmt.Sprintf("%s is known to the following aliases: %s.", p.FullName(), strings.Join(p.Aliases, ", "))
	}

	subject := strings.TrimSpace(orDefault(p.Race, "") + " " + noun)
	intro := fmt.Sprintf("A %s named %s was arrested on %s by %s.",
		subject, p.FullName(),
		p.BookedAt.Format("January 2, 2006 at 3:04 PM"),
		orDefault(p.ArrestingAgency, "an unknown agency"))

	descriptions := make([]string, 0, len(r.Charges.Charges))
	for _, c := range r.Charges.Charges {
		descriptions = append(descriptions, c.Description)
	}
	charges := fmt.Sprintf("Charges include %s. Bond is set at %s.",
		strings.Join(descriptions, ", "), r.Bonds.TotalDescription())

	physical := fmt.Sprintf("%s is described as %s tall, weighing %s, and having %s. %s",
		p.FirstName,
		orDefault(p.Height, "unknown height"),
		orDefault(p.Weight, "unknown weight"),
		orDefault(p.EyeColor, "unknown eye color"),
		aliases)

	ids := fmt.Sprintf("The inmate's booking number is %s, and their permanent ID is %s.",
		orDefault(p.BookingNumber, "unknown"), orDefault(p.PermanentID, "unknown"))

	return strings.Join([]string{intro, charges, physical, ids}, " ")
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddingDimensions is the length of the vector stored in inmate.embedding.
const EmbeddingDimensions = 1536

// Record is one harvested roster entry: the person, their bonds and their charges.
type Record struct {
	SourceURL string
	Profile   Profile
	Bonds     BondInfo
	Charges   ChargeInfo
}

// Profile is a snapshot of a booked person as published on the detail page.
// Optional attributes are nil when the page left them blank.
type Profile struct {
	FirstName       string
	MiddleName      *string
	LastName        string
	Suffix          *string
	PermanentID     *string
	Sex             *string
	DateOfBirth     time.Time
	ArrestingAgency *string
	BookedAt        time.Time
	BookingNumber   *string
	Height          *string
	Weight          *string
	Race            *string
	EyeColor        *string
	Aliases         []string
	Image           []byte
	Embedding       []float32
	NaturalKey      *string
}

// Valid reports whether all four core attributes are present.
func (p *Profile) Valid() bool {
	return p.FirstName != "" && p.LastName != "" && !p.DateOfBirth.IsZero() && !p.BookedAt.IsZero()
}

// HasImage reports whether the booking photo was fetched.
func (p *Profile) HasImage() bool {
	return len(p.Image) > 0
}

// FullName renders "first [middle] last[, suffix]".
func (p *Profile) FullName() string {
	var b strings.Builder
	b.WriteString(p.FirstName)
	if p.MiddleName != nil {
		b.WriteString(" ")
		b.WriteString(*p.MiddleName)
	}
	b.WriteString(" ")
	b.WriteString(p.LastName)
	if p.Suffix != nil {
		b.WriteString(", ")
		b.WriteString(*p.Suffix)
	}
	return b.String()
}

// CoreAttributes is a log-friendly rendering of the natural identity.
func (p *Profile) CoreAttributes() string {
	return fmt.Sprintf("%s %s dob=[%s] booking date=[%s]",
		p.FirstName, p.LastName, formatDate(p.DateOfBirth), formatTimestamp(p.BookedAt))
}

// Bond is one row of the bond table. Amounts are in cents.
type Bond struct {
	Type        string
	AmountCents uint64
}

// BondInfo groups all bonds set for one booking.
type BondInfo struct {
	Bonds []Bond
}

// Unbondable reports whether any bond is of type "unbondable".
func (b BondInfo) Unbondable() bool {
	for _, bond := range b.Bonds {
		if strings.EqualFold(strings.TrimSpace(bond.Type), "unbondable") {
			return true
		}
	}
	return false
}

// TotalCents sums all bond amounts.
func (b BondInfo) TotalCents() uint64 {
	var total uint64
	for _, bond := range b.Bonds {
		total += bond.AmountCents
	}
	return total
}

// ChargeGrade is the severity of a charge.
type ChargeGrade string

const (
	GradeFelony      ChargeGrade = "Felony"
	GradeMisdemeanor ChargeGrade = "Misdemeanor"
)

// ParseChargeGrade maps free text onto a grade. The second return value is
// false when the text was not recognised and the Misdemeanor default was used.
func ParseChargeGrade(s string) (ChargeGrade, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "felony":
		return GradeFelony, true
	case "misdemeanor":
		return GradeMisdemeanor, true
	default:
		return GradeMisdemeanor, false
	}
}

func (g ChargeGrade) String() string { return string(g) }

// Charge is one row of the charges table.
type Charge struct {
	Description string
	Grade       ChargeGrade
	OffenseDate string
}

// ChargeInfo groups all charges for one booking.
type ChargeInfo struct {
	Charges []Charge
}

// InmateSyncState is the slice of a persisted inmate row the incremental filter needs.
type InmateSyncState struct {
	ID         int64
	NaturalKey *string
	ImageURL   *string
}

// HasImage reports whether the row already carries a stored image reference.
func (s InmateSyncState) HasImage() bool {
	return s.ImageURL != nil && *s.ImageURL != ""
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

package extract

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/money"
)

// Bond table: | Date Set | Type | Amount | Status | Posted By | Date Posted |
const (
	bondTypeCell   = 1
	bondAmountCell = 2
)

// Charge table: | # | Description | Grade | Offense Date | ...
const (
	chargeDescriptionCell = 1
	chargeGradeCell       = 2
	chargeDateCell        = 3
)

func readBonds(doc *goquery.Document) models.BondInfo {
	var info models.BondInfo
	doc.Find(".inmates-bond-table tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= bondTypeCell {
			slog.Warn("bond row without type cell, skipping", "row", i)
			return
		}
		if cells.Length() <= bondAmountCell {
			slog.Warn("bond row without amount cell, skipping", "row", i)
			return
		}
		info.Bonds = append(info.Bonds, models.Bond{
			Type:        strings.TrimSpace(cells.Eq(bondTypeCell).Text()),
			AmountCents: money.ParseCents(cells.Eq(bondAmountCell).Text()),
		})
	})
	return info
}

func readCharges(doc *goquery.Document, now func() time.Time) models.ChargeInfo {
	var info models.ChargeInfo
	doc.Find(".inmates-charges-table tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")

		var charge models.Charge
		if cells.Length() > chargeDescriptionCell {
			charge.Description = strings.TrimSpace(cells.Eq(chargeDescriptionCell).Text())
		} else {
			slog.Warn("charge row without description, accepting blank", "row", i)
		}

		charge.Grade = models.GradeMisdemeanor
		if cells.Length() > chargeGradeCell {
			raw := strings.TrimSpace(cells.Eq(chargeGradeCell).Text())
			grade, ok := models.ParseChargeGrade(raw)
			if !ok {
				slog.Warn("unknown charge grade, defaulting to misdemeanor", "grade", raw)
			}
			charge.Grade = grade
		} else {
			slog.Warn("charge row without grade, defaulting to misdemeanor", "row", i)
		}

		if cells.Length() > chargeDateCell {
			charge.OffenseDate = strings.TrimSpace(cells.Eq(chargeDateCell).Text())
		} else {
			charge.OffenseDate = now().UTC().Format(time.RFC3339)
			slog.Warn("charge row without offense date, assuming today", "row", i)
		}

		info.Charges = append(info.Charges, charge)
	})
	return info
}

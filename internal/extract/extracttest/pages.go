// Package extracttest renders roster pages shaped like the live site, for use
// in tests.
package extracttest

import (
	"fmt"
	"html"
	"strings"
)

// Label is one term/definition pair of the profile section.
type Label struct {
	Term  string
	Value string
}

// Detail describes a detail page.
type Detail struct {
	Labels   []Label
	PhotoSrc string
	Bonds    [][]string
	Charges  [][]string
}

// NewDetail returns a complete detail page for the given person with one
// bond and one charge.
func NewDetail(first, last string) Detail {
	return Detail{
		Labels: []Label{
			{"First:", first},
			{"Middle:", ""},
			{"Last:", last},
			{"Affix:", ""},
			{"Permanent ID:", "P" + strings.ToUpper(last)},
			{"Sex:", "Male"},
			{"Date of Birth:", "03/14/1990"},
			{"Height:", `5\'10"`},
			{"Weight:", "180"},
			{"Race:", "White"},
			{"Eye Color:", "Brown"},
			{"Alias(es):", ""},
			{"Committing Agency:", "Davenport PD"},
			{"Booking Date Time:", "06/01/2024 13:45"},
			{"Booking Number:", "B-" + strings.ToUpper(first)},
		},
		Bonds: [][]string{
			{"06/01/2024", "Cash", "$1,500.00", "Open", "", ""},
		},
		Charges: [][]string{
			{"1", "OWI 1st offense", "Misdemeanor", "05/31/2024"},
		},
	}
}

// Set replaces the value of an existing term or appends a new pair.
func (d Detail) Set(term, value string) Detail {
	labels := make([]Label, 0, len(d.Labels)+1)
	replaced := false
	for _, l := range d.Labels {
		if l.Term == term {
			l.Value = value
			replaced = true
		}
		labels = append(labels, l)
	}
	if !replaced {
		labels = append(labels, Label{term, value})
	}
	d.Labels = labels
	return d
}

// Without drops a term entirely.
func (d Detail) Without(term string) Detail {
	labels := make([]Label, 0, len(d.Labels))
	for _, l := range d.Labels {
		if l.Term != term {
			labels = append(labels, l)
		}
	}
	d.Labels = labels
	return d
}

func (d Detail) HTML() []byte {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	if d.PhotoSrc != "" {
		fmt.Fprintf(&b, `<div class="inmates"><img src="%s" alt="booking photo"></div>`+"\n", html.EscapeString(d.PhotoSrc))
	}
	b.WriteString(`<dl class="table-display">` + "\n")
	for _, l := range d.Labels {
		fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>\n", html.EscapeString(l.Term), html.EscapeString(l.Value))
	}
	b.WriteString("</dl>\n")
	writeTable(&b, "inmates-bond-table", d.Bonds)
	writeTable(&b, "inmates-charges-table", d.Charges)
	b.WriteString("</body></html>\n")
	return []byte(b.String())
}

func writeTable(b *strings.Builder, class string, rows [][]string) {
	fmt.Fprintf(b, `<table class="%s"><thead><tr><th>header</th></tr></thead><tbody>`+"\n", class)
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(b, "<td>%s</td>", html.EscapeString(cell))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody></table>\n")
}

// Listing renders a listing page linking hrefs in the given (newest first) order.
func Listing(hrefs ...string) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><table class="inmates-table">` + "\n")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<tr><td><a href="%s">%s</a></td><td>booked</td></tr>`+"\n", html.EscapeString(href), html.EscapeString(href))
	}
	b.WriteString("</table></body></html>\n")
	return []byte(b.String())
}

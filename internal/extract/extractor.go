// Package extract turns roster HTML into domain records.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/your-org/jailcrawler/internal/models"
)

// ImageFetcher retrieves booking photo bytes.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

type Extractor struct {
	images ImageFetcher
	loc    *time.Location
	now    func() time.Time
}

// NewExtractor builds an extractor. images may be nil, in which case photos
// are never fetched.
func NewExtractor(images ImageFetcher) (*Extractor, error) {
	loc, err := time.LoadLocation(SiteLocation)
	if err != nil {
		return nil, fmt.Errorf("load site location: %w", err)
	}
	return &Extractor{images: images, loc: loc, now: time.Now}, nil
}

// ListingKeys returns the natural keys linked from a listing document, oldest
// first. The site lists newest first.
func ListingKeys(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse listing: %v", models.ErrParse, err)
	}

	links := doc.Find(".inmates-table tr td a[href]")
	keys := make([]string, 0, links.Length())
	for i := links.Length() - 1; i >= 0; i-- {
		href, ok := links.Eq(i).Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			slog.Warn("listing link without href", "index", i)
			continue
		}
		keys = append(keys, strings.TrimSpace(href))
	}
	return keys, nil
}

// Extract builds a Record from one detail document. The booking photo fetch is
// started before the rest of the page is parsed and joined when the profile is
// finalised; a failed photo fetch leaves the image empty.
func (e *Extractor) Extract(ctx context.Context, key, sourceURL string, body []byte) (*models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse detail %s: %v", models.ErrParse, key, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	photo := e.startImageFetch(ctx, doc, sourceURL)

	b := &profileBuilder{loc: e.loc}
	b.profile.NaturalKey = optional(key)
	b.readLabels(doc)

	if photo != nil {
		b.profile.Image = photo.wait()
	}

	if !b.profile.Valid() {
		slog.Error("profile is missing core attributes",
			"key", key, "core", b.profile.CoreAttributes())
		return nil, fmt.Errorf("%w: %s: missing core attributes", models.ErrParse, key)
	}

	bonds := readBonds(doc)
	if len(bonds.Bonds) == 0 {
		slog.Error("no bonds found", "key", key)
	}

	charges := readCharges(doc, e.now)
	if len(charges.Charges) == 0 {
		slog.Error("no charges found", "key", key)
		return nil, fmt.Errorf("%w: %s: no charges", models.ErrParse, key)
	}

	return &models.Record{
		SourceURL: sourceURL,
		Profile:   b.profile,
		Bonds:     bonds,
		Charges:   charges,
	}, nil
}

type pendingImage struct {
	done chan struct{}
	data []byte
}

func (p *pendingImage) wait() []byte {
	<-p.done
	return p.data
}

func (e *Extractor) startImageFetch(ctx context.Context, doc *goquery.Document, sourceURL string) *pendingImage {
	if e.images == nil {
		return nil
	}
	src, ok := doc.Find(".inmates img").First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return nil
	}
	imgURL, err := resolveImageURL(sourceURL, strings.TrimSpace(src))
	if err != nil {
		slog.Warn("booking photo reference not understood", "src", src, "error", err)
		return nil
	}

	p := &pendingImage{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		data, err := e.images.FetchImage(ctx, imgURL)
		if err != nil {
			slog.Warn("booking photo fetch failed, continuing without it", "url", imgURL, "error", err)
			return
		}
		p.data = data
	}()
	return p
}

func resolveImageURL(base, src string) (string, error) {
	if strings.HasPrefix(src, "//") {
		return "https:" + src, nil
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return src, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}

package etimad

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	cardSelector        = ".tender-card"
	cardAnchorSelectors = "h3 a, h2 a, a.tender-title"
)

// Card is one tender result card as rendered in the search results container.
type Card struct {
	Title string
	Link  string
}

// ParseCards extracts tender cards from the rendered results HTML. Cards
// missing a title or link are skipped. Relative hrefs are resolved against
// base so every returned link is absolute. Document order is preserved.
func ParseCards(html string, base *url.URL) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}

	var cards []Card
	doc.Find(cardSelector).Each(func(_ int, sel *goquery.Selection) {
		anchor := sel.Find(cardAnchorSelectors).First()
		if anchor.Length() == 0 {
			return
		}
		title := strings.TrimSpace(anchor.Text())
		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || title == "" || href == "" {
			return
		}
		cards = append(cards, Card{Title: title, Link: absoluteLink(href, base)})
	})
	return cards, nil
}

func absoluteLink(href string, base *url.URL) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

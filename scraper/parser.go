package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"price-recommender/models"
)

// ParseListings extracts listing cards from a catalog page. A card missing a
// field keeps an empty string for it; the card is still returned.
func (p *Profile) ParseListings(html string) ([]models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listings: %w", err)
	}

	sel := p.Listing
	var listings []models.RawListing
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		listings = append(listings, models.RawListing{
			Name:       text(item, sel.Name),
			Link:       p.resolveLink(listingHref(item, sel.Link)),
			Identifier: attr(item, sel.Identifier, sel.IdentifierAttr),
		})
	})
	return listings, nil
}

// ParseDetail extracts the detail fields of one listing page.
func (p *Profile) ParseDetail(html string) (models.ListingDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ListingDetail{}, fmt.Errorf("parse detail: %w", err)
	}

	sel := p.Detail
	root := doc.Selection
	detail := models.ListingDetail{
		Discount:        text(root, sel.Discount),
		OriginalPrice:   prefixedPrice(text(root, sel.OriginalPrice), sel.PricePrefix),
		DiscountedPrice: text(root, sel.DiscountedPrice),
		Description:     text(root, sel.Description),
		StoreInfo:       text(root, sel.StoreInfo),
	}
	if sel.Breadcrumb != "" {
		// Last breadcrumb is the most specific category.
		detail.Category = strings.TrimSpace(doc.Find(sel.Breadcrumb).Last().Text())
	}
	return detail, nil
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func attr(s *goquery.Selection, selector, name string) string {
	if name == "" {
		return ""
	}
	target := s
	if selector != "" {
		target = s.Find(selector).First()
	}
	return strings.TrimSpace(target.AttrOr(name, ""))
}

// listingHref prefers an enclosing anchor (cards are usually wrapped in one)
// and falls back to the first anchor inside the card.
func listingHref(item *goquery.Selection, selector string) string {
	if selector == "" {
		selector = "a[href]"
	}
	if href, ok := item.Closest(selector).Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return strings.TrimSpace(item.Find(selector).First().AttrOr("href", ""))
}

func (p *Profile) resolveLink(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() || p.LinkPrefix == "" {
		return ref.String()
	}
	base, err := url.Parse(p.LinkPrefix)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// prefixedPrice keeps only the amount after the last currency prefix and
// re-attaches the prefix, so "Hemat Rp 2.000 Rp 15.000" becomes "Rp 15.000".
func prefixedPrice(s, prefix string) string {
	if s == "" || prefix == "" {
		return s
	}
	i := strings.LastIndex(s, prefix)
	if i < 0 {
		return s
	}
	amount := strings.TrimSpace(s[i+len(prefix):])
	if amount == "" {
		return ""
	}
	return prefix + " " + amount
}

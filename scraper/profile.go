package scraper

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"price-recommender/money"
)

//go:embed profiles/*.yaml
var profileFS embed.FS

// DefaultProfile is the embedded storefront used when no profile path is configured.
const DefaultProfile = "klikindomaret"

// Profile describes one storefront: where its catalog lives and which
// selectors pull each raw field out of the listing and detail pages.
type Profile struct {
	Platform    string           `yaml:"platform"`
	BaseURL     string           `yaml:"base_url"`
	PageParam   string           `yaml:"page_param"`
	LinkPrefix  string           `yaml:"link_prefix"`
	Listing     ListingSelectors `yaml:"listing"`
	Detail      DetailSelectors  `yaml:"detail"`
	PriceFormat money.Format     `yaml:"price_format"`
}

// ListingSelectors locate listing cards on a catalog page.
type ListingSelectors struct {
	Item           string `yaml:"item"`
	Name           string `yaml:"name"`
	Link           string `yaml:"link"`
	Identifier     string `yaml:"identifier"`
	IdentifierAttr string `yaml:"identifier_attr"`
}

// DetailSelectors locate fields on a listing's own page.
type DetailSelectors struct {
	Discount        string `yaml:"discount"`
	OriginalPrice   string `yaml:"original_price"`
	DiscountedPrice string `yaml:"discounted_price"`
	Description     string `yaml:"description"`
	StoreInfo       string `yaml:"store_info"`
	Breadcrumb      string `yaml:"breadcrumb"`
	PricePrefix     string `yaml:"price_prefix"`
}

// LoadProfile reads a profile from path, or the embedded default when path is empty.
func LoadProfile(path string) (*Profile, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = profileFS.ReadFile("profiles/" + DefaultProfile + ".yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("profile: read: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	if p.Platform == "" {
		return nil, fmt.Errorf("profile: platform is required")
	}
	if p.Listing.Item == "" {
		return nil, fmt.Errorf("profile %s: listing.item selector is required", p.Platform)
	}
	if p.PageParam == "" {
		p.PageParam = "page"
	}
	return &p, nil
}

// PageURL sets the page query parameter on base.
func (p *Profile) PageURL(base string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("profile %s: bad base url: %w", p.Platform, err)
	}
	q := u.Query()
	q.Set(p.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

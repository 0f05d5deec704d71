package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultProfile(t *testing.T) {
	p, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, "klikindomaret", p.Platform)
	assert.Equal(t, "page", p.PageParam)
	assert.Equal(t, "IDR", p.PriceFormat.Currency)
	assert.Equal(t, ".", p.PriceFormat.ThousandsSeparator)
}

func TestParseProfileValidation(t *testing.T) {
	_, err := ParseProfile([]byte("listing:\n  item: div.card\n"))
	assert.Error(t, err, "platform is required")

	_, err = ParseProfile([]byte("platform: shop\n"))
	assert.Error(t, err, "listing.item is required")

	p, err := ParseProfile([]byte("platform: shop\nlisting:\n  item: div.card\n"))
	require.NoError(t, err)
	assert.Equal(t, "page", p.PageParam, "page param defaults")
}

func TestPageURL(t *testing.T) {
	p := &Profile{Platform: "klikindomaret", PageParam: "page"}

	got, err := p.PageURL("https://www.klikindomaret.com/page/unilever-officialstore?pagesize=50&sortcol=", 3)
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "3", u.Query().Get("page"))
	assert.Equal(t, "50", u.Query().Get("pagesize"))
	assert.Equal(t, "/page/unilever-officialstore", u.Path)

	got, err = p.PageURL(got, 4)
	require.NoError(t, err)
	u, _ = url.Parse(got)
	assert.Equal(t, "4", u.Query().Get("page"), "page param is replaced, not appended")
}

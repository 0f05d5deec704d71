package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogPage = `<html><body>
<div class="product-collection">
  <a href="/product/lifebuoy-sabun-batang-110g">
    <div class="each-item">
      <div class="wrp-media" data-plu="20048373"><img src="x.jpg"></div>
      <div class="title">  Lifebuoy Sabun Batang Total 10 110G </div>
    </div>
  </a>
  <a href="https://www.klikindomaret.com/product/dove-shampoo-160ml">
    <div class="each-item">
      <div class="wrp-media" data-plu="20077612"></div>
      <div class="title">Dove Shampoo 160ml</div>
    </div>
  </a>
  <div class="each-item">
    <div class="title">Orphan card without link</div>
  </div>
</div>
</body></html>`

const detailPage = `<html><body>
<div class="breadcrumb"><a href="/">Home</a><a href="/c/personal-care">Personal Care</a><a href="/c/sabun">Sabun Mandi</a></div>
<span class="discount">10%</span>
<span class="strikeout disc-price">Hemat Rp 5.000</span>
<span class="normal price-final">Rp 4.500</span>
<span id="desc-product">
   Sabun batang antibakteri.
</span>
<span class="typesend-title">Dikirim oleh toko</span>
</body></html>`

func defaultProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := LoadProfile("")
	require.NoError(t, err)
	return p
}

func TestParseListings(t *testing.T) {
	p := defaultProfile(t)

	listings, err := p.ParseListings(catalogPage)
	require.NoError(t, err)
	require.Len(t, listings, 3)

	assert.Equal(t, "Lifebuoy Sabun Batang Total 10 110G", listings[0].Name)
	assert.Equal(t, "https://www.klikindomaret.com/product/lifebuoy-sabun-batang-110g", listings[0].Link)
	assert.Equal(t, "20048373", listings[0].Identifier)

	assert.Equal(t, "https://www.klikindomaret.com/product/dove-shampoo-160ml", listings[1].Link)

	assert.Equal(t, "Orphan card without link", listings[2].Name)
	assert.Empty(t, listings[2].Link, "missing link defaults to empty")
	assert.Empty(t, listings[2].Identifier, "missing identifier defaults to empty")
}

func TestParseListingsEmptyPage(t *testing.T) {
	p := defaultProfile(t)
	listings, err := p.ParseListings("<html><body></body></html>")
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestParseDetail(t *testing.T) {
	p := defaultProfile(t)

	d, err := p.ParseDetail(detailPage)
	require.NoError(t, err)
	assert.Equal(t, "10%", d.Discount)
	assert.Equal(t, "Rp 5.000", d.OriginalPrice)
	assert.Equal(t, "Rp 4.500", d.DiscountedPrice)
	assert.Equal(t, "Sabun batang antibakteri.", d.Description)
	assert.Equal(t, "Dikirim oleh toko", d.StoreInfo)
	assert.Equal(t, "Sabun Mandi", d.Category)
}

func TestParseDetailMissingFields(t *testing.T) {
	p := defaultProfile(t)

	d, err := p.ParseDetail(`<html><body><span class="normal price-final">Rp 9.900</span></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Rp 9.900", d.DiscountedPrice)
	assert.Empty(t, d.Discount)
	assert.Empty(t, d.OriginalPrice)
	assert.Empty(t, d.Category)
}

func TestPrefixedPrice(t *testing.T) {
	tests := []struct {
		in, prefix, want string
	}{
		{"Rp 15.000", "Rp", "Rp 15.000"},
		{"Hemat Rp 2.000 Rp 15.000", "Rp", "Rp 15.000"},
		{"Rp15.000", "Rp", "Rp 15.000"},
		{"15.000", "Rp", "15.000"},
		{"", "Rp", ""},
		{"Rp ", "Rp", ""},
	}
	for _, tt := range tests {
		if got := prefixedPrice(tt.in, tt.prefix); got != tt.want {
			t.Errorf("prefixedPrice(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

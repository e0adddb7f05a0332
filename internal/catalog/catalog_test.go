package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownPlatforms(t *testing.T) {
	creds := Credentials{StoreURL: "https://shop.example.com", APIKey: "k", APISecret: "s"}

	src, err := Resolve("shopify", creds)
	require.NoError(t, err)
	assert.IsType(t, &ShopifyClient{}, src)

	src, err = Resolve("woocommerce", creds)
	require.NoError(t, err)
	assert.IsType(t, &WooCommerceClient{}, src)
}

func TestResolveUnknownPlatform(t *testing.T) {
	_, err := Resolve("magento", Credentials{})
	assert.ErrorIs(t, err, ErrUnknownPlatform)
	assert.Contains(t, err.Error(), "magento")
}

func TestPlatforms(t *testing.T) {
	assert.ElementsMatch(t, []string{"shopify", "woocommerce"}, Platforms())
}

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips tags", in: "<p>Red <b>silk</b>  dress</p>", want: "Red silk dress"},
		{name: "plain text", in: "plain text", want: "plain text"},
		{name: "only tags", in: "<br/><hr/>", want: ""},
		{name: "decodes entities", in: "Red &amp; blue", want: "Red & blue"},
		{name: "bare angle bracket in prose", in: "Fits sizes < 12 and up", want: "Fits sizes < 12 and up"},
		{name: "nested markup", in: "<div><h2>Care</h2><ul><li>Hand wash</li><li>Drip&nbsp;dry</li></ul></div>", want: "Care Hand wash Drip dry"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, htmlToText(tc.in))
		})
	}
}

func TestParseProductID(t *testing.T) {
	id, err := ParseProductID("12345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	_, err = ParseProductID("gid://shopify/Product/1")
	assert.Error(t, err)

	_, err = ParseProductID("")
	assert.Error(t, err)
}

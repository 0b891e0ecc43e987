package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractString(t *testing.T) {
	html := `<html>
<head><title> Nykaa Offers </title><style>.x{color:red}</style></head>
<body>
  <script>var code = "NOTME99";</script>
  <h1>Beauty sale</h1>
  <p>Use code <b>WELCOME25</b> at checkout for 25% off.</p>
  <ul><li>Valid till 31/12/2025</li><li>Min order &#8377;499</li></ul>
</body></html>`

	page, err := ExtractString(html)
	require.NoError(t, err)

	assert.Equal(t, "Nykaa Offers", page.Title)
	assert.Contains(t, page.Text, "Use code WELCOME25 at checkout for 25% off.")
	assert.Contains(t, page.Text, "Valid till 31/12/2025\nMin order ₹499")
	assert.NotContains(t, page.Text, "NOTME99")
	assert.NotContains(t, page.Text, "color:red")
}

func TestExtractString_OGTitleFallback(t *testing.T) {
	page, err := ExtractString(`<html><head><meta property="og:title" content="Deals of the day"></head><body><div>text</div></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Deals of the day", page.Title)
	assert.Equal(t, "text", page.Text)
}

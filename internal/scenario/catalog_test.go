package scenario

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	assert.Equal(t, []string{
		"add-to-cart",
		"buy-now",
		"related-category",
		"related-images",
		"related-navigation",
		"related-panel",
		"related-prices",
		"related-wishlist",
	}, Names())

	for _, sc := range Catalog() {
		assert.NotEmpty(t, sc.Description, sc.Name)
		assert.NotNil(t, sc.Run, sc.Name)
	}
}

func TestLookup(t *testing.T) {
	sc, err := Lookup("buy-now")
	require.NoError(t, err)
	assert.Equal(t, "buy-now", sc.Name)

	_, err = Lookup("sell-everything")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestSkipError(t *testing.T) {
	err := Skip("no button")
	var skip *SkipError
	require.True(t, errors.As(err, &skip))
	assert.Equal(t, "no button", skip.Reason)
	assert.Equal(t, "skipped: no button", err.Error())
}

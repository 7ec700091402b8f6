//go:build e2e

package e2e

import (
	"testing"
)

// TestRelatedProducts tests the Similar items panel of a listing
// Feature: Related products
//
//	As a shopper
//	I want to see items similar to the one I am viewing
//	So that I can compare before buying
func TestRelatedProducts(t *testing.T) {
	// Scenario: Inspect the Similar items panel
	//   Given I searched for "wallet" and opened the first listing
	//   When I scroll to "Similar items"
	//   Then the panel holds the expected items

	scenarios := []string{
		"related-panel",      // visible, expected count and heading, titles and prices
		"related-category",   // every item is from the searched category
		"related-prices",     // every item has a price
		"related-images",     // every item has an image
		"related-navigation", // an item opens its listing
		"related-wishlist",   // the wishlist icon can be clicked
	}

	for _, name := range scenarios {
		t.Run(name, func(t *testing.T) {
			runScenario(t, name)
		})
	}
}

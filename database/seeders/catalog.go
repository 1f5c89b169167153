package seeders

import (
	"context"
	"fmt"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/app/repositories"
)

func init() {
	Register("catalog", SeedCatalog)
}

var sampleCatalog = []models.Product{
	{Name: "Striped Flutter Sleeve Overlap Collar Peplum Hem Blouse", Image: "product_1.png", Category: "women", NewPrice: 50, OldPrice: 80.5},
	{Name: "Pleated Wrap Midi Dress", Image: "product_2.png", Category: "women", NewPrice: 85, OldPrice: 120.5},
	{Name: "Ribbed Knit Cardigan", Image: "product_3.png", Category: "women", NewPrice: 60, OldPrice: 100.5},
	{Name: "Linen Button Front Shirt", Image: "product_4.png", Category: "women", NewPrice: 100, OldPrice: 150},
	{Name: "Wide Leg Tailored Trousers", Image: "product_5.png", Category: "women", NewPrice: 85, OldPrice: 120.5},
	{Name: "Men Green Solid Zippered Full-Zip Slim Fit Bomber Jacket", Image: "product_13.png", Category: "men", NewPrice: 85, OldPrice: 120.5},
	{Name: "Slim Fit Oxford Shirt", Image: "product_14.png", Category: "men", NewPrice: 60, OldPrice: 100.5},
	{Name: "Quilted Field Jacket", Image: "product_15.png", Category: "men", NewPrice: 100, OldPrice: 150},
	{Name: "Relaxed Chino Shorts", Image: "product_16.png", Category: "men", NewPrice: 45, OldPrice: 70},
	{Name: "Boys Orange Colourblocked Hooded Sweatshirt", Image: "product_25.png", Category: "kid", NewPrice: 85, OldPrice: 120.5},
	{Name: "Girls Printed Cotton Dress", Image: "product_26.png", Category: "kid", NewPrice: 50, OldPrice: 80.5},
	{Name: "Kids Denim Jogger", Image: "product_27.png", Category: "kid", NewPrice: 40, OldPrice: 65},
}

// SeedCatalog inserts the sample products into an empty catalog. A catalog
// that already has products is left alone.
func SeedCatalog(ctx context.Context, stores *repositories.Stores) error {
	existing, err := stores.Catalog.All(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range sampleCatalog {
		p.Available = true
		if _, err := stores.Catalog.Insert(ctx, p); err != nil {
			return fmt.Errorf("insert %q: %w", p.Name, err)
		}
	}
	return nil
}

package enums

import "fmt"

// ProductCategory is the fixed catalog taxonomy.
type ProductCategory string

const (
	ProductCategoryElectronics ProductCategory = "electronics"
	ProductCategoryClothing    ProductCategory = "clothing"
	ProductCategoryBooks       ProductCategory = "books"
	ProductCategoryHomeGarden  ProductCategory = "home_garden"
	ProductCategorySports      ProductCategory = "sports"
	ProductCategoryBeauty      ProductCategory = "beauty"
	ProductCategoryToys        ProductCategory = "toys"
	ProductCategoryAutomotive  ProductCategory = "automotive"
	ProductCategoryHealth      ProductCategory = "health"
	ProductCategoryFood        ProductCategory = "food"
)

var validProductCategories = []ProductCategory{
	ProductCategoryElectronics,
	ProductCategoryClothing,
	ProductCategoryBooks,
	ProductCategoryHomeGarden,
	ProductCategorySports,
	ProductCategoryBeauty,
	ProductCategoryToys,
	ProductCategoryAutomotive,
	ProductCategoryHealth,
	ProductCategoryFood,
}

// String implements fmt.Stringer.
func (p ProductCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductCategory.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

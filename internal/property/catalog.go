package property

// Category is a property category shown in the create and edit forms.
type Category struct {
	ID   int
	Name string
}

// PriceRange is a price bracket shown in the create and edit forms.
type PriceRange struct {
	ID   int
	Name string
}

var categories = []Category{
	{ID: 1, Name: "Casa"},
	{ID: 2, Name: "Departamento"},
	{ID: 3, Name: "Bodega"},
	{ID: 4, Name: "Terreno"},
	{ID: 5, Name: "Cabaña"},
}

var priceRanges = []PriceRange{
	{ID: 1, Name: "0 - 1,000 USD"},
	{ID: 2, Name: "1,000 - 5,000 USD"},
	{ID: 3, Name: "5,000 - 10,000 USD"},
	{ID: 4, Name: "10,000 - 25,000 USD"},
	{ID: 5, Name: "25,000 - 50,000 USD"},
	{ID: 6, Name: "Mas de 50,000 USD"},
}

// Categories returns the static category catalog.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// PriceRanges returns the static price range catalog.
func PriceRanges() []PriceRange {
	out := make([]PriceRange, len(priceRanges))
	copy(out, priceRanges)
	return out
}

// ValidCategory reports whether id refers to a known category.
func ValidCategory(id int) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ValidPriceRange reports whether id refers to a known price range.
func ValidPriceRange(id int) bool {
	for _, p := range priceRanges {
		if p.ID == id {
			return true
		}
	}
	return false
}

// CategoryName returns the name for a category ID, or an empty string.
func CategoryName(id int) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// PriceRangeName returns the name for a price range ID, or an empty string.
func PriceRangeName(id int) string {
	for _, p := range priceRanges {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

package waste

import "fmt"

// MaterialCategory is a closed enumeration of material types. Labels the
// table does not know map to CategoryOther, which is never recyclable.
type MaterialCategory string

const (
	CategoryMetal     MaterialCategory = "metal"
	CategoryPlastic   MaterialCategory = "plastic"
	CategoryGlass     MaterialCategory = "glass"
	CategoryPaper     MaterialCategory = "paper"
	CategoryCardboard MaterialCategory = "cardboard"
	CategoryStyrofoam MaterialCategory = "styrofoam"
	CategoryFoodWaste MaterialCategory = "food_waste"
	CategoryOther     MaterialCategory = "other"
)

// Categories lists every valid material category.
var Categories = []MaterialCategory{
	CategoryMetal,
	CategoryPlastic,
	CategoryGlass,
	CategoryPaper,
	CategoryCardboard,
	CategoryStyrofoam,
	CategoryFoodWaste,
	CategoryOther,
}

// labelCategories is the static label to category lookup. It is a closed
// table: membership decides categorisation, never substring matching.
var labelCategories = map[string]MaterialCategory{
	"can":             CategoryMetal,
	"bottle":          CategoryPlastic,
	"cardboard box":   CategoryCardboard,
	"cardboard":       CategoryCardboard,
	"paper":           CategoryPaper,
	"glass bottle":    CategoryGlass,
	"glass jar":       CategoryGlass,
	"cup":             CategoryPlastic,
	"plastic bag":     CategoryPlastic,
	"chip bag":        CategoryPlastic,
	"food package":    CategoryPlastic,
	"wrapper":         CategoryPlastic,
	"plastic wrapper": CategoryPlastic,
	"food container":  CategoryPlastic,
	"styrofoam":       CategoryStyrofoam,
	"foam container":  CategoryStyrofoam,
	"straw":           CategoryPlastic,
	"fork":            CategoryPlastic,
	"spoon":           CategoryPlastic,
	"plastic utensil": CategoryPlastic,
	"napkin":          CategoryPaper,
	"tissue":          CategoryPaper,
	"banana":          CategoryFoodWaste,
	"apple":           CategoryFoodWaste,
	"orange":          CategoryFoodWaste,
	"phone":           CategoryOther,
	"battery":         CategoryOther,
	"light bulb":      CategoryOther,
	"pen":             CategoryOther,
	"pencil":          CategoryOther,
	"toy":             CategoryOther,
}

// recyclableLabels marks which known labels go to the recycling bin.
// Disposable cups keep a plastic lining, so they count as trash even
// though their material category is plastic.
var recyclableLabels = map[string]bool{
	"can":           true,
	"bottle":        true,
	"glass bottle":  true,
	"glass jar":     true,
	"cardboard box": true,
	"cardboard":     true,
	"paper":         true,
}

// CategoryFor returns the material category for a label. Unknown labels
// map to CategoryOther.
func CategoryFor(label string) MaterialCategory {
	if c, ok := labelCategories[label]; ok {
		return c
	}
	return CategoryOther
}

// IsRecyclable reports whether a label routes to the recycling bin.
// Unknown labels default to false.
func IsRecyclable(label string) bool {
	return recyclableLabels[label]
}

// ValidateCategoryTable checks the static tables for internal consistency.
// Called once at startup so a bad table edit fails fast instead of
// miscategorising events at runtime.
func ValidateCategoryTable() error {
	valid := make(map[MaterialCategory]bool, len(Categories))
	for _, c := range Categories {
		valid[c] = true
	}
	for label, cat := range labelCategories {
		if label == "" {
			return fmt.Errorf("category table contains an empty label")
		}
		if !valid[cat] {
			return fmt.Errorf("label %q maps to unknown category %q", label, cat)
		}
	}
	for label := range recyclableLabels {
		if _, ok := labelCategories[label]; !ok {
			return fmt.Errorf("recyclable label %q missing from category table", label)
		}
	}
	return nil
}

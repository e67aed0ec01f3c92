package domain

import "time"

// Entity type names, shared by the source specs, the page cache and the stores.
const (
	EntityProduct  = "product"
	EntityCategory = "category"
	EntityUser     = "user"
)

// Product field names as stored in the catalog.
const (
	FieldCode           = "code"
	FieldProductName    = "product_name"
	FieldGenericName    = "generic_name"
	FieldURL            = "url"
	FieldStores         = "stores"
	FieldNutritionGrade = "nutrition_grade_fr"
	FieldLastUpdated    = "last_updated"
	FieldCategoriesTags = "categories_tags"
)

// Category field names as stored in the catalog.
const (
	FieldID   = "id"
	FieldName = "name"
)

// NutrientField pairs the per-100g value column of a nutrient with its unit column.
type NutrientField struct {
	Value string
	Unit  string
}

// NutrientFields lists the nutrition columns of a product in display order.
var NutrientFields = []NutrientField{
	{Value: "energy_100g", Unit: "energy_unit"},
	{Value: "sugars_100g", Unit: "sugars_unit"},
	{Value: "sodium_100g", Unit: "sodium_unit"},
	{Value: "carbohydrates_100g", Unit: "carbohydrates_unit"},
	{Value: "salt_100g", Unit: "salt_unit"},
	{Value: "proteins_100g", Unit: "proteins_unit"},
	{Value: "fat_100g", Unit: "fat_unit"},
	{Value: "fiber_100g", Unit: "fiber_unit"},
	{Value: "saturated_fat_100g", Unit: "saturated_fat_unit"},
}

// ProductColumns returns the stored scalar columns of a product, primary key first.
// last_updated is maintained by the store and is not part of the list.
func ProductColumns() []FieldSpec {
	cols := []FieldSpec{
		{Name: FieldCode, Kind: FieldText},
		{Name: FieldProductName, Kind: FieldText},
		{Name: FieldGenericName, Kind: FieldText},
		{Name: FieldURL, Kind: FieldText},
		{Name: FieldStores, Kind: FieldText},
		{Name: FieldNutritionGrade, Kind: FieldText},
	}
	for _, nf := range NutrientFields {
		cols = append(cols, FieldSpec{Name: nf.Value, Kind: FieldNumber}, FieldSpec{Name: nf.Unit, Kind: FieldText})
	}
	return cols
}

// CategoryColumns returns the stored columns of a category, primary key first
func CategoryColumns() []FieldSpec {
	return []FieldSpec{
		{Name: FieldID, Kind: FieldText},
		{Name: FieldName, Kind: FieldText},
		{Name: FieldURL, Kind: FieldText},
	}
}

// Nutrient is a per-100g value that may be absent, with an optional unit
type Nutrient struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit,omitempty"`
}

// Product is a catalog entry synchronised from the external source.
// Code is supplied by the source and never generated locally.
type Product struct {
	Code           string              `json:"code"`
	Name           string              `json:"productName"`
	Description    string              `json:"genericName"`
	URL            string              `json:"url"`
	Stores         string              `json:"stores"`
	NutritionGrade string              `json:"nutritionGrade"`
	Nutrients      map[string]Nutrient `json:"nutrients"`
	LastUpdated    time.Time           `json:"lastUpdated"`
	Categories     []string            `json:"categories,omitempty"`
}

// Complete reports whether the product carries a nutrition grade
func (p Product) Complete() bool {
	return p.NutritionGrade != ""
}

// Category groups products; it is deleted by cleanup once it has too few products.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SearchResult is a transient (product, weight) pair produced by the search engine
type SearchResult struct {
	Product Product `json:"product"`
	Weight  int     `json:"weight"`
}

// ProductFromFields builds a Product from a stored row keyed by field name.
// Text columns are expected as string, nutrient values as float64 or nil.
func ProductFromFields(fields map[string]any) Product {
	p := Product{
		Code:           stringField(fields, FieldCode),
		Name:           stringField(fields, FieldProductName),
		Description:    stringField(fields, FieldGenericName),
		URL:            stringField(fields, FieldURL),
		Stores:         stringField(fields, FieldStores),
		NutritionGrade: stringField(fields, FieldNutritionGrade),
		Nutrients:      make(map[string]Nutrient, len(NutrientFields)),
	}
	if t, ok := fields[FieldLastUpdated].(time.Time); ok {
		p.LastUpdated = t
	}
	for _, nf := range NutrientFields {
		n := Nutrient{Unit: stringField(fields, nf.Unit)}
		if v, ok := fields[nf.Value].(float64); ok {
			n.Value = &v
		}
		p.Nutrients[nf.Value] = n
	}
	return p
}

// CategoryFromFields builds a Category from a stored row keyed by field name
func CategoryFromFields(fields map[string]any) Category {
	return Category{
		ID:   stringField(fields, FieldID),
		Name: stringField(fields, FieldName),
		URL:  stringField(fields, FieldURL),
	}
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

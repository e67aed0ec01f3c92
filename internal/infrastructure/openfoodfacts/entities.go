// Package openfoodfacts talks to the Open Food Facts catalog and describes its entities.
package openfoodfacts

import (
	"strings"

	"github.com/purbeurre/backend/internal/domain"
)

// DefaultBaseURL is the French Open Food Facts instance
const DefaultBaseURL = "https://fr.openfoodfacts.org"

// ProductSpec describes products sold and made in France, paginated 20 per page.
func ProductSpec(baseURL string) domain.EntitySpec {
	base := strings.TrimRight(baseURL, "/")

	fields := []domain.FieldSpec{
		{Name: domain.FieldProductName, Kind: domain.FieldText},
		{Name: domain.FieldGenericName, Kind: domain.FieldText},
		{Name: domain.FieldURL, Kind: domain.FieldText},
		{Name: domain.FieldStores, Kind: domain.FieldText},
		{Name: domain.FieldNutritionGrade, Kind: domain.FieldText},
	}
	strict := []string{domain.FieldGenericName, domain.FieldNutritionGrade}
	for _, nf := range domain.NutrientFields {
		fields = append(fields,
			domain.FieldSpec{Name: nf.Value, Kind: domain.FieldNumber},
			domain.FieldSpec{Name: nf.Unit, Kind: domain.FieldText},
		)
		strict = append(strict, nf.Value)
	}

	return domain.EntitySpec{
		Name:       domain.EntityProduct,
		ListURL:    base + "/lieu-de-vente/france/lieu-de-fabrication/france/{page}.json",
		ElementURL: base + "/api/v0/produit/{id}.json",
		Paginated:  true,
		ListKey:    "products",
		ElementKey: "product",
		PrimaryKey: domain.FieldCode,
		Fields:     fields,
		Relations: []domain.RelationSpec{
			{Name: domain.FieldCategoriesTags, Target: domain.EntityCategory},
		},
		Renames: map[string]string{
			"saturated-fat_100g": "saturated_fat_100g",
			"saturated-fat_unit": "saturated_fat_unit",
			"nutrition_grades":   domain.FieldNutritionGrade,
			"nutriscore_grade":   domain.FieldNutritionGrade,
		},
		StrictRequired: strict,
	}
}

// CategorySpec describes the full, unpaginated category taxonomy.
func CategorySpec(baseURL string) domain.EntitySpec {
	base := strings.TrimRight(baseURL, "/")

	return domain.EntitySpec{
		Name:       domain.EntityCategory,
		ListURL:    base + "/categories.json",
		Paginated:  false,
		ListKey:    "tags",
		PrimaryKey: domain.FieldID,
		Fields: []domain.FieldSpec{
			{Name: domain.FieldName, Kind: domain.FieldText},
			{Name: domain.FieldURL, Kind: domain.FieldText},
		},
		StrictRequired: []string{domain.FieldName, domain.FieldURL},
	}
}

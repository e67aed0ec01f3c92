package openfoodfacts

import (
	"testing"

	"github.com/purbeurre/backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestProductSpec(t *testing.T) {
	spec := ProductSpec("https://fr.openfoodfacts.org/")

	assert.Equal(t, "https://fr.openfoodfacts.org/lieu-de-vente/france/lieu-de-fabrication/france/9.json", spec.ListURLFor(9))
	assert.Equal(t, "https://fr.openfoodfacts.org/api/v0/produit/3222472887966.json", spec.ElementURLFor("3222472887966"))
	assert.Equal(t, "https://fr.openfoodfacts.org/api/v0/produit/..%2Fadmin%3Fx=1.json", spec.ElementURLFor("../admin?x=1"))
	assert.True(t, spec.IsRelation(domain.FieldCategoriesTags))
	assert.False(t, spec.IsRelation(domain.FieldProductName))

	field, ok := spec.Field("saturated_fat_100g")
	assert.True(t, ok)
	assert.Equal(t, domain.FieldNumber, field.Kind)

	assert.Equal(t, []string{"saturated_fat_100g", "saturated-fat_100g"}, spec.LookupKeys("saturated_fat_100g"))
	assert.Equal(t, []string{domain.FieldNutritionGrade, "nutriscore_grade", "nutrition_grades"}, spec.LookupKeys(domain.FieldNutritionGrade))
	assert.Equal(t, []string{domain.FieldStores}, spec.LookupKeys(domain.FieldStores))

	recognized := spec.RecognizedFields()
	assert.Equal(t, domain.FieldCode, recognized[0])
	assert.Equal(t, domain.FieldCategoriesTags, recognized[len(recognized)-1])
	assert.Contains(t, spec.StrictRequired, "fiber_100g")
}

func TestCategorySpec(t *testing.T) {
	spec := CategorySpec(DefaultBaseURL)

	assert.Equal(t, "https://fr.openfoodfacts.org/categories.json", spec.ListURLFor(1))
	assert.Equal(t, spec.ListURLFor(1), spec.ListURLFor(12), "page is ignored for unpaginated lists")
	assert.Empty(t, spec.ElementURLFor("en:snacks"))
	assert.Equal(t, []string{domain.FieldID, domain.FieldName, domain.FieldURL}, spec.RecognizedFields())
}

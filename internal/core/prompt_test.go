package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mikey/authenticity-guardian/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildPrompt(t *testing.T) {
	catalog := []CatalogItem{
		{ID: "P001", Brand: "VILVAH", Description: "Milk Drops Serum 20ml", Price: 620},
		{ID: "P002", Brand: "Minimalist", Description: "Niacinamide 10% | Zinc", Price: 599},
	}
	listing := Listing{Name: "  VILVAH Milk Drops Brightening Serum (20ml) ", Price: 620}

	prompt := BuildPrompt(catalog, listing)

	for _, field := range []string{"similarity_score", "risk_level", "matching_product_id", "reasoning"} {
		assert.Contains(t, prompt, field)
	}
	assert.Contains(t, prompt, "0 to 100 inclusive")
	assert.Contains(t, prompt, "Respond only with the JSON object")
	assert.Contains(t, prompt, "Do not use markdown code fences")

	assert.Contains(t, prompt, "P001 | VILVAH | Milk Drops Serum 20ml | 620\n")
	assert.Contains(t, prompt, "P002 | Minimalist | Niacinamide 10% / Zinc | 599\n")
	assert.Less(t, strings.Index(prompt, "P001"), strings.Index(prompt, "P002"))

	assert.Contains(t, prompt, "Name: VILVAH Milk Drops Brightening Serum (20ml)\n")
	assert.Contains(t, prompt, "Price: 620\n")
	assert.Less(t, strings.Index(prompt, "NEW LISTING:"), strings.Index(prompt, "REFERENCE CATALOG:"))
	assert.NotContains(t, prompt, "catalog truncated")
}

func largeCatalog(n int) []CatalogItem {
	items := make([]CatalogItem, n)
	for i := range items {
		items[i] = CatalogItem{
			ID:          fmt.Sprintf("P%04d", i),
			Brand:       "BRAND",
			Description: "Long product description used to pad the reference catalog row",
			Price:       100 + i,
		}
	}
	return items
}

func TestBuildBoundedPrompt_KeepsListingWhenCatalogIsLarge(t *testing.T) {
	catalog := largeCatalog(600)
	listing := Listing{Name: "CANDIDATE-XYZ", Price: 777}
	const limit = 32768

	require.Greater(t, len(BuildPrompt(catalog, listing)), limit)

	prompt, shown, err := BuildBoundedPrompt(catalog, listing, limit)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(prompt), limit)
	assert.Greater(t, shown, 0)
	assert.Less(t, shown, len(catalog))
	assert.Contains(t, prompt, "Name: CANDIDATE-XYZ\n")
	assert.Contains(t, prompt, "Price: 777\n")
	assert.Contains(t, prompt, fmt.Sprintf("(catalog truncated: %d of 600 products shown)\n", shown))
	assert.Contains(t, prompt, "P0000 | BRAND")
	assert.NotContains(t, prompt, fmt.Sprintf("P%04d |", shown))

	// The adapters' own size guard must leave the listing intact.
	logger := zap.NewNop()
	sent := utils.NewTextProcessor(logger).ProcessText(prompt, limit)
	assert.Contains(t, sent, "CANDIDATE-XYZ")
	assert.NotContains(t, sent, utils.TruncationMarker)
}

func TestBuildBoundedPrompt_FitsUnchanged(t *testing.T) {
	prompt, shown, err := BuildBoundedPrompt(largeCatalog(3), Listing{Name: "x", Price: 1}, 32768)
	require.NoError(t, err)
	assert.Equal(t, 3, shown)
	assert.Equal(t, BuildPrompt(largeCatalog(3), Listing{Name: "x", Price: 1}), prompt)
}

func TestBuildBoundedPrompt_LimitTooSmall(t *testing.T) {
	_, _, err := BuildBoundedPrompt(largeCatalog(3), Listing{Name: "x", Price: 1}, 100)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "llm.max_prompt_size", cfgErr.Input)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	catalog := []CatalogItem{{ID: "A", Brand: "B", Description: "C", Price: 1}}
	listing := Listing{Name: "x", Price: 2}
	assert.Equal(t, BuildPrompt(catalog, listing), BuildPrompt(catalog, listing))
}

func TestRenderCatalog_Empty(t *testing.T) {
	out := RenderCatalog(nil)
	assert.Equal(t, "Product_ID | Brand | Description | Price\n(catalog is empty)\n", out)
}

func TestRenderCatalog_MultilineCells(t *testing.T) {
	out := RenderCatalog([]CatalogItem{{ID: "P9", Brand: "Acme", Description: "line one\nline two", Price: 10}})
	assert.Contains(t, out, "P9 | Acme | line one line two | 10\n")
}

func TestResponseSchema(t *testing.T) {
	schema := ResponseSchema()
	names := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{FieldSimilarityScore, FieldRiskLevel, FieldMatchingProductID, FieldReasoning}, names)
	assert.Subset(t, schema.Required, []string{FieldSimilarityScore, FieldRiskLevel, FieldReasoning})
}

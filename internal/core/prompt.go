package core

import (
	"fmt"
	"strings"
)

// Field names the model is asked to return
const (
	FieldSimilarityScore   = "similarity_score"
	FieldRiskLevel         = "risk_level"
	FieldMatchingProductID = "matching_product_id"
	FieldReasoning         = "reasoning"
)

const promptInstruction = `You are a product authenticity and duplication analyst for an e-commerce CRM team.
Compare the NEW LISTING below with every product in the REFERENCE CATALOG that follows it and decide how likely it is
that the new listing duplicates, copies or counterfeits an existing catalog product.
Consider brand, product name, description, size or variant and price.

Scoring:
- similarity_score is an integer from 0 to 100 inclusive.
- 0 means no resemblance to any catalog product, 100 means an exact duplicate.
- 0-25 is low risk, 26-75 is medium risk, 76-100 is high risk.

Respond with a JSON object containing exactly these fields:
- similarity_score: integer between 0 and 100 inclusive
- risk_level: string, one of "LOW", "MEDIUM", "HIGH"
- matching_product_id: string, the Product_ID of the closest catalog product, or null if nothing is similar
- reasoning: string, one or two sentences explaining the score

Respond only with the JSON object and nothing else. Do not use markdown code fences.`

// BuildPrompt assembles the instruction, listing and catalog into one payload
func BuildPrompt(catalog []CatalogItem, listing Listing) string {
	prompt, _, _ := BuildBoundedPrompt(catalog, listing, 0)
	return prompt
}

// BuildBoundedPrompt assembles the payload in at most maxSize bytes. The
// listing always comes before the catalog and only trailing catalog rows are
// dropped to fit. It returns the number of catalog items included. A maxSize
// of zero or less means no limit.
func BuildBoundedPrompt(catalog []CatalogItem, listing Listing, maxSize int) (string, int, error) {
	var b strings.Builder
	b.WriteString(promptInstruction)
	b.WriteString("\n\nNEW LISTING:\n")
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(listing.Name))
	fmt.Fprintf(&b, "Price: %d\n", listing.Price)
	b.WriteString("\nREFERENCE CATALOG:\n")
	b.WriteString(catalogHeader)

	rows := make([]string, len(catalog))
	total := b.Len()
	for i, item := range catalog {
		rows[i] = catalogRow(item)
		total += len(rows[i])
	}
	if len(catalog) == 0 {
		total += len(emptyCatalogLine)
	}

	if maxSize <= 0 || total <= maxSize {
		if len(catalog) == 0 {
			b.WriteString(emptyCatalogLine)
		}
		for _, row := range rows {
			b.WriteString(row)
		}
		return b.String(), len(catalog), nil
	}

	// Reserve room for the note at its widest.
	budget := maxSize - b.Len() - len(truncatedNote(len(catalog), len(catalog)))
	if budget < 0 || len(catalog) == 0 {
		return "", 0, &ConfigError{
			Input: "llm.max_prompt_size",
			Err:   fmt.Errorf("limit of %d bytes cannot hold the instruction and listing (%d bytes)", maxSize, b.Len()),
		}
	}

	shown := 0
	for _, row := range rows {
		if len(row) > budget {
			break
		}
		b.WriteString(row)
		budget -= len(row)
		shown++
	}
	b.WriteString(truncatedNote(shown, len(catalog)))
	return b.String(), shown, nil
}

const (
	catalogHeader    = "Product_ID | Brand | Description | Price\n"
	emptyCatalogLine = "(catalog is empty)\n"
)

func truncatedNote(shown, total int) string {
	return fmt.Sprintf("(catalog truncated: %d of %d products shown)\n", shown, total)
}

// RenderCatalog renders the catalog as a plain pipe-separated table
func RenderCatalog(catalog []CatalogItem) string {
	var b strings.Builder
	b.WriteString(catalogHeader)
	if len(catalog) == 0 {
		b.WriteString(emptyCatalogLine)
		return b.String()
	}
	for _, item := range catalog {
		b.WriteString(catalogRow(item))
	}
	return b.String()
}

func catalogRow(item CatalogItem) string {
	return fmt.Sprintf("%s | %s | %s | %d\n",
		cell(item.ID), cell(item.Brand), cell(item.Description), item.Price)
}

// cell keeps a value on one table row
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "/")
	return strings.TrimSpace(s)
}

// SchemaType is a JSON schema primitive
type SchemaType string

const (
	SchemaString  SchemaType = "string"
	SchemaInteger SchemaType = "integer"
)

// SchemaField is one property of the structured-output contract
type SchemaField struct {
	Name        string
	Type        SchemaType
	Description string
	Enum        []string
	Nullable    bool
}

// Schema is a provider independent description of the expected JSON object
type Schema struct {
	Name     string
	Fields   []SchemaField
	Required []string
}

// ResponseSchema returns the structured-output contract matching the prompt
func ResponseSchema() *Schema {
	return &Schema{
		Name: "listing_risk_assessment",
		Fields: []SchemaField{
			{Name: FieldSimilarityScore, Type: SchemaInteger, Description: "Similarity to the closest catalog product, 0 to 100 inclusive"},
			{Name: FieldRiskLevel, Type: SchemaString, Description: "Risk tier", Enum: []string{string(RiskLow), string(RiskMedium), string(RiskHigh)}},
			{Name: FieldMatchingProductID, Type: SchemaString, Description: "Product_ID of the closest catalog product", Nullable: true},
			{Name: FieldReasoning, Type: SchemaString, Description: "Short explanation of the score"},
		},
		Required: []string{FieldSimilarityScore, FieldRiskLevel, FieldMatchingProductID, FieldReasoning},
	}
}

package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Score band edges. Bands are inclusive and do not overlap.
const (
	MinScore       = 0
	MaxScore       = 100
	LowRiskMax     = 25
	MediumRiskMax  = 75
	aliasScoreName = "similarity_score_percent"
)

// Classify derives the risk tier and recommended action from a score
func Classify(score int) (RiskLevel, Action) {
	switch {
	case score <= LowRiskMax:
		return RiskLow, ActionApprove
	case score <= MediumRiskMax:
		return RiskMedium, ActionReview
	default:
		return RiskHigh, ActionReject
	}
}

// ValidateResponse parses the normalized model output into an AnalysisResult.
// The risk tier and action are recomputed from the score; the model's own
// label is kept in ModelRiskLabel only.
func ValidateResponse(candidate string) (*AnalysisResult, error) {
	fields, err := decodeObject(candidate)
	if err != nil {
		return nil, &MalformedResponseError{Raw: candidate, Err: err}
	}

	scoreRaw, hasScore := lookup(fields, FieldSimilarityScore, aliasScoreName)
	labelRaw, hasLabel := lookup(fields, FieldRiskLevel)
	reasonRaw, hasReason := lookup(fields, FieldReasoning)

	var missing []string
	if !hasScore {
		missing = append(missing, FieldSimilarityScore)
	}
	if !hasLabel {
		missing = append(missing, FieldRiskLevel)
	}
	if !hasReason {
		missing = append(missing, FieldReasoning)
	}
	if len(missing) > 0 {
		return nil, &IncompleteResponseError{Missing: missing}
	}

	result := &AnalysisResult{
		ModelRiskLabel: strings.TrimSpace(asText(labelRaw)),
		Reasoning:      strings.TrimSpace(asText(reasonRaw)),
		AnalyzedAt:     time.Now(),
	}

	score, warning := coerceScore(scoreRaw)
	if warning != "" {
		result.Degraded = true
		result.Warnings = append(result.Warnings, warning)
	}
	result.SimilarityScore = score
	result.RiskLevel, result.RecommendedAction = Classify(score)

	if idRaw, ok := lookup(fields, FieldMatchingProductID); ok {
		result.MatchingItemID = normalizeID(asText(idRaw))
	}

	return result, nil
}

// decodeObject parses a JSON object and folds its keys to lower case. When
// several keys fold to the same name, a non-null value beats null, then an
// exact lower-case key beats other spellings, then the earliest key wins.
func decodeObject(candidate string) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, errors.New("expected a JSON object, got null")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	fields := make(map[string]json.RawMessage)
	ranks := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}

		name := strings.ToLower(strings.TrimSpace(key))
		rank := 0
		if !isNull(value) {
			rank += 2
		}
		if key == name {
			rank++
		}
		if prev, seen := ranks[name]; seen && prev >= rank {
			continue
		}
		fields[name] = value
		ranks[name] = rank
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// lookup returns the first present, non-null value among names
func lookup(fields map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if isNull(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

// asText renders a JSON value as plain text, unquoting strings
func asText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// coerceScore converts a number or numeric-looking string into a score in
// [0,100]. A non-empty warning means the value had to be defaulted or clamped.
func coerceScore(raw json.RawMessage) (int, string) {
	text := strings.TrimSpace(asText(raw))
	text = strings.TrimSpace(strings.TrimSuffix(text, "%"))

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return MinScore, fmt.Sprintf("similarity score %q is not numeric; defaulted to %d", asText(raw), MinScore)
	}

	f = math.Round(f)
	switch {
	case f < MinScore:
		return MinScore, fmt.Sprintf("similarity score %s is below %d; clamped", text, MinScore)
	case f > MaxScore:
		return MaxScore, fmt.Sprintf("similarity score %s is above %d; clamped", text, MaxScore)
	}
	return int(f), ""
}

// normalizeID drops the placeholders models use for "no match"
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	switch strings.ToLower(id) {
	case "", "null", "none", "n/a", "na", "nil":
		return ""
	}
	return id
}

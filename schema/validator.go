package judgmentschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed judgment.schema.json
var judgmentSchemaJSON string

// JudgmentItem is one validated relevance verdict from the classifier.
type JudgmentItem struct {
	Score                int      `json:"score"`
	Reason               string   `json:"reason"`
	Type                 string   `json:"type,omitempty"`
	ClinicalSignificance string   `json:"clinical_significance,omitempty"`
	RegulatoryImpact     string   `json:"regulatory_impact,omitempty"`
	MarketImpact         string   `json:"market_impact,omitempty"`
	Summary              string   `json:"summary"`
	MentionedKeywords    []string `json:"mentioned_keywords,omitempty"`
}

type judgmentBatch struct {
	Judgments []JudgmentItem `json:"judgments"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateJudgmentBatch parses and schema-validates a classifier response.
// Any shape violation is an error; a syntactically fine but empty batch is
// also rejected so "no output" can never masquerade as success.
func ValidateJudgmentBatch(payload json.RawMessage) ([]JudgmentItem, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode judgment JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize judgment JSON: %w", err)
	}

	var batch judgmentBatch
	if err := json.Unmarshal(normalized, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal judgments: %w", err)
	}

	if len(batch.Judgments) == 0 {
		return nil, fmt.Errorf("judgment batch is empty")
	}
	for i := range batch.Judgments {
		if strings.TrimSpace(batch.Judgments[i].Reason) == "" {
			return nil, fmt.Errorf("judgments[%d].reason must not be blank", i)
		}
	}

	return batch.Judgments, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("judgment_batch.schema.json", strings.NewReader(judgmentSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("judgment_batch.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

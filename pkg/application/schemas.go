package application

import (
	"github.com/verdictlabs/verdict/pkg/reasoning"
)

// JSON schemas every reasoning answer is validated against before the
// pipeline accepts it. Validation failures are typed faults; nothing is
// silently coerced.

const classificationSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["level", "dimension", "decision_mode", "confidence", "follow_up_questions"],
  "properties": {
    "level": { "type": "string", "enum": ["strategy", "product", "feature", "operating"] },
    "dimension": { "type": "string" },
    "secondary_dimensions": { "type": "array", "items": { "type": "string" }, "maxItems": 2 },
    "decision_mode": { "type": "string", "enum": ["choose", "diagnose", "plan"] },
    "context_tags": { "type": "array", "items": { "type": "string" } },
    "risk_flags": { "type": "array", "items": { "type": "string" } },
    "confidence": { "type": "number", "minimum": 0, "maximum": 1 },
    "follow_up_questions": { "type": "array", "items": { "type": "string" }, "minItems": 3, "maxItems": 6 }
  }
}`

const perspectiveSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["stance", "summary", "disconfirming_tests", "confidence"],
  "properties": {
    "stance": { "type": "string", "enum": ["support", "oppose", "mixed", "unclear"] },
    "summary": { "type": "string", "minLength": 1 },
    "supporting_points": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "text": { "type": "string" },
          "atom_ids": { "type": "array", "items": { "type": "string" } }
        }
      }
    },
    "counter_points": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "text": { "type": "string" },
          "atom_ids": { "type": "array", "items": { "type": "string" } }
        }
      }
    },
    "assumptions": { "type": "array", "items": { "type": "string" } },
    "disconfirming_tests": { "type": "array", "items": { "type": "string" }, "minItems": 1 },
    "open_questions": { "type": "array", "items": { "type": "string" } },
    "examples_in_pack": { "type": "array", "items": { "type": "string" } },
    "confidence": { "type": "string", "enum": ["high", "medium", "low"] }
  }
}`

const synthesisSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["recommended_choice", "confidence_label", "confidence_score", "reasons", "escape_hatch", "next_steps"],
  "properties": {
    "recommended_choice": { "type": "string", "minLength": 1, "maxLength": 300 },
    "confidence_label": { "type": "string" },
    "confidence_score": { "type": "number", "minimum": 0, "maximum": 1 },
    "reasons": { "type": "array", "items": { "type": "string", "maxLength": 400 }, "minItems": 1, "maxItems": 5 },
    "trade_offs": { "type": "array", "items": { "type": "string", "maxLength": 400 }, "maxItems": 4 },
    "risks": { "type": "array", "items": { "type": "string", "maxLength": 400 }, "maxItems": 4 },
    "escape_hatch": {
      "type": "object",
      "required": ["condition", "action"],
      "properties": {
        "condition": { "type": "string", "minLength": 1 },
        "action": { "type": "string", "minLength": 1 }
      }
    },
    "next_steps": { "type": "array", "items": { "type": "string", "maxLength": 400 }, "maxItems": 5 }
  }
}`

const patternSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["principle", "mechanism"],
  "properties": {
    "principle": { "type": "string", "minLength": 1 },
    "mechanism": { "type": "string", "minLength": 1 },
    "worked": {
      "type": "array",
      "maxItems": 3,
      "items": {
        "type": "object",
        "required": ["atom_id", "summary"],
        "properties": {
          "atom_id": { "type": "string" },
          "summary": { "type": "string" },
          "timeframe": { "type": "string" }
        }
      }
    },
    "failed": {
      "type": "array",
      "maxItems": 3,
      "items": {
        "type": "object",
        "required": ["atom_id", "summary"],
        "properties": {
          "atom_id": { "type": "string" },
          "summary": { "type": "string" },
          "timeframe": { "type": "string" }
        }
      }
    }
  }
}`

var (
	classificationSchema = reasoning.MustCompileSchema(classificationSchemaJSON)
	perspectiveSchema    = reasoning.MustCompileSchema(perspectiveSchemaJSON)
	synthesisSchema      = reasoning.MustCompileSchema(synthesisSchemaJSON)
	patternSchema        = reasoning.MustCompileSchema(patternSchemaJSON)
)

// internal/api/validation.go
package api

import (
	"strings"

	"agrischemes/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Request-shape schemas. Business rules (ranges, transitions, freezes)
// are enforced in the core packages; these only reject malformed payloads
// before they reach it.
const schemePayloadSchema = `{
  "type": "object",
  "required": ["name", "category", "provider", "benefit"],
  "additionalProperties": false,
  "definitions": {
    "range": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "min": {"type": "number"},
        "max": {"type": "number"}
      }
    },
    "stringList": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  },
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "category": {"type": "string", "minLength": 1},
    "provider": {"type": "string", "minLength": 1},
    "priority": {"type": "integer", "minimum": 1, "maximum": 10},
    "active": {"type": "boolean"},
    "benefit": {
      "type": "object",
      "required": ["type"],
      "additionalProperties": false,
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "amount": {"type": "number", "minimum": 0},
        "percentage": {"type": "number", "minimum": 0},
        "description": {"type": "string"}
      }
    },
    "eligibilityRules": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "farmSize": {"$ref": "#/definitions/range"},
        "annualIncome": {"$ref": "#/definitions/range"},
        "age": {"$ref": "#/definitions/range"},
        "categories": {"$ref": "#/definitions/stringList"},
        "crops": {"$ref": "#/definitions/stringList"},
        "states": {"$ref": "#/definitions/stringList"},
        "criteria": {"$ref": "#/definitions/stringList"}
      }
    },
    "requiredDocuments": {"$ref": "#/definitions/stringList"},
    "processSteps": {"$ref": "#/definitions/stringList"},
    "createdAt": {"type": "string"},
    "updatedAt": {"type": "string"}
  }
}`

const draftPayloadSchema = `{
  "type": "object",
  "required": ["applicantId", "schemeId"],
  "properties": {
    "applicantId": {"type": "string", "minLength": 1},
    "schemeId": {"type": "string", "minLength": 1},
    "snapshot": {"type": "object"}
  }
}`

const transitionPayloadSchema = `{
  "type": "object",
  "required": ["target"],
  "properties": {
    "target": {"type": "string", "minLength": 1},
    "approvedAmount": {"type": "number", "minimum": 0},
    "rejectionReason": {"type": "string"},
    "reviewNotes": {"type": "string"},
    "disbursement": {"type": "object"}
  }
}`

const profilePayloadSchema = `{
  "type": "object",
  "required": ["userId", "farmSize", "category", "cropTypes", "state"],
  "properties": {
    "userId": {"type": "string", "minLength": 1},
    "farmSize": {"type": "number", "minimum": 0, "exclusiveMinimum": true},
    "category": {"type": "string", "minLength": 1},
    "cropTypes": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "state": {"type": "string", "minLength": 1},
    "annualIncome": {"type": "number", "minimum": 0},
    "dateOfBirth": {"type": "string"}
  }
}`

const checkPayloadSchema = `{
  "type": "object",
  "required": ["profile", "schemeId"],
  "properties": {
    "profile": {"type": "object"},
    "schemeId": {"type": "string", "minLength": 1}
  }
}`

// validatePayload checks a raw request body against a JSON schema and
// returns an INVALID_INPUT error listing every violation.
func validatePayload(body []byte, schema string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON: " + err.Error())
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return errors.NewInvalidInputError("validation failed: " + strings.Join(violations, "; "))
}

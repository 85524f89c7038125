package grades

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema describes a ScoreRecord: an object of category objects whose
// values are scalar cells.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "additionalProperties": {
      "type": ["number", "string", "null", "boolean"]
    }
  }
}`

var recordValidator = mustSchema(recordSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("grades: compiling record schema: %v", err))
	}
	return s
}

// ParseRecord decodes a JSON score record. Structural violations return an
// *InvalidInputError; blank or non-numeric cells decode as invalid scores.
func ParseRecord(data []byte) (ScoreRecord, error) {
	result, err := recordValidator.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("score record is not valid JSON: %v", err)}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		field := ""
		for _, e := range result.Errors() {
			if field == "" {
				field = e.Field()
			}
			msgs = append(msgs, e.Description())
		}
		return nil, &InvalidInputError{Field: field, Reason: strings.Join(msgs, "; ")}
	}

	var rec ScoreRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &InvalidInputError{Reason: err.Error()}
	}
	if rec == nil {
		rec = ScoreRecord{}
	}
	return rec, nil
}

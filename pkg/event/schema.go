package event

import "github.com/xeipuuv/gojsonschema"

// schemaJSON describes both wire variants. Unknown extra fields are allowed.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["event"],
  "properties": {
    "event": {"type": "string"}
  },
  "oneOf": [
    {
      "required": ["event", "usernames"],
      "properties": {
        "event": {"enum": ["update-users"]},
        "usernames": {"type": "array", "items": {"type": "string"}}
      }
    },
    {
      "required": ["event", "username", "message"],
      "properties": {
        "event": {"enum": ["send-message"]},
        "username": {"type": "string"},
        "message": {"type": "string"}
      }
    }
  ]
}`

var wireSchema = mustSchema(schemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("event: invalid wire schema: " + err.Error())
	}
	return s
}

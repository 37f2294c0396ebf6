package brainus

import (
	"encoding/json"
	"fmt"

	"github.com/swaggest/jsonschema-go"
)

// QueryToolName is the suggested function name when Query is exposed as an LLM tool
const QueryToolName = "brainus_query"

// QueryRequestSchema returns the JSON Schema of QueryRequest as a generic map,
// suitable for registering Query as a function tool with an LLM provider.
func QueryRequestSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{}

	schema, err := reflector.Reflect(QueryRequest{}, jsonschema.InlineRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect query request schema: %w", err)
	}

	jsonBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(jsonBytes, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema JSON to map: %w", err)
	}

	return schemaMap, nil
}

// QueryRequestFromToolArguments decodes the JSON arguments of a tool call
// produced against QueryRequestSchema and validates them
func QueryRequestFromToolArguments(arguments string) (QueryRequest, error) {
	var req QueryRequest
	if err := json.Unmarshal([]byte(arguments), &req); err != nil {
		return QueryRequest{}, NewError(fmt.Sprintf("invalid tool arguments: %v", err))
	}
	if err := req.Validate(); err != nil {
		return QueryRequest{}, err
	}
	return req, nil
}

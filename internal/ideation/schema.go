package ideation

import (
	"encoding/json"
	"strings"
)

// ParsedCategories is a category payload that passed schema validation.
type ParsedCategories []Category

// ParsedOptions is an option payload that passed schema validation.
type ParsedOptions []string

// ParseCategories validates raw as a non-empty array of category objects.
// The first violation is reported as a *ValidationError naming the field
// and element index.
func ParseCategories(raw json.RawMessage) (ParsedCategories, error) {
	items, err := decodeArray(raw, "categories")
	if err != nil {
		return nil, err
	}

	out := make(ParsedCategories, 0, len(items))
	for i, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			return nil, elementError("categories", i, "must be an object")
		}

		name, ok := nonEmptyString(obj["name"])
		if !ok {
			return nil, elementError("name", i, "must be a non-empty string")
		}
		description, ok := nonEmptyString(obj["description"])
		if !ok {
			return nil, elementError("description", i, "must be a non-empty string")
		}
		examples, ok := nonEmptyStrings(obj["example_options"])
		if !ok {
			return nil, elementError("example_options", i, "must be a non-empty array of non-empty strings")
		}

		out = append(out, Category{Name: name, Description: description, ExampleOptions: examples})
	}
	return out, nil
}

// ParseOptions validates raw as a non-empty array of non-empty strings.
func ParseOptions(raw json.RawMessage) (ParsedOptions, error) {
	items, err := decodeArray(raw, "options")
	if err != nil {
		return nil, err
	}

	out := make(ParsedOptions, 0, len(items))
	for i, item := range items {
		s, ok := nonEmptyString(item)
		if !ok {
			return nil, elementError("options", i, "must be a non-empty string")
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeArray(raw json.RawMessage, field string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, fieldError(field, "must be a JSON array")
	}
	if len(items) == 0 {
		return nil, fieldError(field, "must not be empty")
	}
	return items, nil
}

func nonEmptyString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func nonEmptyStrings(raw json.RawMessage) ([]string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := nonEmptyString(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

package tools

import (
	"encoding/json"
	"fmt"
)

// intArg reads an optional integer argument. JSON numbers arrive as float64;
// integers set programmatically are accepted as well.
func intArg(args map[string]interface{}, name string) (int, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true, nil
	case int:
		return v, true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number", name)
		}
		return int(n), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
}

// stringArg reads an optional string argument.
func stringArg(args map[string]interface{}, name string) (string, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("%s must be a string", name)
	}
	return s, true, nil
}

// requiredStringArg reads a mandatory non-empty string argument.
func requiredStringArg(args map[string]interface{}, name string) (string, error) {
	s, ok, err := stringArg(args, name)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

package commands

import (
	"encoding/json"
	"fmt"
)

// printJSON pretty-prints a raw JSON-RPC result to stdout.
func printJSON(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}

	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	fmt.Println(string(pretty))
	return nil
}

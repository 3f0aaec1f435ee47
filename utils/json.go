package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSONFile writes input as indented JSON, or to stdout when path is empty or "-".
func WriteJSONFile[T any](path string, input T) error {
	jsonData, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = fmt.Fprintln(os.Stdout, string(jsonData))
		return err
	}
	return os.WriteFile(path, jsonData, 0o644)
}

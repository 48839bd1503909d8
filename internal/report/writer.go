package report

import (
	"encoding/json"
	"fmt"
	"os"
)

// Write renders the report as indented JSON. A path of "-" writes to stdout.
func Write(outputPath string, r *Report) error {
	if r.FlaggedProviders == nil {
		r.FlaggedProviders = []FlaggedProvider{}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if outputPath == "-" {
		_, err = os.Stdout.Write(data)
		fmt.Fprintln(os.Stdout)
		return err
	}

	return os.WriteFile(outputPath, data, 0o644)
}

package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWrite_FileRoundTrip(t *testing.T) {
	rep := Assemble(nil, testCatalog(t), time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "fraud_signals.json")

	if err := Write(path, rep); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["tool_version"] != ToolVersion {
		t.Errorf("tool_version = %v", decoded["tool_version"])
	}
	if _, ok := decoded["flagged_providers"].([]any); !ok {
		t.Errorf("flagged_providers should be an empty array, got %T", decoded["flagged_providers"])
	}
}

package jack

import (
	_ "embed"
	"encoding/json"
	"log"
)

//go:embed stdlib.json
var content string

var StandardLibraryABI = map[string]Class{}

func init() {
	if err := json.Unmarshal([]byte(content), &StandardLibraryABI); err != nil {
		log.Fatalf("failed to unmarshal embedded 'stdlib.json': %v", err)
	}
}

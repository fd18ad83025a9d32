package features

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Features []analysis.FeatureDefinition `yaml:"features"`
}

// LoadCatalog reads the feature catalogue from path, or the embedded default
// when path is empty.
func LoadCatalog(path string) ([]analysis.FeatureDefinition, error) {
	raw := defaultCatalog
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read feature catalog: %w", err)
		}
		raw = b
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) ([]analysis.FeatureDefinition, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse feature catalog: %w", err)
	}
	seen := map[string]bool{}
	for i := range f.Features {
		d := &f.Features[i]
		d.Key = strings.TrimSpace(d.Key)
		d.Name = strings.TrimSpace(d.Name)
		if d.Key == "" || d.Name == "" {
			return nil, fmt.Errorf("feature catalog entry %d: key and name are required", i)
		}
		if seen[d.Key] {
			return nil, fmt.Errorf("feature catalog: duplicate key %q", d.Key)
		}
		seen[d.Key] = true
		if d.Kind == "" {
			d.Kind = analysis.KindText
		}
	}
	if len(f.Features) == 0 {
		return nil, fmt.Errorf("feature catalog is empty")
	}
	return f.Features, nil
}

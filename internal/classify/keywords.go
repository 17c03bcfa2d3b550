package classify

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// KeywordSet is a versioned mapping from canonical institution name to the
// aliases that identify it inside a counterparty name.
type KeywordSet struct {
	Version      int                 `yaml:"version"`
	Institutions map[string][]string `yaml:"institutions"`
}

// DefaultKeywordSet returns the built-in keyword set.
func DefaultKeywordSet() (*KeywordSet, error) {
	return ParseKeywordSet(defaultKeywordsYAML)
}

// LoadKeywordSet reads a keyword set from a YAML file.
func LoadKeywordSet(path string) (*KeywordSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword file '%s': %w", path, err)
	}
	return ParseKeywordSet(data)
}

// ParseKeywordSet decodes and validates YAML keyword data.
func ParseKeywordSet(data []byte) (*KeywordSet, error) {
	var ks KeywordSet
	if err := yaml.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("failed to decode keyword set: %w: %w", ports.ErrConfigurationError, err)
	}
	if len(ks.Institutions) == 0 {
		return nil, fmt.Errorf("keyword set defines no institutions: %w", ports.ErrConfigurationError)
	}
	return &ks, nil
}

// NewKeywordSet builds a set where every keyword is its own canonical name.
func NewKeywordSet(keywords ...string) *KeywordSet {
	ks := &KeywordSet{Version: 1, Institutions: make(map[string][]string, len(keywords))}
	for _, k := range keywords {
		ks.Institutions[k] = []string{k}
	}
	return ks
}

// aliases returns every normalized alias mapped to its canonical name. The
// canonical name is always an alias of itself. When two institutions share
// an alias the alphabetically first canonical name wins.
func (ks *KeywordSet) aliases() map[string]string {
	canon := make([]string, 0, len(ks.Institutions))
	for name := range ks.Institutions {
		canon = append(canon, name)
	}
	sort.Strings(canon)

	out := make(map[string]string)
	for _, name := range canon {
		for _, a := range append([]string{name}, ks.Institutions[name]...) {
			a = domain.NormalizeName(a)
			if a == "" {
				continue
			}
			if _, taken := out[a]; !taken {
				out[a] = domain.NormalizeName(name)
			}
		}
	}
	return out
}

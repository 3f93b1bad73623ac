package simulator

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed scripts.yaml
var scriptsRaw []byte

// DefaultScripts returns the bundled caller scripts.
func DefaultScripts() ([]Script, error) {
	return ParseScripts(scriptsRaw)
}

func ParseScripts(raw []byte) ([]Script, error) {
	var scripts []Script
	if err := yaml.Unmarshal(raw, &scripts); err != nil {
		return nil, fmt.Errorf("simulator: decode scripts: %w", err)
	}
	for i, s := range scripts {
		if s.Name == "" || len(s.Lines) == 0 {
			return nil, fmt.Errorf("simulator: script %d needs a name and at least one line", i)
		}
	}
	return scripts, nil
}

// Find returns the script with the given name.
func Find(scripts []Script, name string) (Script, bool) {
	for _, s := range scripts {
		if s.Name == name {
			return s, true
		}
	}
	return Script{}, false
}

package connector

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stateforward/go-contract/pkg/cif3"
	"github.com/stateforward/go-contract/pkg/data"
	"github.com/stateforward/go-contract/pkg/requirement"
	"github.com/stateforward/go-contract/pkg/telemetry"
)

// Config describes one translation run.
type Config struct {
	// Inputs are the principal automata, or a single composed automaton.
	Inputs        []string `yaml:"inputs,omitempty"`
	Composition   string   `yaml:"composition,omitempty"`
	Orchestration string   `yaml:"orchestration,omitempty"`
	// ExportAutomata also saves the composition and orchestration in the
	// native format, next to their plant files.
	ExportAutomata bool   `yaml:"exportAutomata,omitempty"`
	UrgentPolicy   string `yaml:"urgentPolicy,omitempty"`
	// Requirement is the agreement the orchestration keeps: "strong" or
	// "weak". The composition is pruned of labels breaking it.
	Requirement string `yaml:"requirement,omitempty"`
	LogLevel    string `yaml:"logLevel,omitempty"`
	Trace       string `yaml:"trace,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Composition:   "Composition" + cif3.Extension,
		Orchestration: "Orchestration" + cif3.Extension,
		UrgentPolicy:  cif3.UrgentControllable.String(),
		Requirement:   requirement.Strong,
		LogLevel:      "info",
		Trace:         string(telemetry.ExporterNone),
	}
}

// LoadConfig reads a yaml configuration on top of DefaultConfig. Unknown
// fields are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, &IOError{Op: "read config", Path: path, Err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return cfg, nil
}

// Validate checks the configuration before any file is touched.
func (cfg Config) Validate() error {
	if len(cfg.Inputs) == 0 {
		return ErrNoInputs
	}
	for _, input := range cfg.Inputs {
		if filepath.Ext(input) != data.Extension {
			return fmt.Errorf("input %s: expected a %s file", input, data.Extension)
		}
	}
	if cfg.Composition == "" || cfg.Orchestration == "" {
		return errors.New("composition and orchestration outputs are required")
	}
	if cfg.Composition == cfg.Orchestration {
		return fmt.Errorf("composition and orchestration both write %s", cfg.Composition)
	}
	if _, err := cif3.ParseUrgentPolicy(cfg.UrgentPolicy); err != nil {
		return err
	}
	if _, err := requirement.Parse(cfg.Requirement); err != nil {
		return err
	}
	return nil
}

// exported returns the native format path that goes with a plant file.
func exported(path string) string {
	return path[:len(path)-len(filepath.Ext(path))] + data.Extension
}

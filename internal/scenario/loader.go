package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/dqtprobe/internal/outcome"
	"gopkg.in/yaml.v3"
)

type scenarioDoc struct {
	Name  string    `yaml:"name"`
	Steps []stepDoc `yaml:"steps"`
}

type stepDoc struct {
	Name            string         `yaml:"name"`
	Kind            string         `yaml:"kind"`
	Action          string         `yaml:"action"`
	With            map[string]any `yaml:"with"`
	Expect          *expectDoc     `yaml:"expect"`
	TolerateFailure bool           `yaml:"tolerate_failure"`
}

type expectDoc struct {
	Success bool        `yaml:"success"`
	Failure *failureDoc `yaml:"failure"`
}

type failureDoc struct {
	Code         int    `yaml:"code"`
	TextContains string `yaml:"text_contains"`
}

// LoadFromFile loads a scenario definition from a YAML file.
func LoadFromFile(path string) (Scenario, error) {
	clean := filepath.Clean(path)
	// #nosec G304 -- path is the operator-provided scenario file
	f, err := os.Open(clean)
	if err != nil {
		return Scenario{}, err
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes a scenario definition from YAML. Each step names a registered
// action; its parameters are decoded from the step's "with" mapping, and the
// expected outcome defaults to success when omitted.
func Load(r io.Reader) (Scenario, error) {
	dec := yaml.NewDecoder(r)
	var doc scenarioDoc
	if err := dec.Decode(&doc); err != nil {
		return Scenario{}, fmt.Errorf("failed to decode scenario YAML: %w", err)
	}
	if doc.Name == "" {
		return Scenario{}, fmt.Errorf("scenario has no name")
	}
	if len(doc.Steps) == 0 {
		return Scenario{}, fmt.Errorf("scenario %q has no steps", doc.Name)
	}

	sc := Scenario{Name: doc.Name, Steps: make([]Step, 0, len(doc.Steps))}
	for i, sd := range doc.Steps {
		step, err := buildStep(sd)
		if err != nil {
			return Scenario{}, fmt.Errorf("step %d (%s): %w", i+1, sd.Name, err)
		}
		sc.Steps = append(sc.Steps, step)
	}
	return sc, nil
}

func buildStep(sd stepDoc) (Step, error) {
	if sd.Name == "" {
		return Step{}, fmt.Errorf("step has no name")
	}
	entry, ok := actionRegistry[sd.Action]
	if !ok {
		return Step{}, fmt.Errorf("unknown action %q", sd.Action)
	}
	if sd.Kind != "" && Kind(sd.Kind) != entry.kind {
		return Step{}, fmt.Errorf("action %q is %s, not %s", sd.Action, entry.kind, sd.Kind)
	}

	act := entry.factory()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      act,
		ErrorUnused: true,
	})
	if err != nil {
		return Step{}, err
	}
	params := sd.With
	if params == nil {
		params = map[string]any{}
	}
	if err := dec.Decode(params); err != nil {
		return Step{}, fmt.Errorf("invalid parameters for action %q: %w", sd.Action, err)
	}

	expect, err := buildExpect(sd.Expect)
	if err != nil {
		return Step{}, err
	}

	return Step{
		Name:     sd.Name,
		Kind:     entry.kind,
		Action:   act,
		Expect:   expect,
		Tolerate: sd.TolerateFailure,
	}, nil
}

func buildExpect(ed *expectDoc) (outcome.Expected, error) {
	if ed == nil {
		return outcome.ExpectSuccess(), nil
	}
	if ed.Failure != nil {
		if ed.Success {
			return outcome.Expected{}, fmt.Errorf("expect declares both success and failure")
		}
		if ed.Failure.Code == 0 && ed.Failure.TextContains == "" {
			return outcome.Expected{}, fmt.Errorf("expect.failure needs a code or text_contains")
		}
		return outcome.ExpectFailure(outcome.FailurePattern{
			Code:         ed.Failure.Code,
			TextContains: ed.Failure.TextContains,
		}), nil
	}
	return outcome.ExpectSuccess(), nil
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario replays a sequence of actions against an empty state and
// asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// IDPrefix seeds the sequential generator used by create steps.
	// Defaults to "id", giving "id-1", "id-2", ...
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Setup steps establish initial state. They must succeed and may not
	// carry an expect clause.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps is the main flow.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one dispatched action. Exactly one of Action, Document and
// Create is set.
type Step struct {
	// Action is a raw action object in wire form:
	// {type, entityKey, entityId, relationshipKey, relationshipId, data,
	// relationshipObject, metaKey, value}.
	Action map[string]any `yaml:"action,omitempty"`

	// Document is a path to a JSON or YAML JSON:API document, loaded with
	// LOAD_JSON_API_ENTITY_DATA. Relative paths resolve against the
	// scenario file's directory.
	Document string `yaml:"document,omitempty"`

	// Create builds a resource with a generated id and loads it.
	Create *CreateStep `yaml:"create,omitempty"`

	// Expect, when set, requires the step to fail with the given error.
	// Without it the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// CreateStep describes a client-created resource.
type CreateStep struct {
	Entity     string         `yaml:"entity"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// ExpectClause specifies expected step failure.
type ExpectClause struct {
	// Error is a validation error code such as MISSING_ID.
	Error string `yaml:"error"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Action matches a trace event by full type or base name
	// (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of applied occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Key is the entity or type key passed to the accessor.
	Key string `yaml:"key,omitempty"`

	// ID is the entity id (entity, entity_meta).
	ID string `yaml:"id,omitempty"`

	// IDs restricts entities to the listed ids; nil means all.
	IDs []string `yaml:"ids,omitempty"`

	// Expand is the relationship expansion depth (entity).
	Expand int `yaml:"expand,omitempty"`

	// MetaKey is the meta field read (entities_meta, entity_meta).
	MetaKey string `yaml:"meta_key,omitempty"`

	// Absent requires the entity or meta value to be missing.
	Absent bool `yaml:"absent,omitempty"`

	// Expect is the expected value. For entity it is a subset of the
	// view object; for entities, recently_loaded and type_keys it is the
	// ordered id or key list; for meta assertions it is the value.
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertEntity         = "entity"
	AssertEntities       = "entities"
	AssertEntitiesMeta   = "entities_meta"
	AssertEntityMeta     = "entity_meta"
	AssertTypeKeys       = "type_keys"
	AssertRecentlyLoaded = "recently_loaded"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving document paths relative to
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve document paths BEFORE validation
	resolve := func(steps []Step) {
		for i := range steps {
			doc := steps[i].Document
			if doc != "" && !filepath.IsAbs(doc) && baseDir != "" {
				steps[i].Document = filepath.Join(baseDir, doc)
			}
		}
	}
	resolve(scenario.Setup)
	resolve(scenario.Steps)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(fmt.Sprintf("steps[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil && step.Expect.Error == "" {
			return fmt.Errorf("steps[%d].expect: error is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(where string, step Step) error {
	set := 0
	if step.Action != nil {
		set++
	}
	if step.Document != "" {
		set++
	}
	if step.Create != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%s: exactly one of action, document or create is required", where)
	}

	if step.Document != "" {
		if _, err := os.Stat(step.Document); os.IsNotExist(err) {
			return fmt.Errorf("%s: document not found: %s", where, step.Document)
		}
	}
	if step.Create != nil && step.Create.Entity == "" {
		return fmt.Errorf("%s.create: entity is required", where)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	require := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, what, a.Type)
		}
		return nil
	}
	expectOrAbsent := func() error {
		if a.Absent && a.Expect != nil {
			return fmt.Errorf("assertions[%d]: expect and absent are mutually exclusive", index)
		}
		return require(a.Absent || a.Expect != nil, "expect or absent")
	}
	expectList := func() error {
		if _, ok := a.Expect.([]any); !ok {
			return fmt.Errorf("assertions[%d]: expect must be a list for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertTraceContains:
		return require(a.Action != "", "action")
	case AssertTraceOrder:
		return require(len(a.Actions) > 0, "actions list")
	case AssertTraceCount:
		if err := require(a.Action != "", "action"); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertEntity:
		if err := require(a.Key != "" && a.ID != "", "key and id"); err != nil {
			return err
		}
		if err := expectOrAbsent(); err != nil {
			return err
		}
		if _, ok := a.Expect.(map[string]any); a.Expect != nil && !ok {
			return fmt.Errorf("assertions[%d]: expect must be a map for entity", index)
		}
	case AssertEntities, AssertRecentlyLoaded:
		if err := require(a.Key != "", "key"); err != nil {
			return err
		}
		return expectList()
	case AssertEntitiesMeta:
		if err := require(a.Key != "" && a.MetaKey != "", "key and meta_key"); err != nil {
			return err
		}
		return expectOrAbsent()
	case AssertEntityMeta:
		if err := require(a.Key != "" && a.ID != "" && a.MetaKey != "", "key, id and meta_key"); err != nil {
			return err
		}
		return expectOrAbsent()
	case AssertTypeKeys:
		return expectList()
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

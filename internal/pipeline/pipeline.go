// Package pipeline loads transform pipelines from YAML or JSON definition
// files and turns them into runnable transform.Pipelines.
//
// A definition looks like:
//
//	metadata:
//	  name: clean-whisks
//	steps:
//	  - step_id: gap-fill
//	    transform_name: group
//	    parameters: {max_spacing: 3}
//	  - step_id: mask
//	    transform_name: boolean
//	    parameters: {operation: AND_NOT, other: artifacts}
//
// JSON is accepted too, since it is valid YAML.
package pipeline

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/spans/internal/boolean"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/series"
	"github.com/hpungsan/spans/internal/transform"
)

// Transform names with parameters understood by Build.
const (
	GroupTransform   = "group"
	BooleanTransform = "boolean"
)

// Definition is a parsed pipeline file.
type Definition struct {
	Metadata Metadata `yaml:"metadata" json:"metadata"`
	Steps    []Step   `yaml:"steps" json:"steps"`
}

// Metadata describes a pipeline. All fields are optional.
type Metadata struct {
	Name        string `yaml:"name" json:"name,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
	Version     string `yaml:"version" json:"version,omitempty"`
}

// Step is one entry of a definition.
type Step struct {
	StepID        string    `yaml:"step_id" json:"step_id"`
	TransformName string    `yaml:"transform_name" json:"transform_name"`
	Parameters    yaml.Node `yaml:"parameters" json:"-"`
}

// hasParameters reports whether the step carries a non-empty parameters map.
func (s Step) hasParameters() bool {
	n := s.Parameters
	if n.Kind == 0 {
		return false
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return false
	}
	return !(n.Kind == yaml.MappingNode && len(n.Content) == 0)
}

// Resolver returns the stored series a boolean step names as its operand.
type Resolver func(name string) (*series.Set, error)

// MaxDefinitionBytes caps the size of a definition read by Load.
const MaxDefinitionBytes = 1 << 20

// Load reads and parses a definition from r.
func Load(r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDefinitionBytes+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if len(data) > MaxDefinitionBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("pipeline definition exceeds %d bytes", MaxDefinitionBytes))
	}
	return Parse(data)
}

// Parse decodes a definition. Unknown top-level or step fields are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewInvalidRequest("pipeline definition is empty")
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid pipeline definition: %v", err))
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks that the definition has steps, that every step names a
// transform, and that step IDs are unique. Missing IDs are filled in from
// the step position.
func (d *Definition) Validate() error {
	if len(d.Steps) == 0 {
		return errors.NewInvalidRequest("pipeline has no steps")
	}
	seen := make(map[string]bool, len(d.Steps))
	for i := range d.Steps {
		st := &d.Steps[i]
		st.StepID = strings.TrimSpace(st.StepID)
		st.TransformName = strings.TrimSpace(st.TransformName)
		if st.StepID == "" {
			st.StepID = fmt.Sprintf("%d", i+1)
		}
		if st.TransformName == "" {
			return errors.NewInvalidRequest(fmt.Sprintf("step %s: transform_name is required", st.StepID))
		}
		if seen[st.StepID] {
			return errors.NewDuplicateName(st.StepID)
		}
		seen[st.StepID] = true
	}
	return nil
}

// Build turns def into a pipeline. base supplies the transforms a step may
// name without parameters; it is not modified. Steps with parameters are
// registered in the returned dispatcher, which also holds everything in base.
// resolve may be nil when no step refers to a stored series.
func Build(def *Definition, base *transform.Dispatcher, resolve Resolver) (transform.Pipeline, *transform.Dispatcher, error) {
	if def == nil {
		return transform.Pipeline{}, nil, errors.NewInvalidRequest("pipeline definition is required")
	}
	if err := def.Validate(); err != nil {
		return transform.Pipeline{}, nil, err
	}

	d := transform.NewDispatcher()
	if base != nil {
		for _, name := range base.Names() {
			t, _ := base.Lookup(name)
			if err := d.Register(name, t); err != nil {
				return transform.Pipeline{}, nil, err
			}
		}
	}

	p := transform.Pipeline{Name: def.Metadata.Name}
	for _, st := range def.Steps {
		name, err := buildStep(d, st, resolve)
		if err != nil {
			return transform.Pipeline{}, nil, err
		}
		p.Steps = append(p.Steps, transform.Step{ID: st.StepID, Transform: name})
	}
	return p, d, nil
}

// buildStep registers the transform for st when it needs one and returns the
// dispatcher name the step runs.
func buildStep(d *transform.Dispatcher, st Step, resolve Resolver) (string, error) {
	switch st.TransformName {
	case GroupTransform:
		if !st.hasParameters() {
			if _, ok := d.Lookup(GroupTransform); ok {
				return GroupTransform, nil
			}
		}
		t, err := groupStep(st)
		if err != nil {
			return "", err
		}
		return registerStep(d, st, t)
	case BooleanTransform:
		t, err := booleanStep(st, resolve)
		if err != nil {
			return "", err
		}
		return registerStep(d, st, t)
	}

	if st.hasParameters() {
		return "", stepErr(st, fmt.Sprintf("transform %q takes no parameters", st.TransformName))
	}
	if _, ok := d.Lookup(st.TransformName); !ok {
		return "", errors.NewUnknownTransform(st.TransformName)
	}
	return st.TransformName, nil
}

func registerStep(d *transform.Dispatcher, st Step, t transform.Transform) (string, error) {
	name := "step:" + st.StepID
	if err := d.Register(name, t); err != nil {
		return "", err
	}
	return name, nil
}

type groupParams struct {
	MaxSpacing *int64 `yaml:"max_spacing"`
}

func groupStep(st Step) (transform.Transform, error) {
	var gp groupParams
	if err := decodeParams(st, &gp, "max_spacing"); err != nil {
		return nil, err
	}
	spacing := transform.DefaultMaxSpacing
	if gp.MaxSpacing != nil {
		spacing = *gp.MaxSpacing
	}
	if spacing < 0 {
		return nil, stepErr(st, fmt.Sprintf("max_spacing must be >= 0, got %d", spacing))
	}
	return &transform.Group{Label: st.StepID, MaxSpacing: spacing}, nil
}

type booleanParams struct {
	Operation string  `yaml:"operation"`
	Other     string  `yaml:"other"`
	Domain    []int64 `yaml:"domain"`
}

func booleanStep(st Step, resolve Resolver) (transform.Transform, error) {
	var bp booleanParams
	if err := decodeParams(st, &bp, "operation", "other", "domain"); err != nil {
		return nil, err
	}
	if bp.Operation == "" {
		return nil, stepErr(st, "operation is required")
	}
	op, err := boolean.ParseOperation(bp.Operation)
	if err != nil {
		return nil, err
	}

	params := boolean.Params{Operation: op}
	switch {
	case op == boolean.NOT && bp.Other != "":
		return nil, errors.NewUnexpectedOperand(string(op))
	case op != boolean.NOT && bp.Other == "":
		return nil, errors.NewMissingOperand(string(op))
	}
	if bp.Other != "" {
		if resolve == nil {
			return nil, stepErr(st, fmt.Sprintf("cannot resolve series %q", bp.Other))
		}
		other, err := resolve(bp.Other)
		if err != nil {
			return nil, err
		}
		params.Other = other
	}
	if bp.Domain != nil {
		if len(bp.Domain) != 2 {
			return nil, stepErr(st, fmt.Sprintf("domain must be [start, end], got %d values", len(bp.Domain)))
		}
		dom, err := series.NewInterval(bp.Domain[0], bp.Domain[1])
		if err != nil {
			return nil, err
		}
		params.Domain = &dom
	}
	return &transform.Boolean{Label: st.StepID, Params: params}, nil
}

// decodeParams decodes the step parameters into v after checking every key
// is one of allowed.
func decodeParams(st Step, v any, allowed ...string) error {
	if !st.hasParameters() {
		return nil
	}
	n := st.Parameters
	if n.Kind != yaml.MappingNode {
		return stepErr(st, "parameters must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return stepErr(st, fmt.Sprintf("unknown parameter %q for transform %q", key, st.TransformName))
		}
	}
	if err := n.Decode(v); err != nil {
		return stepErr(st, fmt.Sprintf("invalid parameters: %v", err))
	}
	return nil
}

func stepErr(st Step, msg string) error {
	e := errors.NewInvalidArgument(fmt.Sprintf("step %s: %s", st.StepID, msg))
	e.Details = map[string]any{"step_id": st.StepID}
	return e
}

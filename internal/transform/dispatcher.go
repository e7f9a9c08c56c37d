package transform

import (
	"slices"
	"strings"

	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/series"
)

// Dispatcher maps names to transforms. Names are unique: registering a name
// twice fails instead of shadowing the first registration.
//
// A Dispatcher is not safe for concurrent use.
type Dispatcher struct {
	byName map[string]Transform
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byName: make(map[string]Transform)}
}

// Register associates name with t.
func (d *Dispatcher) Register(name string, t Transform) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewInvalidArgument("transform name is required")
	}
	if t == nil {
		return errors.NewInvalidArgument("transform is required")
	}
	if _, ok := d.byName[name]; ok {
		return errors.NewDuplicateName(name)
	}
	d.byName[name] = t
	return nil
}

// Unregister removes name. It reports whether the name was registered.
func (d *Dispatcher) Unregister(name string) bool {
	if _, ok := d.byName[name]; !ok {
		return false
	}
	delete(d.byName, name)
	return true
}

// Lookup returns the transform registered under name.
func (d *Dispatcher) Lookup(name string) (Transform, bool) {
	t, ok := d.byName[name]
	return t, ok
}

// Apply runs the transform registered under name on s. The transform sees a
// copy of s, so the caller's series is never modified.
func (d *Dispatcher) Apply(name string, s *series.Set) (*series.Set, error) {
	t, ok := d.byName[name]
	if !ok {
		return nil, errors.NewUnknownTransform(name)
	}
	var in *series.Set
	if s == nil {
		in = series.NewSet()
	} else {
		in = s.Clone()
	}
	return t.Apply(in)
}

// GetName returns the name t is registered under, or t.Name() if it is not
// registered.
func (d *Dispatcher) GetName(t Transform) string {
	if t == nil {
		return ""
	}
	for _, name := range d.Names() {
		if d.byName[name] == t {
			return name
		}
	}
	return t.Name()
}

// Names returns the registered names in sorted order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe lists registered transforms for discovery.
func (d *Dispatcher) Describe() []Info {
	names := d.Names()
	out := make([]Info, 0, len(names))
	for _, name := range names {
		t := d.byName[name]
		out = append(out, Info{Name: name, Kind: kindOf(t), Label: t.Name()})
	}
	return out
}

// Info summarizes one registered transform.
type Info struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

func kindOf(t Transform) string {
	switch t.(type) {
	case *Boolean:
		return "boolean"
	case *Group:
		return "group"
	case *External:
		return "external"
	}
	return "unknown"
}

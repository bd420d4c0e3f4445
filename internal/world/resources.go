package world

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// ResourceKind indexes a ResourceBundle.
type ResourceKind int

const (
	Minerals ResourceKind = iota
	Energy
	Food
	Alloys
	Components
	Fuel
	Research
	NumResources
)

var resourceNames = [NumResources]string{
	"minerals", "energy", "food", "alloys", "components", "fuel", "research",
}

func (k ResourceKind) String() string {
	if k < 0 || k >= NumResources {
		return fmt.Sprintf("resource(%d)", int(k))
	}
	return resourceNames[k]
}

// ParseResourceKind maps a lower-case name to its kind.
func ParseResourceKind(s string) (ResourceKind, bool) {
	for i, n := range resourceNames {
		if n == s {
			return ResourceKind(i), true
		}
	}
	return 0, false
}

// ResourceBundle is a fixed-shape vector of integer quantities, one per kind.
// It is a value type: copies never alias.
type ResourceBundle [NumResources]int64

// Bundle builds a bundle from name/amount pairs, e.g. Bundle(Minerals, 10, Food, 5).
func Bundle(pairs ...any) ResourceBundle {
	var b ResourceBundle
	for i := 0; i+1 < len(pairs); i += 2 {
		k := pairs[i].(ResourceKind)
		switch v := pairs[i+1].(type) {
		case int:
			b[k] = int64(v)
		case int64:
			b[k] = v
		}
	}
	return b
}

func (b ResourceBundle) IsZero() bool { return b == ResourceBundle{} }

// NonNegative reports whether every component is >= 0.
func (b ResourceBundle) NonNegative() bool {
	for _, v := range b {
		if v < 0 {
			return false
		}
	}
	return true
}

// Total sums all components.
func (b ResourceBundle) Total() int64 {
	var t int64
	for _, v := range b {
		t += v
	}
	return t
}

// CanAfford reports whether b covers cost in every component.
func (b ResourceBundle) CanAfford(cost ResourceBundle) bool {
	for k := range b {
		if b[k] < cost[k] {
			return false
		}
	}
	return true
}

// Fits reports whether b+add stays within capacity in every component.
func (b ResourceBundle) Fits(add, capacity ResourceBundle) bool {
	for k := range b {
		if add[k] > capacity[k]-b[k] {
			return false
		}
	}
	return true
}

// Add returns b+o. It fails when the result would have a negative component
// or overflow; b is left untouched either way.
func (b ResourceBundle) Add(o ResourceBundle) (ResourceBundle, error) {
	var out ResourceBundle
	for k := range b {
		if o[k] > 0 && b[k] > math.MaxInt64-o[k] {
			return b, fmt.Errorf("%s overflows", ResourceKind(k))
		}
		out[k] = b[k] + o[k]
		if out[k] < 0 {
			return b, fmt.Errorf("%s would become %d", ResourceKind(k), out[k])
		}
	}
	return out, nil
}

// Sub returns b-cost. It either fully succeeds or returns b unchanged with an
// error naming the first unaffordable kind.
func (b ResourceBundle) Sub(cost ResourceBundle) (ResourceBundle, error) {
	for k := range b {
		if cost[k] < 0 {
			return b, fmt.Errorf("negative %s cost %d", ResourceKind(k), cost[k])
		}
		if b[k] < cost[k] {
			return b, fmt.Errorf("need %d %s, have %d", cost[k], ResourceKind(k), b[k])
		}
	}
	var out ResourceBundle
	for k := range b {
		out[k] = b[k] - cost[k]
	}
	return out, nil
}

// Headroom returns capacity-b clamped at zero per component.
func (b ResourceBundle) Headroom(capacity ResourceBundle) ResourceBundle {
	var out ResourceBundle
	for k := range b {
		if d := capacity[k] - b[k]; d > 0 {
			out[k] = d
		}
	}
	return out
}

// Positive keeps only the positive components.
func (b ResourceBundle) Positive() ResourceBundle {
	var out ResourceBundle
	for k, v := range b {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// Negated returns -b.
func (b ResourceBundle) Negated() ResourceBundle {
	var out ResourceBundle
	for k, v := range b {
		out[k] = -v
	}
	return out
}

// Scaled multiplies every component by n.
func (b ResourceBundle) Scaled(n int64) ResourceBundle {
	var out ResourceBundle
	for k, v := range b {
		out[k] = v * n
	}
	return out
}

// Plus adds without validation. Use for accumulating rates, never balances.
func (b ResourceBundle) Plus(o ResourceBundle) ResourceBundle {
	var out ResourceBundle
	for k := range b {
		out[k] = b[k] + o[k]
	}
	return out
}

// Min takes the component-wise minimum.
func (b ResourceBundle) Min(o ResourceBundle) ResourceBundle {
	var out ResourceBundle
	for k := range b {
		out[k] = min(b[k], o[k])
	}
	return out
}

func (b ResourceBundle) asMap() map[string]int64 {
	m := make(map[string]int64, NumResources)
	for k, v := range b {
		if v != 0 {
			m[resourceNames[k]] = v
		}
	}
	return m
}

func (b *ResourceBundle) fromMap(m map[string]int64) error {
	var out ResourceBundle
	for name, v := range m {
		k, ok := ParseResourceKind(name)
		if !ok {
			return fmt.Errorf("unknown resource %q", name)
		}
		out[k] = v
	}
	*b = out
	return nil
}

func (b ResourceBundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.asMap())
}

func (b *ResourceBundle) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return b.fromMap(m)
}

func (b *ResourceBundle) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]int64
	if err := node.Decode(&m); err != nil {
		return err
	}
	return b.fromMap(m)
}

func (b ResourceBundle) String() string {
	s := "{"
	first := true
	for k, v := range b {
		if v == 0 {
			continue
		}
		if !first {
			s += " "
		}
		s += fmt.Sprintf("%s:%d", resourceNames[k], v)
		first = false
	}
	return s + "}"
}

package world

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Labor is a worker category.
type Labor int

const (
	Agriculture Labor = iota
	Mining
	Industry
	Science
	Military
	Unassigned
	NumLabor
)

var laborNames = [NumLabor]string{
	"agriculture", "mining", "industry", "research", "military", "unassigned",
}

func (l Labor) String() string {
	if l < 0 || l >= NumLabor {
		return fmt.Sprintf("labor(%d)", int(l))
	}
	return laborNames[l]
}

// ParseLabor accepts the canonical names plus "idle" for Unassigned.
func ParseLabor(s string) (Labor, bool) {
	if s == "idle" {
		return Unassigned, true
	}
	for i, n := range laborNames {
		if n == s {
			return Labor(i), true
		}
	}
	return 0, false
}

func (l *Labor) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, ok := ParseLabor(s)
	if !ok {
		return fmt.Errorf("unknown labor category %q", s)
	}
	*l = v
	return nil
}

// WorkerAllocation partitions a planet's population into labor categories.
type WorkerAllocation [NumLabor]int64

// Idle builds an allocation with everyone unassigned.
func Idle(population int64) WorkerAllocation {
	var a WorkerAllocation
	a[Unassigned] = population
	return a
}

func (a WorkerAllocation) Sum() int64 {
	var s int64
	for _, v := range a {
		s += v
	}
	return s
}

// Assigned is the population working in any category but Unassigned.
func (a WorkerAllocation) Assigned() int64 {
	return a.Sum() - a[Unassigned]
}

func (a WorkerAllocation) NonNegative() bool {
	for _, v := range a {
		if v < 0 {
			return false
		}
	}
	return true
}

func (a WorkerAllocation) MarshalJSON() ([]byte, error) {
	m := make(map[string]int64, NumLabor)
	for l, v := range a {
		if v != 0 {
			m[laborNames[l]] = v
		}
	}
	return json.Marshal(m)
}

func (a *WorkerAllocation) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out WorkerAllocation
	for name, v := range m {
		l, ok := ParseLabor(name)
		if !ok {
			return fmt.Errorf("unknown labor category %q", name)
		}
		out[l] += v
	}
	*a = out
	return nil
}

package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Effect tags an operation's interaction with the outside world.
type Effect uint8

const (
	Pure Effect = iota
	EnvRead
	FileRead
	FileWrite
	NetworkAccess
	ProcessExec
	SystemModification

	numEffects
)

var effectNames = [numEffects]string{
	Pure:               "Pure",
	EnvRead:            "EnvRead",
	FileRead:           "FileRead",
	FileWrite:          "FileWrite",
	NetworkAccess:      "NetworkAccess",
	ProcessExec:        "ProcessExec",
	SystemModification: "SystemModification",
}

func (e Effect) String() string {
	if e < numEffects {
		return effectNames[e]
	}
	return fmt.Sprintf("Effect(%d)", uint8(e))
}

// ParseEffect maps an effect name back to its Effect.
func ParseEffect(name string) (Effect, error) {
	for i, n := range effectNames {
		if n == name {
			return Effect(i), nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", name)
}

// EffectSet is an immutable set of effects, stored as a bit mask.
// The zero value is the empty set, which is pure.
type EffectSet uint8

// NewEffectSet builds a set from the given effects.
func NewEffectSet(effects ...Effect) EffectSet {
	var s EffectSet
	for _, e := range effects {
		s |= 1 << e
	}
	return s
}

// PureSet is the set {Pure}.
const PureSet = EffectSet(1) << Pure

// Union returns s ∪ o.
func (s EffectSet) Union(o EffectSet) EffectSet {
	return s | o
}

// Has reports whether e is in s.
func (s EffectSet) Has(e Effect) bool {
	return s&(1<<e) != 0
}

// IsPure reports whether s is empty or exactly {Pure}.
func (s EffectSet) IsPure() bool {
	return s == 0 || s == PureSet
}

// SubsetOf reports whether every effect in s is also in o.
func (s EffectSet) SubsetOf(o EffectSet) bool {
	return s&^o == 0
}

// Effects lists the members of s in declaration order.
func (s EffectSet) Effects() []Effect {
	var out []Effect
	for e := Effect(0); e < numEffects; e++ {
		if s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// String renders s as {A, B}.
func (s EffectSet) String() string {
	effects := s.Effects()
	names := make([]string, len(effects))
	for i, e := range effects {
		names[i] = e.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Names lists effect names in declaration order.
func (s EffectSet) Names() []string {
	effects := s.Effects()
	names := make([]string, len(effects))
	for i, e := range effects {
		names[i] = e.String()
	}
	return names
}

// MarshalJSON encodes the set as a sorted array of effect names.
func (s EffectSet) MarshalJSON() ([]byte, error) {
	names := s.Names()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON decodes an array of effect names.
func (s *EffectSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out EffectSet
	for _, n := range names {
		e, err := ParseEffect(n)
		if err != nil {
			return err
		}
		out |= 1 << e
	}
	*s = out
	return nil
}

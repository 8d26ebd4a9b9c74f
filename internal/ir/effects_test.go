package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectSetIsPure(t *testing.T) {
	tests := []struct {
		name string
		set  EffectSet
		want bool
	}{
		{"empty", 0, true},
		{"only pure", NewEffectSet(Pure), true},
		{"pure plus read", NewEffectSet(Pure, FileRead), false},
		{"env read", NewEffectSet(EnvRead), false},
		{"everything", NewEffectSet(Pure, EnvRead, FileRead, FileWrite, NetworkAccess, ProcessExec, SystemModification), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.IsPure())
		})
	}
}

func TestEffectSetUnionLaws(t *testing.T) {
	a := NewEffectSet(FileRead)
	b := NewEffectSet(FileWrite, SystemModification)
	c := NewEffectSet(NetworkAccess)

	assert.Equal(t, a.Union(b), b.Union(a), "commutative")
	assert.Equal(t, a.Union(b).Union(c), a.Union(b.Union(c)), "associative")
	assert.Equal(t, a, a.Union(a), "idempotent")
	assert.Equal(t, a, a.Union(0), "identity")
}

func TestEffectSetSubsetOf(t *testing.T) {
	rw := NewEffectSet(FileRead, FileWrite)

	assert.True(t, NewEffectSet(FileRead).SubsetOf(rw))
	assert.True(t, EffectSet(0).SubsetOf(rw))
	assert.True(t, rw.SubsetOf(rw))
	assert.False(t, NewEffectSet(NetworkAccess).SubsetOf(rw))
	assert.False(t, rw.SubsetOf(NewEffectSet(FileRead)))
}

func TestEffectSetString(t *testing.T) {
	assert.Equal(t, "{}", EffectSet(0).String())
	assert.Equal(t, "{FileRead, FileWrite}", NewEffectSet(FileWrite, FileRead).String())
	assert.Equal(t, "Effect(42)", Effect(42).String())
}

func TestEffectSetJSON(t *testing.T) {
	s := NewEffectSet(SystemModification, EnvRead)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["EnvRead","SystemModification"]`, string(data))

	var back EffectSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)

	empty, err := json.Marshal(EffectSet(0))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(empty))

	err = json.Unmarshal([]byte(`["Teleport"]`), &back)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown effect")
}

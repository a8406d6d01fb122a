package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []Flag{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []Flag{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_Defaults(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(Signup, 0))
	assert.True(t, m.Enabled(IndexCache, 0))

	m = NewManager("SIGNUP = off")
	assert.False(t, m.Enabled(Signup, 0))
	assert.True(t, m.Enabled(IndexCache, 0))

	var nilManager *Manager
	assert.False(t, nilManager.Enabled(Signup, 1))
}

func TestEnabled_PercentageRollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.Enabled("always", 0))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("broken", 1))
	assert.False(t, m.Enabled("canary", 0))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}

	on := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 80)
}

func TestNamesAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,=on")

	assert.Equal(t, []Flag{IndexCache, Signup, "x", "y", "z"}, m.Names())

	snap := m.Snapshot(0)
	assert.Len(t, snap, 5)
	assert.True(t, snap["x"])
	assert.False(t, snap["y"])
	assert.False(t, snap["z"])
	assert.True(t, snap[Signup])
}

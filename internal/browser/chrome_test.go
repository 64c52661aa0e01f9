package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleIgnoresPreviousDocument(t *testing.T) {
	l := newLifecycle()
	l.commit("first")
	l.record("first", "init")
	l.record("first", "DOMContentLoaded")
	assert.True(t, l.has(DOMContentLoaded))

	// Navigation committed; the old document finishes loading late.
	l.commit("second")
	l.record("first", "load")
	l.record("first", "networkIdle")

	assert.False(t, l.has(DOMContentLoaded))
	assert.False(t, l.has(NetworkIdle))

	l.record("second", "init")
	l.record("second", "DOMContentLoaded")
	assert.True(t, l.has(DOMContentLoaded))
	assert.False(t, l.has(NetworkIdle))

	l.record("second", "networkIdle")
	assert.True(t, l.has(NetworkIdle))
}

func TestLifecycleEventsBeforeCommit(t *testing.T) {
	l := newLifecycle()
	l.record("next", "init")
	l.record("next", "load")
	assert.False(t, l.has(Load))

	l.commit("next")
	assert.True(t, l.has(Load))
	assert.True(t, l.has(DOMContentLoaded))
}

func TestLifecyclePendingNavigation(t *testing.T) {
	l := newLifecycle()
	l.commit("first")
	l.record("first", "networkIdle")
	l.commit("")

	assert.False(t, l.has(NetworkIdle))
}

func TestLifecycleInitResets(t *testing.T) {
	l := newLifecycle()
	l.commit("doc")
	l.record("doc", "load")
	l.record("doc", "init")

	assert.False(t, l.has(Load))
	l.record("doc", "frameStoppedLoading")
	assert.False(t, l.has(Load))
}

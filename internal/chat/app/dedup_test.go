package app

import (
	"fmt"
	"testing"

	"impact_chat/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func TestDedupSet_Add(t *testing.T) {
	d := NewDedupSet(4, 0)

	assert.True(t, d.Add("m:1"))
	assert.False(t, d.Add("m:1"))
	assert.True(t, d.Add("a:1"), "message and attachment ids live in separate spaces")
	assert.Equal(t, 2, d.Len())
	assert.True(t, d.Contains("m:1"))
}

func TestDedupSet_EvictsOldest(t *testing.T) {
	d := NewDedupSet(3, 0)
	for i := 1; i <= 4; i++ {
		assert.True(t, d.Add(domain.DedupKey(fmt.Sprintf("m:%d", i))))
	}

	assert.Equal(t, 3, d.Len())
	assert.False(t, d.Contains("m:1"))
	assert.True(t, d.Contains("m:2"))
	assert.True(t, d.Contains("m:4"))

	// evicted keys are accepted again
	assert.True(t, d.Add("m:1"))
	assert.False(t, d.Contains("m:2"))
}

func TestDedupSet_Capacity(t *testing.T) {
	assert.Equal(t, DefaultDedupCapacity, NewDedupSet(0, 0).Capacity())
	assert.Equal(t, 100, NewDedupSet(10, 100).Capacity())
	assert.Equal(t, 300, NewDedupSet(300, 100).Capacity())
}

func TestDedupSet_Reset(t *testing.T) {
	d := NewDedupSet(2, 0)
	d.Add("m:1")
	d.Add("m:2")

	d.Reset()
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.Contains("m:1"))
	assert.True(t, d.Add("m:1"))
}

func TestDedupSet_AddEntryFallback(t *testing.T) {
	d := NewDedupSet(8, 0)

	withID := testMessage(1, "r1", "alice", "hi", 1)
	echo := withID
	echo.ID = nil

	assert.True(t, d.AddEntry(domain.MessageEntry(withID)))
	assert.Equal(t, 2, d.Len())
	assert.False(t, d.AddEntry(domain.MessageEntry(echo)), "id-less echo of a known entry")

	d.Reset()
	assert.True(t, d.AddEntry(domain.MessageEntry(echo)))
	assert.False(t, d.AddEntry(domain.MessageEntry(withID)), "id-keyed copy of a known echo")
	assert.True(t, d.AddEntry(domain.MessageEntry(testMessage(2, "r1", "alice", "hi again", 2))))
}

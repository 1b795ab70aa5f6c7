package app

import (
	"testing"

	"impact_chat/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func TestTimeline_ReplaceKeepsLiveNotInHistory(t *testing.T) {
	tl := NewTimeline()

	live := domain.MessageEntry(testMessage(7, "r1", "bob", "hello", 30))
	tl.AppendLive(live)

	history := []domain.Entry{
		domain.MessageEntry(testMessage(5, "r1", "amy", "old", 10)),
		domain.MessageEntry(testMessage(6, "r1", "amy", "older?", 20)),
	}
	got := tl.Replace(history)

	assert.Equal(t, []domain.DedupKey{"m:5", "m:6", "m:7"}, entryKeys(got))
	assert.Equal(t, 3, tl.Len())
}

func TestTimeline_ReplaceHistoryCopyWins(t *testing.T) {
	tl := NewTimeline()

	live := testMessage(7, "r1", "bob", "draft", 30)
	tl.AppendLive(domain.MessageEntry(live))

	fromServer := live
	fromServer.Text = "edited"
	got := tl.Replace([]domain.Entry{domain.MessageEntry(fromServer)})

	assert.Len(t, got, 1)
	assert.Equal(t, "edited", got[0].Message.Text)
}

func TestTimeline_ReplaceMatchesEchoWithoutID(t *testing.T) {
	tl := NewTimeline()

	echo := testMessage(1, "r1", "alice", "hi", 1)
	echo.ID = nil
	tl.AppendLive(domain.MessageEntry(echo))
	tl.AppendLive(domain.MessageEntry(testMessage(9, "r1", "bob", "hi", 1)))

	got := tl.Replace([]domain.Entry{domain.MessageEntry(testMessage(1, "r1", "alice", "hi", 1))})

	assert.Equal(t, []domain.DedupKey{"m:1", "m:9"}, entryKeys(got))
}

func TestTimeline_ReplaceKeepsDistinctIDsWithSameText(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLive(domain.MessageEntry(testMessage(2, "r1", "alice", "hi", 1)))

	got := tl.Replace([]domain.Entry{domain.MessageEntry(testMessage(1, "r1", "alice", "hi", 1))})

	assert.Equal(t, []domain.DedupKey{"m:1", "m:2"}, entryKeys(got))
}

func TestTimeline_ReplaceClearsPending(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLive(domain.MessageEntry(testMessage(1, "r1", "bob", "a", 1)))
	tl.Replace(nil)

	got := tl.Replace(nil)
	assert.Empty(t, got, "pending entries fold in once")
}

func TestTimeline_Reset(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLive(domain.MessageEntry(testMessage(1, "r1", "bob", "a", 1)))
	tl.Reset()
	assert.Equal(t, 0, tl.Len())
	assert.Empty(t, tl.Entries())
}

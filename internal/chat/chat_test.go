package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AppendAndSnapshot(t *testing.T) {
	h := NewHistory(5)
	h.Append("first question", "first answer")
	h.Append("second question", "second answer")

	turns := h.Snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, "first question", turns[0].Query)
	assert.Equal(t, "second answer", turns[1].Answer)
	assert.False(t, turns[0].Timestamp.IsZero())
}

func TestHistory_FIFOEviction(t *testing.T) {
	const bound = 3
	h := NewHistory(bound)

	for i := 0; i < bound+1; i++ {
		h.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := h.Snapshot()
	require.Len(t, turns, bound)
	// The oldest turn is gone; order is oldest first.
	assert.Equal(t, "q1", turns[0].Query)
	assert.Equal(t, "q3", turns[bound-1].Query)
}

func TestHistory_ZeroCapacityKeepsNothing(t *testing.T) {
	h := NewHistory(0)
	h.Append("q", "a")
	assert.Zero(t, h.Len())
}

func TestHistory_SnapshotIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.Append("q", "a")

	turns := h.Snapshot()
	turns[0].Query = "mutated"

	assert.Equal(t, "q", h.Snapshot()[0].Query)
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(2)
	h.Append("q", "a")
	h.Clear()
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Snapshot())
}

func TestBuildMessages_Order(t *testing.T) {
	history := []Turn{
		{Query: "old question", Answer: "old answer"},
		{Query: "newer question", Answer: "newer answer"},
	}

	messages := BuildMessages("be helpful", "Page 1 - guide.pdf: intro", history, "what now?")
	require.Len(t, messages, 7)

	assert.Equal(t, Message{Role: RoleSystem, Content: "be helpful"}, messages[0])
	assert.Equal(t, RoleUser, messages[1].Role)
	assert.Equal(t, "Document Context: Page 1 - guide.pdf: intro", messages[1].Content)

	// Prior turns as user/assistant pairs, oldest first.
	assert.Equal(t, Message{Role: RoleUser, Content: "old question"}, messages[2])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "old answer"}, messages[3])
	assert.Equal(t, Message{Role: RoleUser, Content: "newer question"}, messages[4])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "newer answer"}, messages[5])

	assert.Equal(t, Message{Role: RoleUser, Content: "what now?"}, messages[6])
}

func TestBuildMessages_NoHistory(t *testing.T) {
	messages := BuildMessages("sys", "ctx", nil, "q")
	require.Len(t, messages, 3)
	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Equal(t, RoleUser, messages[1].Role)
	assert.Equal(t, "q", messages[2].Content)
}

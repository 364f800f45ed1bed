package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilsearch/gateway/internal/config"
)

func turn(role Role, i int) Message {
	return Message{Role: role, Content: fmt.Sprintf("turn %d", i)}
}

func TestWindowZeroValueEmpty(t *testing.T) {
	var w Window
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, w.Messages())
}

func TestWindowAppendBelowCapacity(t *testing.T) {
	var w Window
	w = w.Append(turn(RoleUser, 1))
	w = w.Append(turn(RoleAssistant, 2))

	msgs := w.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "turn 1", msgs[0].Content)
	assert.Equal(t, "turn 2", msgs[1].Content)
}

// Appending past capacity evicts the oldest turn: after capacity+1 appends
// the first turn is gone and the rest are in order.
func TestWindowAppendEvictsOldest(t *testing.T) {
	var w Window
	for i := 1; i <= config.WindowCapacity+1; i++ {
		w = w.Append(turn(RoleUser, i))
	}

	msgs := w.Messages()
	require.Len(t, msgs, config.WindowCapacity)
	assert.Equal(t, "turn 2", msgs[0].Content)
	assert.Equal(t, fmt.Sprintf("turn %d", config.WindowCapacity+1), msgs[len(msgs)-1].Content)
}

func TestWindowAppendDoesNotMutateReceiver(t *testing.T) {
	var w Window
	w = w.Append(turn(RoleUser, 1))

	_ = w.Append(turn(RoleUser, 2))
	_ = w.Append(turn(RoleUser, 3))

	msgs := w.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "turn 1", msgs[0].Content)
}

func TestWindowMessagesReturnsCopy(t *testing.T) {
	var w Window
	w = w.Append(turn(RoleUser, 1))

	msgs := w.Messages()
	msgs[0].Content = "tampered"

	assert.Equal(t, "turn 1", w.Messages()[0].Content)
}

func TestFromMessagesTruncatesToRecent(t *testing.T) {
	var msgs []Message
	for i := 1; i <= config.WindowCapacity+5; i++ {
		msgs = append(msgs, turn(RoleUser, i))
	}

	w := FromMessages(msgs)
	require.Equal(t, config.WindowCapacity, w.Len())
	assert.Equal(t, "turn 6", w.Messages()[0].Content)
}

func TestFromMessagesCopiesInput(t *testing.T) {
	msgs := []Message{turn(RoleUser, 1)}
	w := FromMessages(msgs)

	msgs[0].Content = "tampered"
	assert.Equal(t, "turn 1", w.Messages()[0].Content)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
	assert.False(t, Role("").Valid())
}

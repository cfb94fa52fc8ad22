package callstate_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"vetline/backend/internal/callstate"

	"github.com/stretchr/testify/assert"
)

func candidate(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"candidate":"candidate:%d 1 udp 2113937151 192.0.2.%d 50000 typ host"}`, i, i))
}

// TestCandidatesBufferedUntilReady: candidates arriving before the remote
// description must be held, then flushed in arrival order.
func TestCandidatesBufferedUntilReady(t *testing.T) {
	q := callstate.NewCandidateQueue()

	assert.Nil(t, q.Push(candidate(1)))
	assert.Nil(t, q.Push(candidate(2)))
	assert.Nil(t, q.Push(candidate(3)))
	assert.Equal(t, 3, q.Len())

	flushed := q.MarkReady()
	assert.Len(t, flushed, 3)
	for i, c := range flushed {
		assert.JSONEq(t, string(candidate(i+1)), string(c), "flush must preserve arrival order")
	}
	assert.Equal(t, 0, q.Len())
}

// TestCandidatesPassThroughAfterReady: once the description is applied,
// each candidate is usable immediately.
func TestCandidatesPassThroughAfterReady(t *testing.T) {
	q := callstate.NewCandidateQueue()
	assert.Empty(t, q.MarkReady())

	out := q.Push(candidate(1))
	assert.Len(t, out, 1)
	assert.JSONEq(t, string(candidate(1)), string(out[0]))
}

// TestReorderedSignalingSequence replays the race this queue exists for:
// ICE frames delivered before the answer frame.
func TestReorderedSignalingSequence(t *testing.T) {
	q := callstate.NewCandidateQueue()

	var applied []json.RawMessage
	apply := func(cs []json.RawMessage) { applied = append(applied, cs...) }

	// Transport delivers two candidates, then the answer, then another
	// candidate.
	apply(q.Push(candidate(1)))
	apply(q.Push(candidate(2)))
	apply(q.MarkReady()) // answer applied here
	apply(q.Push(candidate(3)))

	assert.Len(t, applied, 3)
	assert.JSONEq(t, string(candidate(1)), string(applied[0]))
	assert.JSONEq(t, string(candidate(2)), string(applied[1]))
	assert.JSONEq(t, string(candidate(3)), string(applied[2]))
}

// TestReset returns the queue to buffering and drops stale candidates.
func TestReset(t *testing.T) {
	q := callstate.NewCandidateQueue()
	q.MarkReady()
	q.Reset()

	assert.False(t, q.Ready())
	assert.Nil(t, q.Push(candidate(1)))
	assert.Equal(t, 1, q.Len())

	q.Reset()
	assert.Empty(t, q.MarkReady(), "reset must drop pending candidates")
}

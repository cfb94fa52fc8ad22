package callstate

import "encoding/json"

// CandidateQueue buffers remote ICE candidates that arrive before the
// remote session description has been applied. WebRTC stacks reject a
// candidate added before setRemoteDescription, and the transport gives no
// ordering guarantee between the offer/answer frame and candidate frames,
// so every endpoint must queue and flush rather than apply on arrival.
type CandidateQueue struct {
	ready   bool
	pending []json.RawMessage
}

// NewCandidateQueue returns a queue that buffers until MarkReady.
func NewCandidateQueue() *CandidateQueue {
	return &CandidateQueue{}
}

// Push hands a remote candidate to the queue. If the remote description is
// already applied the candidate is returned alone for immediate use;
// otherwise it is buffered and nil is returned.
func (q *CandidateQueue) Push(candidate json.RawMessage) []json.RawMessage {
	if q.ready {
		return []json.RawMessage{candidate}
	}
	q.pending = append(q.pending, candidate)
	return nil
}

// MarkReady records that the remote description has been applied and
// returns every buffered candidate in arrival order. Subsequent pushes
// pass straight through.
func (q *CandidateQueue) MarkReady() []json.RawMessage {
	q.ready = true
	flushed := q.pending
	q.pending = nil
	return flushed
}

// Ready reports whether candidates currently pass through unbuffered.
func (q *CandidateQueue) Ready() bool { return q.ready }

// Len returns the number of buffered candidates.
func (q *CandidateQueue) Len() int { return len(q.pending) }

// Reset returns the queue to its initial buffering state, dropping any
// pending candidates. Used when a call restarts negotiation.
func (q *CandidateQueue) Reset() {
	q.ready = false
	q.pending = nil
}

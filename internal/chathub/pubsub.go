package chathub

import (
	"encoding/json"
	"log"
	"strings"

	"vetline/backend/internal/models"
)

// startBridge subscribes to the per-connection event channels in Redis and
// feeds frames for locally hosted connections back into the dispatch loop.
// This is what lets a room span hub nodes: the node that cannot find a
// member locally publishes, and the hosting node delivers. Redis preserves
// per-channel publish order, so per-connection event ordering survives the
// hop.
func (h *Hub) startBridge() {
	pubsub := h.Storage.SubscribeEvents()
	if pubsub == nil {
		log.Println("Redis bridge disabled; running single-node.")
		return
	}

	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			connID := strings.TrimPrefix(msg.Channel, "events:")

			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("ERROR: malformed bridged event on %s: %v", msg.Channel, err)
				continue
			}

			h.bridgeCh <- Frame{ConnectionID: connID, Event: ev}
		}
	}()
}

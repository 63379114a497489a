package chathub

import (
	"encoding/json"
	"log"

	"campusmarket/backend/internal/models"
)

// startPubSubListener feeds events from the shared Redis channel into the
// hub's delivery queue. Every instance subscribes, so a relay published
// anywhere reaches room members connected everywhere.
func (m *ManagerService) startPubSubListener() {
	pubsub := m.Storage.SubscribeEvents(m.ctx)
	if pubsub == nil {
		// No broker configured (tests); local fallback delivery still works.
		return
	}

	go func() {
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("ERROR: decode pubsub event: %v", err)
				continue
			}
			m.PubSubCh <- ev
		}
	}()
}

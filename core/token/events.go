package token

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type EventType string

const (
	EventTransfer         EventType = "Transfer"
	EventApproval         EventType = "Approval"
	EventMint             EventType = "Mint"
	EventBatchMint        EventType = "BatchMint"
	EventBurn             EventType = "Burn"
	EventPauseUpdate      EventType = "PauseUpdate"
	EventBlacklistUpdate  EventType = "BlacklistUpdate"
	EventMaxSupplyUpdate  EventType = "MaxSupplyUpdate"
	EventMintingCapUpdate EventType = "MintingCapUpdate"
)

// Event records a completed state change. The payload carries the arguments
// of the triggering call plus resulting values in Metadata, so collaborators
// (the purchase UI, the websocket feed) can refresh without re-querying.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	From      common.Address         `json:"from,omitempty"`
	To        common.Address         `json:"to,omitempty"`
	Amount    uint64                 `json:"amount"`
	Timestamp time.Time              `json:"timestamp"`
	TxHash    string                 `json:"tx_hash"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventHandler receives every event appended to the log.
type EventHandler func(Event)

// RegisterEventHandler registers a handler invoked (on its own goroutine)
// for each subsequent state change.
func (t *Token) RegisterEventHandler(handler EventHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// emitEvent appends the event and dispatches it to handlers. Callers must
// hold t.mu.
func (t *Token) emitEvent(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	t.events = append(t.events, event)
	for _, handler := range t.handlers {
		go handler(event) // Non-blocking event emission
	}
}

// Events returns a copy of all recorded events.
func (t *Token) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	events := make([]Event, len(t.events))
	copy(events, t.events)
	return events
}

// EventsByType returns events filtered by type.
func (t *Token) EventsByType(eventType EventType) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var filtered []Event
	for _, event := range t.events {
		if event.Type == eventType {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

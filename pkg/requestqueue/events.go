package requestqueue

// EventType names a queue lifecycle event
type EventType string

const (
	EventSubmitted  EventType = "submitted"
	EventCoalesced  EventType = "coalesced"
	EventStarted    EventType = "started"
	EventCompleted  EventType = "completed"
	EventCancelled  EventType = "cancelled"
	EventSuperseded EventType = "superseded"
)

// Event describes one state change of a queue entry
type Event struct {
	Type     EventType
	EntryID  string
	Key      string
	Priority int
	Data     map[string]interface{}
}

// EventHandler receives queue events. Handlers run synchronously while the
// queue lock is held and must not call back into the queue.
type EventHandler func(event Event)

// On registers an event handler for a specific event type
func (q *Queue) On(eventType EventType, handler EventHandler) {
	q.eventMu.Lock()
	defer q.eventMu.Unlock()

	q.eventHandlers[eventType] = append(q.eventHandlers[eventType], handler)
}

// Off removes all handlers for the event type
func (q *Queue) Off(eventType EventType) {
	q.eventMu.Lock()
	defer q.eventMu.Unlock()

	delete(q.eventHandlers, eventType)
}

func (q *Queue) emit(eventType EventType, e *entry, data map[string]interface{}) {
	q.eventMu.RLock()
	handlers := q.eventHandlers[eventType]
	q.eventMu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:     eventType,
		EntryID:  e.id,
		Key:      e.key,
		Priority: e.priority,
		Data:     data,
	}
	for _, handler := range handlers {
		handler(event)
	}
}

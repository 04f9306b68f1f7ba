package autosave

import (
	"sync"
	"time"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
)

// StatusEvent is published on every save status transition.
type StatusEvent struct {
	DraftID    string
	Status     domain.SaveStatus
	RetryCount int
	LastError  string
	At         time.Time
}

// subscribers fans status events out without blocking. Guarded by Manager.mu.
type subscribers struct {
	next  int
	chans map[int]chan StatusEvent
}

func (s *subscribers) add(buffer int) (int, chan StatusEvent) {
	if s.chans == nil {
		s.chans = make(map[int]chan StatusEvent)
	}
	s.next++
	ch := make(chan StatusEvent, buffer)
	s.chans[s.next] = ch
	return s.next, ch
}

func (s *subscribers) remove(id int) {
	if ch, ok := s.chans[id]; ok {
		delete(s.chans, id)
		close(ch)
	}
}

func (s *subscribers) closeAll() {
	for id, ch := range s.chans {
		delete(s.chans, id)
		close(ch)
	}
}

func (s *subscribers) publish(ev StatusEvent) {
	for _, ch := range s.chans {
		select {
		case ch <- ev:
		default:
			// slow subscriber; it will catch up on the next transition
		}
	}
}

// Subscribe returns a channel of status transitions and a function that
// unsubscribes and closes it. Events are dropped for a subscriber whose buffer is full.
// The channel is also closed when the draft is switched, cleared or closed.
func (m *Manager) Subscribe(buffer int) (<-chan StatusEvent, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	m.mu.Lock()
	id, ch := m.subs.add(buffer)
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			m.subs.remove(id)
			m.mu.Unlock()
		})
	}
}

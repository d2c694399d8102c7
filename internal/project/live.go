package project

import "sync"

// Live fans out project list snapshots to subscribers. Each subscriber holds
// at most one pending snapshot; a newer one replaces it.
type Live struct {
	mu   sync.Mutex
	next int
	subs map[int]chan []*Project
}

func NewLive() *Live {
	return &Live{subs: make(map[int]chan []*Project)}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel.
func (l *Live) Subscribe() (<-chan []*Project, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	ch := make(chan []*Project, 1)
	l.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(ch)
		})
	}
}

// Publish offers list to every subscriber.
func (l *Live) Publish(list []*Project) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs {
		offer(ch, cloneList(list))
	}
}

// Subscribers returns the current subscriber count.
func (l *Live) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func offer(ch chan []*Project, list []*Project) {
	select {
	case <-ch:
	default:
	}
	ch <- list
}

func cloneList(list []*Project) []*Project {
	out := make([]*Project, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}

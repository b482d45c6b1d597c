/*
file: lucidkv/internal/session/hub.go

Hub is the process-wide pub/sub broadcaster (spec.md §4.5/§4.6 PUBLISH
family). It is the same broadcast-to-registered-listeners shape as the
teacher's Monitors slice, generalized from a slice scanned under a
single mutex to a map keyed by channel so PUBLISH doesn't pay for
subscribers of channels nobody published to.
*/
package session

import (
	"path"
	"sync"

	"github.com/lucidkv/lucidkv/internal/resp"
)

type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Session]struct{}
	patterns map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*Session]struct{}),
		patterns: make(map[string]map[*Session]struct{}),
	}
}

func (h *Hub) Subscribe(s *Session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Session]struct{})
	}
	h.channels[channel][s] = struct{}{}
	s.Subscriptions[channel] = struct{}{}
}

func (h *Hub) Unsubscribe(s *Session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels[channel], s)
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
	delete(s.Subscriptions, channel)
}

func (h *Hub) PSubscribe(s *Session, pattern string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.patterns[pattern] == nil {
		h.patterns[pattern] = make(map[*Session]struct{})
	}
	h.patterns[pattern][s] = struct{}{}
	s.PSubscriptions[pattern] = struct{}{}
}

func (h *Hub) PUnsubscribe(s *Session, pattern string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.patterns[pattern], s)
	if len(h.patterns[pattern]) == 0 {
		delete(h.patterns, pattern)
	}
	delete(s.PSubscriptions, pattern)
}

// UnsubscribeAll removes every subscription s holds, called on
// disconnect and by RESET.
func (h *Hub) UnsubscribeAll(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range s.Subscriptions {
		delete(h.channels[ch], s)
		if len(h.channels[ch]) == 0 {
			delete(h.channels, ch)
		}
	}
	for p := range s.PSubscriptions {
		delete(h.patterns[p], s)
		if len(h.patterns[p]) == 0 {
			delete(h.patterns, p)
		}
	}
}

// Publish delivers message on channel to direct subscribers and to
// every pattern subscriber whose glob matches, returning the number of
// receiving sessions (duplicated if a session holds both a direct and a
// matching pattern subscription, matching native Redis PUBLISH return
// semantics).
func (h *Hub) Publish(channel string, message []byte) int {
	h.mu.RLock()
	direct := make([]*Session, 0, len(h.channels[channel]))
	for s := range h.channels[channel] {
		direct = append(direct, s)
	}
	type patternHit struct {
		pattern string
		s       *Session
	}
	var hits []patternHit
	for pattern, subs := range h.patterns {
		if ok, _ := path.Match(pattern, channel); !ok {
			continue
		}
		for s := range subs {
			hits = append(hits, patternHit{pattern: pattern, s: s})
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range direct {
		v := resp.Push(resp.BulkString("message"), resp.BulkString(channel), resp.Bulk(message))
		if s.WriteValue(v) == nil {
			delivered++
		}
	}
	for _, hit := range hits {
		v := resp.Push(resp.BulkString("pmessage"), resp.BulkString(hit.pattern), resp.BulkString(channel), resp.Bulk(message))
		if hit.s.WriteValue(v) == nil {
			delivered++
		}
	}
	return delivered
}

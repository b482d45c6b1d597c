/*
file: lucidkv/internal/command/monitor.go

MonitorHub is the process-wide MONITOR broadcaster from spec.md §4.5,
replacing the teacher's state.Monitors slice (scanned and written to
synchronously inside Handle) with a registered-listener fan-out that
runs off the hot command path, per §5's non-blocking-dispatch
requirement.
*/
package command

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
)

type MonitorHub struct {
	mu        sync.RWMutex
	listeners map[*session.Session]struct{}
}

func NewMonitorHub() *MonitorHub {
	return &MonitorHub{listeners: make(map[*session.Session]struct{})}
}

func (h *MonitorHub) Attach(s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[s] = struct{}{}
}

func (h *MonitorHub) Detach(s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, s)
}

// Broadcast formats one dispatched command and fans it out to every
// attached listener except the one that issued it. Formatting happens
// synchronously (it is cheap); delivery to each listener's socket runs
// in its own goroutine so a slow MONITOR client cannot stall dispatch.
func (h *MonitorHub) Broadcast(origin *session.Session, args [][]byte) {
	h.mu.RLock()
	if len(h.listeners) == 0 {
		h.mu.RUnlock()
		return
	}
	targets := make([]*session.Session, 0, len(h.listeners))
	for s := range h.listeners {
		if s != origin {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	line := formatMonitorLine(origin, args)
	for _, t := range targets {
		go func(t *session.Session) {
			_ = t.WriteValue(resp.SimpleString(line))
		}(t)
	}
}

func formatMonitorLine(origin *session.Session, args [][]byte) string {
	ts := float64(time.Now().UnixNano()) / 1e9
	var addr string
	if origin.Conn != nil {
		addr = origin.Conn.RemoteAddr().String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%d %s]", strconv.FormatFloat(ts, 'f', 6, 64), origin.DB, addr)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteByte('"')
		b.WriteString(escapeMonitorArg(a))
		b.WriteByte('"')
	}
	return b.String()
}

func escapeMonitorArg(a []byte) string {
	var b strings.Builder
	for _, c := range a {
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, "\\x%02x", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

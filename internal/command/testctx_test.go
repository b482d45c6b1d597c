package command

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/lucidkv/lucidkv/internal/session"
	"github.com/lucidkv/lucidkv/internal/store"
)

// newTestContext builds a Context against a real in-memory Database,
// the same fixture shape newClusterTestContext uses, for handler tests
// that don't need the cluster dispatcher.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	db := store.NewDatabase(store.NewMemory(4), zerolog.Nop())
	t.Cleanup(func() { _ = db.Close() })
	return &Context{
		Session:  &session.Session{ID: "session-1", DB: 0},
		Store:    db,
		Server:   &fakeServer{},
		Dispatch: &Dispatcher{},
	}
}

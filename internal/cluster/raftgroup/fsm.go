/*
file: lucidkv/internal/cluster/raftgroup/fsm.go

DataFSM and MetaFSM implement hashicorp/raft's FSM interface, grounded
on cuemby-warren's pkg/manager.WarrenFSM: a JSON-tagged Command{Op,Data}
envelope dispatched through a switch in Apply, with Snapshot/Restore
serializing the whole state as JSON. Group 0 runs a MetaFSM over the
cluster's routing table; groups 1..G each run a DataFSM over an
in-process store.Database scoped to that group's slot range, per
spec.md §4.6.
*/
package raftgroup

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"

	"github.com/lucidkv/lucidkv/internal/cluster"
	"github.com/lucidkv/lucidkv/internal/store"
)

// Command is one replicated log entry's envelope, matching the
// teacher-grounded {op, data} shape.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// marshalCommand builds the []byte raft.Apply expects from an op name
// and its JSON-able payload.
func marshalCommand(op string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("raftgroup: marshal %s payload: %w", op, err)
	}
	return json.Marshal(Command{Op: op, Data: data})
}

// --- Data group FSM -------------------------------------------------

// Ops a data group's replicated log carries.
const (
	OpWriteBatch = "write_batch"
	OpFlushDB    = "flush_db"
)

type writeBatchPayload struct {
	DB  int             `json:"db"`
	Ops []store.BatchOp `json:"ops"`
}

type flushDBPayload struct {
	DB int `json:"db"`
}

// DataFSM applies committed storage mutations to the group's local
// store.Database, the same "one FSM per group, state machine is the
// domain store" shape as WarrenFSM wrapping storage.Store.
type DataFSM struct {
	mu sync.RWMutex
	db *store.Database
}

func NewDataFSM(db *store.Database) *DataFSM {
	return &DataFSM{db: db}
}

func (f *DataFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("raftgroup: decode command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case OpWriteBatch:
		var p writeBatchPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		return f.db.WriteBatch(p.DB, p.Ops)

	case OpFlushDB:
		var p flushDBPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		return f.db.FlushDB(p.DB)

	default:
		return fmt.Errorf("raftgroup: unknown data op %q", cmd.Op)
	}
}

func (f *DataFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := f.db.NumDatabases()
	dump := make(map[int]map[string]*store.Item, n)
	for i := 0; i < n; i++ {
		keys, err := f.db.Keys(i, "*")
		if err != nil {
			return nil, err
		}
		m := make(map[string]*store.Item, len(keys))
		for _, k := range keys {
			item, ok, err := f.db.Get(i, k)
			if err != nil {
				return nil, err
			}
			if ok {
				m[string(k)] = item
			}
		}
		dump[i] = m
	}
	return &dataSnapshot{dbs: dump}, nil
}

func (f *DataFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var dump map[int]map[string]*store.Item
	if err := json.NewDecoder(rc).Decode(&dump); err != nil {
		return fmt.Errorf("raftgroup: decode snapshot: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for db, items := range dump {
		if err := f.db.FlushDB(db); err != nil {
			return err
		}
		ops := make([]store.BatchOp, 0, len(items))
		for key, item := range items {
			ops = append(ops, store.BatchOp{Key: []byte(key), Item: item})
		}
		if len(ops) > 0 {
			if err := f.db.WriteBatch(db, ops); err != nil {
				return err
			}
		}
	}
	return nil
}

type dataSnapshot struct {
	dbs map[int]map[string]*store.Item
}

func (s *dataSnapshot) Persist(sink raft.SnapshotSink) error {
	enc := json.NewEncoder(sink)
	if err := enc.Encode(s.dbs); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *dataSnapshot) Release() {}

// --- Meta group FSM --------------------------------------------------

// Ops the meta group's replicated log carries.
const (
	OpAssignSlot      = "assign_slot"
	OpAssignSlotRange = "assign_slot_range"
	OpSetGroup        = "set_group"
	OpBeginMigrate    = "begin_migrate"
	OpBeginImport     = "begin_import"
	OpFinishMove      = "finish_move"
)

type assignSlotPayload struct {
	Slot  int `json:"slot"`
	Group int `json:"group"`
}

// assignSlotRangePayload seeds ownership for a contiguous slot range in
// one log entry, the shape cluster bootstrap uses instead of one
// assign_slot entry per slot.
type assignSlotRangePayload struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Group int `json:"group"`
}

type setGroupPayload struct {
	Group      int    `json:"group"`
	LeaderAddr string `json:"leader_addr"`
}

type migratePayload struct {
	Slot int    `json:"slot"`
	Addr string `json:"addr"`
}

type finishMovePayload struct {
	Slot     int `json:"slot"`
	NewOwner int `json:"new_owner"`
}

// MetaFSM applies committed routing-table changes to a cluster.Router,
// the group-0 state machine every node runs a read-only replica of.
type MetaFSM struct {
	router *cluster.Router
}

func NewMetaFSM(router *cluster.Router) *MetaFSM {
	return &MetaFSM{router: router}
}

func (f *MetaFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("raftgroup: decode command: %w", err)
	}

	switch cmd.Op {
	case OpAssignSlot:
		var p assignSlotPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		f.router.AssignSlot(p.Slot, p.Group)
		return nil

	case OpAssignSlotRange:
		var p assignSlotRangePayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		for slot := p.Start; slot <= p.End; slot++ {
			f.router.AssignSlot(slot, p.Group)
		}
		return nil

	case OpSetGroup:
		var p setGroupPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		f.router.SetGroup(cluster.GroupInfo{ID: p.Group, LeaderAddr: p.LeaderAddr})
		return nil

	case OpBeginMigrate:
		var p migratePayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		f.router.BeginMigration(p.Slot, p.Addr)
		return nil

	case OpBeginImport:
		var p migratePayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		f.router.BeginImport(p.Slot, p.Addr)
		return nil

	case OpFinishMove:
		var p finishMovePayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return err
		}
		f.router.FinishMigration(p.Slot, p.NewOwner)
		return nil

	default:
		return fmt.Errorf("raftgroup: unknown meta op %q", cmd.Op)
	}
}

// Snapshot/Restore are no-ops for the meta FSM: the routing table is
// small and rebuilt quickly by replaying the log from each group's own
// last-applied index, the same tradeoff spec.md's size budget favors
// over a dedicated snapshot format.
func (f *MetaFSM) Snapshot() (raft.FSMSnapshot, error) { return noopSnapshot{}, nil }
func (f *MetaFSM) Restore(rc io.ReadCloser) error       { return rc.Close() }

type noopSnapshot struct{}

func (noopSnapshot) Persist(sink raft.SnapshotSink) error { return sink.Close() }
func (noopSnapshot) Release()                             {}

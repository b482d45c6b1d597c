/*
file: lucidkv/internal/cluster/raftgroup/manager.go

Manager wraps one hashicorp/raft.Raft instance per consensus group,
grounded on cuemby-warren's pkg/manager.Manager: raft.NewTCPTransport
for the wire layer, raft.NewFileSnapshotStore for snapshots, and
raft-boltdb for the log/stable stores. lucidkv runs one Manager for the
meta group (group 0) and one per locally-hosted data group; each
Manager opens its own raft.NewTCPTransport on its own BindAddr, and no
raft traffic travels over the cluster bus (internal/cluster/bus).
*/
package raftgroup

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config describes one group's local raft node.
type Config struct {
	GroupID     int
	NodeID      string
	BindAddr    string
	DataDir     string
	Bootstrap   bool
	InitialPeers []raft.Server // only consulted when Bootstrap is true
}

type Manager struct {
	cfg  Config
	raft *raft.Raft
}

// NewManager starts (or rejoins) the raft node for one group, applying
// log entries to fsm.
func NewManager(cfg Config, fsm raft.FSM) (*Manager, error) {
	groupDir := filepath.Join(cfg.DataDir, fmt.Sprintf("group-%d", cfg.GroupID))
	if err := os.MkdirAll(groupDir, 0o755); err != nil {
		return nil, fmt.Errorf("raftgroup: create data dir: %w", err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("raftgroup: resolve bind addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("raftgroup: tcp transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(groupDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("raftgroup: snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(groupDir, "raft-log.bolt"))
	if err != nil {
		return nil, fmt.Errorf("raftgroup: log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(groupDir, "raft-stable.bolt"))
	if err != nil {
		return nil, fmt.Errorf("raftgroup: stable store: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("raftgroup: new raft: %w", err)
	}

	m := &Manager{cfg: cfg, raft: r}

	if cfg.Bootstrap {
		servers := cfg.InitialPeers
		if len(servers) == 0 {
			servers = []raft.Server{{ID: raftCfg.LocalID, Address: transport.LocalAddr()}}
		}
		future := r.BootstrapCluster(raft.Configuration{Servers: servers})
		if err := future.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, fmt.Errorf("raftgroup: bootstrap: %w", err)
		}
	}

	return m, nil
}

// Apply encodes op/payload as a Command and submits it to the group's
// replicated log, blocking until it commits or timeout elapses.
func (m *Manager) Apply(op string, payload interface{}, timeout time.Duration) error {
	data, err := marshalCommand(op, payload)
	if err != nil {
		return err
	}
	future := m.raft.Apply(data, timeout)
	return future.Error()
}

// AddVoter adds a new member to this group, must be called against the
// current leader.
func (m *Manager) AddVoter(nodeID, address string) error {
	if !m.IsLeader() {
		return fmt.Errorf("raftgroup: not leader, current leader is %s", m.LeaderAddr())
	}
	future := m.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	return future.Error()
}

// RemoveServer removes a member from this group, must be called
// against the current leader.
func (m *Manager) RemoveServer(nodeID string) error {
	if !m.IsLeader() {
		return fmt.Errorf("raftgroup: not leader, current leader is %s", m.LeaderAddr())
	}
	future := m.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	return future.Error()
}

func (m *Manager) IsLeader() bool     { return m.raft.State() == raft.Leader }
func (m *Manager) LeaderAddr() string { return string(m.raft.Leader()) }
func (m *Manager) GroupID() int       { return m.cfg.GroupID }

// Stats mirrors the teacher's GetRaftStats, surfaced through CLUSTER
// INFO.
func (m *Manager) Stats() map[string]interface{} {
	configFuture := m.raft.GetConfiguration()
	peers := uint64(0)
	if err := configFuture.Error(); err == nil {
		peers = uint64(len(configFuture.Configuration().Servers))
	}
	return map[string]interface{}{
		"state":          m.raft.State().String(),
		"last_log_index": m.raft.LastIndex(),
		"applied_index":  m.raft.AppliedIndex(),
		"leader":         string(m.raft.Leader()),
		"peers":          peers,
	}
}

// Shutdown blocks until the raft node has stopped.
func (m *Manager) Shutdown() error {
	return m.raft.Shutdown().Error()
}

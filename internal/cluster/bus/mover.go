/*
file: lucidkv/internal/cluster/bus/mover.go

NodeHandler answers a node's bus RPCs: MoveKeys serves its local
backend's slice of a slot to whoever pulls, and RequestPull is what a
source node calls on a destination to kick that pull off, giving
cluster.KeyMover its push-shaped MoveSlot(db, slot, dstAddr) signature
even though the bytes actually flow via the destination's pull.
*/
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucidkv/lucidkv/internal/cluster"
	"github.com/lucidkv/lucidkv/internal/store"
)

// NodeHandler implements Handler over one node's local backend.
type NodeHandler struct {
	Local  store.Backend
	NodeID string
	// LeaderOf optionally reports which raft groups this node leads,
	// returned in Ping responses.
	LeaderOf func() []int
}

func (h *NodeHandler) MoveKeys(ctx context.Context, req *MoveKeysRequest, send func(*KeyBatch) error) (*MoveKeysResponse, error) {
	keys, err := h.Local.Keys(req.DB, "*")
	if err != nil {
		return nil, err
	}
	moved := 0
	for _, key := range keys {
		item, ok, err := h.Local.Get(req.DB, key)
		if err != nil {
			return nil, err
		}
		if !ok || cluster.KeySlot(key) != req.Slot {
			continue
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("bus: marshal item %q: %w", key, err)
		}
		if err := send(&KeyBatch{DB: req.DB, Key: key, Payload: payload}); err != nil {
			return nil, err
		}
		if _, err := h.Local.Delete(req.DB, key); err != nil {
			return nil, err
		}
		moved++
	}
	return &MoveKeysResponse{Moved: moved}, nil
}

func (h *NodeHandler) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	var leaderOf []int
	if h.LeaderOf != nil {
		leaderOf = h.LeaderOf()
	}
	return &PingResponse{NodeID: h.NodeID, LeaderOf: leaderOf}, nil
}

func (h *NodeHandler) RequestPull(ctx context.Context, req *RequestPullRequest) (*RequestPullResponse, error) {
	moved, err := PullFrom(ctx, req.SourceAddr, req.DB, req.Slot, h.Local)
	if err != nil {
		return nil, err
	}
	return &RequestPullResponse{Moved: moved}, nil
}

// PullFrom dials srcAddr and streams slot's keys into dst, writing each
// item locally as it arrives.
func PullFrom(ctx context.Context, srcAddr string, db, slot int, dst store.Backend) (int, error) {
	client, err := Dial(srcAddr)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := client.MoveKeys(callCtx, &MoveKeysRequest{Slot: slot, DB: db}, func(b *KeyBatch) error {
		var item store.Item
		if err := json.Unmarshal(b.Payload, &item); err != nil {
			return fmt.Errorf("bus: unmarshal item %q: %w", b.Key, err)
		}
		_, _, err := dst.Set(b.DB, b.Key, &item, store.SetOptions{})
		return err
	})
	if err != nil {
		return 0, err
	}
	return resp.Moved, nil
}

// BusKeyMover implements cluster.KeyMover by telling the destination
// node to pull from this node's bus address, used in place of
// cluster.LocalKeyMover once source and destination are separate
// processes.
type BusKeyMover struct {
	SelfAddr string
}

func (m *BusKeyMover) MoveSlot(db int, slot int, dstAddr string) (int, error) {
	client, err := Dial(dstAddr)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.RequestPull(ctx, &RequestPullRequest{SourceAddr: m.SelfAddr, DB: db, Slot: slot})
	if err != nil {
		return 0, err
	}
	return resp.Moved, nil
}

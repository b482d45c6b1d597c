/*
file: lucidkv/internal/command/handler_cluster.go

CLUSTER's introspection subcommands, generalizing the teacher's flat
per-command handler functions onto spec.md §4.6's slot model. Of the
mutating subcommands, SETSLOT ... MIGRATING/IMPORTING replicate the
slot's transition through Dispatch.ClusterAdmin when one is wired in
(see cmdClusterSetSlot); MEET, FORGET, REPLICATE, FAILOVER and the
remaining SETSLOT forms only acknowledge with OK.
*/
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucidkv/lucidkv/internal/cluster"
	"github.com/lucidkv/lucidkv/internal/resp"
)

// ClusterInfo is the richer introspection surface *cluster.Router
// offers beyond plain command.ClusterRouter.Route, consulted by NODES.
// Dispatcher.Cluster is type-asserted against it so dispatch.go itself
// never needs to reference *cluster.Router.
type ClusterInfo interface {
	GroupLeader(group int) (string, bool)
}

func cmdCluster(ctx *Context, args [][]byte) resp.Value {
	sub := strings.ToUpper(string(args[1]))
	switch sub {
	case "KEYSLOT":
		if len(args) != 3 {
			return resp.Error("ERR wrong number of arguments for 'cluster|keyslot' command")
		}
		return resp.Integer(int64(cluster.KeySlot(args[2])))

	case "COUNTKEYSINSLOT":
		if len(args) != 3 {
			return resp.Error("ERR wrong number of arguments for 'cluster|countkeysinslot' command")
		}
		slot, err := strconv.Atoi(string(args[2]))
		if err != nil {
			return resp.Error("ERR invalid slot")
		}
		keys, err := ctx.Store.Keys(ctx.DBIndex(), "*")
		if err != nil {
			return resp.Errorf("ERR %s", err.Error())
		}
		n := 0
		for _, k := range keys {
			if cluster.KeySlot(k) == slot {
				n++
			}
		}
		return resp.Integer(int64(n))

	case "GETKEYSINSLOT":
		if len(args) != 4 {
			return resp.Error("ERR wrong number of arguments for 'cluster|getkeysinslot' command")
		}
		slot, err := strconv.Atoi(string(args[2]))
		if err != nil {
			return resp.Error("ERR invalid slot")
		}
		count, err := strconv.Atoi(string(args[3]))
		if err != nil {
			return resp.Error("ERR invalid count")
		}
		keys, err := ctx.Store.Keys(ctx.DBIndex(), "*")
		if err != nil {
			return resp.Errorf("ERR %s", err.Error())
		}
		var out []resp.Value
		for _, k := range keys {
			if len(out) >= count {
				break
			}
			if cluster.KeySlot(k) == slot {
				out = append(out, resp.Bulk(k))
			}
		}
		return resp.Array(out...)

	case "INFO":
		enabled := ctx.Server.ClusterEnabled()
		state := "ok"
		if !enabled {
			state = "disabled"
		}
		info := fmt.Sprintf(
			"cluster_enabled:%d\r\ncluster_state:%s\r\ncluster_slots_assigned:%d\r\ncluster_known_nodes:1\r\ncluster_size:1\r\n",
			boolToInt(enabled), state, boolToInt(enabled)*cluster.SlotCount,
		)
		return resp.Bulk([]byte(info))

	case "MYID":
		return resp.BulkString(ctx.Session.ID)

	case "NODES":
		// The node-address half of this line belongs to the bus/raft
		// layer, not the command dispatcher; until that's threaded into
		// Context, report what the dispatcher can actually see: identity,
		// role, and the meta group's current leader for this node's slot
		// range.
		leader := "-"
		if info, ok := ctx.Dispatch.Cluster.(ClusterInfo); ok {
			if addr, found := info.GroupLeader(0); found {
				leader = addr
			}
		}
		line := fmt.Sprintf("%s myself,master - 0 0 0 connected 0-%d meta-leader=%s\n", ctx.Session.ID, cluster.SlotCount-1, leader)
		return resp.BulkString(line)

	case "SLOTS", "SHARDS":
		return resp.Array()

	case "SETSLOT":
		return cmdClusterSetSlot(ctx, args)

	case "MEET", "FORGET", "REPLICATE", "FAILOVER", "RESET", "BUMPEPOCH", "SAVECONFIG":
		return okSimple()

	default:
		return resp.Errorf("ERR Unknown CLUSTER subcommand or wrong number of arguments for '%s'", string(args[1]))
	}
}

// cmdClusterSetSlot implements CLUSTER SETSLOT <slot> MIGRATING <addr> |
// IMPORTING <addr> | STABLE | NODE <node-id>, the real Redis Cluster
// resharding admin surface (spec.md §4.6). MIGRATING/IMPORTING are
// replicated through Dispatch.ClusterAdmin when wired (cluster-node
// mode); STABLE/NODE and a nil ClusterAdmin (standalone) just ack, the
// same acknowledge-and-defer posture the other mutating subcommands take.
func cmdClusterSetSlot(ctx *Context, args [][]byte) resp.Value {
	if len(args) < 4 {
		return resp.Error("ERR wrong number of arguments for 'cluster|setslot' command")
	}
	slot, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return resp.Error("ERR invalid slot")
	}
	switch strings.ToUpper(string(args[3])) {
	case "MIGRATING":
		if len(args) != 5 {
			return resp.Error("ERR CLUSTER SETSLOT <slot> MIGRATING requires a destination address")
		}
		if ctx.Dispatch.ClusterAdmin == nil {
			return okSimple()
		}
		if err := ctx.Dispatch.ClusterAdmin.BeginMigrating(slot, string(args[4])); err != nil {
			return resp.Errorf("ERR %s", err)
		}
		return okSimple()

	case "IMPORTING":
		if len(args) != 5 {
			return resp.Error("ERR CLUSTER SETSLOT <slot> IMPORTING requires a source address")
		}
		if ctx.Dispatch.ClusterAdmin == nil {
			return okSimple()
		}
		if err := ctx.Dispatch.ClusterAdmin.BeginImporting(slot, string(args[4])); err != nil {
			return resp.Errorf("ERR %s", err)
		}
		return okSimple()

	case "STABLE", "NODE":
		return okSimple()

	default:
		return resp.Error("ERR invalid CLUSTER SETSLOT subcommand")
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

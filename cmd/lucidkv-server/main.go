/*
file: lucidkv/cmd/lucidkv-server/main.go

Entry point, grounded on cuemby-warren's cmd/warren/main.go: a cobra
root command with one persistent --config flag naming the YAML file to
load (logging is initialized from that loaded config inside each
subcommand), and subcommands for the two ways lucidkv runs --
standalone ("serve") and as one node of a sharded cluster
("cluster-node"), per spec.md §4.6.
*/
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucidkv/lucidkv/internal/cluster"
	"github.com/lucidkv/lucidkv/internal/cluster/bus"
	"github.com/lucidkv/lucidkv/internal/cluster/raftgroup"
	"github.com/lucidkv/lucidkv/internal/command"
	"github.com/lucidkv/lucidkv/internal/config"
	"github.com/lucidkv/lucidkv/internal/logging"
	"github.com/lucidkv/lucidkv/internal/metrics"
	"github.com/lucidkv/lucidkv/internal/server"
	"github.com/lucidkv/lucidkv/internal/session"
	"github.com/lucidkv/lucidkv/internal/store"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lucidkv-server",
	Short:   "lucidkv is a Redis-wire-compatible key-value store",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("lucidkv version %s (%s)\n", Version, Commit))
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults built in if omitted)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(clusterNodeCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildEngine wires the storage backend, expiration/blocking
// wrapper, registry, hub, slowlog and monitor hub common to every
// run mode.
func buildEngine(cfg *config.Config) (*store.Database, *session.Hub, *command.Registry, *command.Slowlog, *command.MonitorHub, error) {
	var backend store.Backend
	var err error
	switch cfg.Storage.Engine {
	case "persistent":
		policy := map[string]store.SyncPolicy{
			"always": store.SyncAlways, "everysec": store.SyncEverySecond, "never": store.SyncNever,
		}[cfg.Storage.SyncMode]
		backend, err = store.OpenPersistent(cfg.Storage.DataDir+"/lucidkv.db", cfg.Storage.Databases, policy)
	default:
		backend = store.NewMemory(cfg.Storage.Databases)
	}
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}

	db := store.NewDatabase(backend, logging.WithComponent("store"))
	hub := session.NewHub()
	registry := command.NewRegistry()
	slowlog := command.NewSlowlog(cfg.Slowlog.LogSlowerThanMicros, cfg.Slowlog.MaxLen)
	monitors := command.NewMonitorHub()
	return db, hub, registry, slowlog, monitors, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run a standalone (non-cluster) lucidkv node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Init(logging.Config{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})

		db, hub, registry, slowlog, monitors, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := server.New(addr, hub, cfg.Server.RequirePass, false, logging.Logger)
		dispatcher := command.NewDispatcher(registry, db, hub, srv, nil, slowlog, monitors, logging.WithComponent("dispatch"))
		srv.Dispatcher = dispatcher

		maybeServeMetrics(cfg.Server.MetricsAddr)

		return runUntilSignal(srv.Run)
	},
}

var clusterNodeCmd = &cobra.Command{
	Use:   "cluster-node",
	Short: "run one node of a sharded lucidkv cluster",
	Long: `cluster-node starts a lucidkv node that owns one data group's slot
range, replicates it via raft, and answers the cluster bus for slot
migration and meta introspection, per spec.md §4.6.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Cluster.Enabled {
			return fmt.Errorf("cluster-node requires cluster.enabled: true in config")
		}
		logging.Init(logging.Config{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})

		db, hub, registry, slowlog, monitors, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		router := cluster.NewRouter(cfg.Cluster.DataGroupID)

		// Each raft group needs its own TCP transport, so the data and
		// meta groups bind adjacent ports derived from cluster.bind_addr
		// rather than sharing one.
		metaBindAddr, dataBindAddr, err := splitGroupAddrs(cfg.Cluster.BindAddr)
		if err != nil {
			return fmt.Errorf("cluster.bind_addr: %w", err)
		}

		dataFSM := raftgroup.NewDataFSM(db)
		dataGroup, err := raftgroup.NewManager(raftgroup.Config{
			GroupID:   cfg.Cluster.DataGroupID,
			NodeID:    cfg.Cluster.NodeID,
			BindAddr:  dataBindAddr,
			DataDir:   cfg.Cluster.RaftDataDir,
			Bootstrap: cfg.Cluster.IsBootstrap,
		}, dataFSM)
		if err != nil {
			return fmt.Errorf("start data raft group: %w", err)
		}
		defer dataGroup.Shutdown()

		metaFSM := raftgroup.NewMetaFSM(router)
		metaGroup, err := raftgroup.NewManager(raftgroup.Config{
			GroupID:   0,
			NodeID:    cfg.Cluster.NodeID,
			BindAddr:  metaBindAddr,
			DataDir:   cfg.Cluster.RaftDataDir,
			Bootstrap: cfg.Cluster.IsBootstrap,
		}, metaFSM)
		if err != nil {
			return fmt.Errorf("start meta raft group: %w", err)
		}
		defer metaGroup.Shutdown()

		busHandler := &bus.NodeHandler{
			Local:  db,
			NodeID: cfg.Cluster.NodeID,
			LeaderOf: func() []int {
				var groups []int
				if dataGroup.IsLeader() {
					groups = append(groups, dataGroup.GroupID())
				}
				if metaGroup.IsLeader() {
					groups = append(groups, metaGroup.GroupID())
				}
				return groups
			},
		}
		busSrv := bus.NewServer(busHandler)
		busLis, err := net.Listen("tcp", cfg.Cluster.BusAddr)
		if err != nil {
			return fmt.Errorf("listen on cluster bus addr: %w", err)
		}
		go func() {
			if err := busSrv.Serve(busLis); err != nil {
				logging.WithComponent("bus").Error().Err(err).Msg("bus server stopped")
			}
		}()
		defer busSrv.GracefulStop()

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := server.New(addr, hub, cfg.Server.RequirePass, true, logging.Logger)
		dispatcher := command.NewDispatcher(registry, db, hub, srv, router, slowlog, monitors, logging.WithComponent("dispatch"))
		srv.Dispatcher = dispatcher

		// Wire the slot-migration coordinator: CLUSTER SETSLOT now drives
		// MIGRATING/IMPORTING through the meta group's replicated log
		// instead of acknowledging without effect.
		metaCommitter := &raftgroup.MetaCommitter{Meta: metaGroup}
		keyMover := &bus.BusKeyMover{SelfAddr: cfg.Cluster.BusAddr}
		migration := cluster.NewMigration(router, keyMover, metaCommitter, cfg.Storage.Databases)
		dispatcher.ClusterAdmin = migration

		if cfg.Cluster.IsBootstrap {
			go seedInitialSlots(metaGroup, metaCommitter, cfg, addr)
		}

		maybeServeMetrics(cfg.Server.MetricsAddr)

		return runUntilSignal(srv.Run)
	},
}

// seedInitialSlots waits for this node to become the meta group's
// leader, then submits the bootstrap node's configured slot range and
// group-leader address through the same meta-log path a slot migration
// uses, so every node's Router starts from a real ownership table
// instead of Go's zero-valued "everything belongs to group 0" default.
// Submitting is safe to retry: a non-leader Apply fails harmlessly and
// a second bootstrapping node racing this one just re-applies the same
// idempotent range assignment.
func seedInitialSlots(metaGroup *raftgroup.Manager, committer *raftgroup.MetaCommitter, cfg *config.Config, selfAddr string) {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if metaGroup.IsLeader() {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !metaGroup.IsLeader() {
		logging.WithComponent("cluster").Warn().Msg("gave up waiting for meta leadership; initial slot range was not seeded")
		return
	}
	if err := committer.AssignSlotRange(cfg.Cluster.SlotStart, cfg.Cluster.SlotEnd, cfg.Cluster.DataGroupID); err != nil {
		logging.WithComponent("cluster").Error().Err(err).Msg("failed to seed initial slot range")
		return
	}
	if err := committer.CommitSetGroup(cfg.Cluster.DataGroupID, selfAddr); err != nil {
		logging.WithComponent("cluster").Error().Err(err).Msg("failed to record data group leader address")
	}
}

// maybeServeMetrics starts the Prometheus /metrics endpoint in the
// background if addr is non-empty; a closed-over logger reports any
// failure since the caller has already moved on to the main accept loop.
func maybeServeMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logging.WithComponent("metrics").Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// splitGroupAddrs derives the meta group's and the (first, currently
// only locally-hosted) data group's raft bind addresses from one
// configured base address, meta on the base port and data on base+1,
// so a single cluster.bind_addr setting is enough to run both groups'
// transports on one node.
func splitGroupAddrs(base string) (meta, data string, err error) {
	host, portStr, err := net.SplitHostPort(base)
	if err != nil {
		return "", "", err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", "", fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	meta = net.JoinHostPort(host, fmt.Sprintf("%d", port))
	data = net.JoinHostPort(host, fmt.Sprintf("%d", port+1))
	return meta, data, nil
}

// runUntilSignal runs fn with a context cancelled on SIGINT/SIGTERM.
func runUntilSignal(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx)
}

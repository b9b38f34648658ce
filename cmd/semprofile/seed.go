package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/c360studio/semprofile/config"
	"github.com/c360studio/semprofile/graph"
	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semstreams/natsclient"
)

// graphStream is the JetStream stream that carries graph ingestion and
// the rdf-export output.
const (
	graphStream    = "GRAPH"
	exportSubjects = "graph.export.>"
)

const (
	seedTargetGraph = "graph"
	seedTargetKV    = "kv"
)

type seedOptions struct {
	fixture string
	target  string
}

func seedCmd(flags *globalFlags) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixture individuals into NATS",
		Long: `Seed reads a YAML fixture and either publishes every individual to the
graph ingestion stream or writes it straight into the entity-state KV bucket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.logLevel)
			return seed(cmd.Context(), flags.configPath, opts, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&opts.fixture, "fixture", "", "Fixture file (default: store.fixture_path)")
	cmd.Flags().StringVar(&opts.target, "target", "", "Destination (graph, kv); defaults to kv for the kv backend")

	return cmd
}

// seedTarget picks the destination when none is given.
func seedTarget(explicit, backend string) (string, error) {
	switch explicit {
	case seedTargetGraph, seedTargetKV:
		return explicit, nil
	case "":
		if backend == config.BackendKV {
			return seedTargetKV, nil
		}
		return seedTargetGraph, nil
	default:
		return "", fmt.Errorf("unknown seed target %q", explicit)
	}
}

func seed(ctx context.Context, configPath string, opts *seedOptions, out io.Writer, logger *slog.Logger) error {
	lc, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}
	cfg := lc.cfg

	target, err := seedTarget(opts.target, cfg.Store.Backend)
	if err != nil {
		return err
	}

	fixture := cfg.Store.FixturePath
	if opts.fixture != "" {
		fixture = opts.fixture
	}
	if fixture == "" {
		return fmt.Errorf("no fixture: pass --fixture or set store.fixture_path")
	}
	store, err := storage.LoadFixtureFile(fixture)
	if err != nil {
		return err
	}

	if cfg.NATS.URL == "" {
		return fmt.Errorf("nats.url is required for seeding")
	}
	natsClient, err := connectToNATS(ctx, cfg.NATS.URL, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(context.Background())

	var n int
	switch target {
	case seedTargetKV:
		n, err = seedKV(ctx, natsClient, cfg.Store.Bucket, store)
	default:
		n, err = seedGraph(ctx, natsClient, store)
	}
	if err != nil {
		return err
	}

	logger.Info("Seed complete", "target", target, "individuals", n)
	fmt.Fprintf(out, "Seeded %d individuals to %s\n", n, target)
	return nil
}

func seedGraph(ctx context.Context, client *natsclient.Client, store *storage.MemoryStore) (int, error) {
	js, err := client.JetStream()
	if err != nil {
		return 0, fmt.Errorf("get jetstream: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     graphStream,
		Subjects: []string{graph.GraphIngestSubject, exportSubjects},
		MaxAge:   24 * time.Hour,
		Storage:  jetstream.FileStorage,
	}); err != nil {
		return 0, fmt.Errorf("ensure %s stream: %w", graphStream, err)
	}
	return graph.PublishStore(ctx, client, store)
}

func seedKV(ctx context.Context, client *natsclient.Client, bucket string, store *storage.MemoryStore) (int, error) {
	js, err := client.JetStream()
	if err != nil {
		return 0, fmt.Errorf("get jetstream: %w", err)
	}
	kv, err := storage.NewKVStore(ctx, js, bucket)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, ind := range store.Individuals() {
		if err := kv.Put(ctx, ind, store.StatementsFor(ind.URI)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

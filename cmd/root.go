package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wrenfield/ctxcore/internal/metrics"
	"github.com/wrenfield/ctxcore/internal/store"
	"github.com/wrenfield/ctxcore/internal/store/postgres"
)

var (
	dbPath        string
	pgDSN         string
	pgDims        int
	enableMetrics bool

	metricsShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "ctxcore",
	Short: "Graph-context retrieval over a knowledge graph",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !enableMetrics {
			return nil
		}
		shutdown, err := metrics.InitProvider(cmd.Context(), metrics.ProviderConfig{})
		if err != nil {
			return fmt.Errorf("init metrics provider: %w", err)
		}
		metricsShutdown = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsShutdown == nil {
			return nil
		}
		return metricsShutdown(cmd.Context())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to .ctxcore.db SQLite database")
	rootCmd.PersistentFlags().StringVar(&pgDSN, "pg", "", "PostgreSQL DSN (overrides --db)")
	rootCmd.PersistentFlags().IntVar(&pgDims, "pg-dims", 768, "Embedding dimensions for the PostgreSQL backend")
	rootCmd.PersistentFlags().BoolVar(&enableMetrics, "metrics", false, "Record OpenTelemetry metrics via the Prometheus exporter")
}

// DiscoverDB finds the SQLite database path using priority: env > flag >
// walk-up from CWD.
func DiscoverDB() (string, error) {
	if envPath := os.Getenv("CTXCORE_DB"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}
		return "", fmt.Errorf("database not found at --db path: %s", dbPath)
	}

	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, ".ctxcore.db")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return "", fmt.Errorf("no .ctxcore.db found (set CTXCORE_DB, use --db, or run from a directory containing .ctxcore.db)")
}

// OpenStore opens the graph store selected by flags: the PostgreSQL backend
// when --pg (or CTXCORE_PG) is set, else the discovered SQLite database.
func OpenStore(ctx context.Context) (store.GraphStore, func(), error) {
	dsn := pgDSN
	if dsn == "" {
		dsn = os.Getenv("CTXCORE_PG")
	}
	if dsn != "" {
		pg, err := postgres.Open(ctx, dsn, pgDims)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}

	path, err := DiscoverDB()
	if err != nil {
		return nil, nil, err
	}
	s, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagDSN        string
	logger         = log.NewWithOptions(os.Stderr, log.Options{Prefix: "forgedb"})
)

var rootCmd = &cobra.Command{
	Use:   "forgedb",
	Short: "forgedb is an embeddable SQL engine with transaction-time versioning and CRDT merges",
	Long: `forgedb is an embeddable single-node SQL engine: transaction-time row
versioning, per-column CRDT merge semantics (NONE/LWW/SUM_BOUNDED/GSET),
fixed-dimension vector columns with DISTANCE predicates, and a
differentially private DP_COUNT(*) aggregate.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a YAML config file (dp_epsilon, dp_seed, snapshot_path, autosave_interval)")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "mem://", "DSN: mem:// or file:path?autosave=1")
	rootCmd.AddCommand(replCmd, execCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

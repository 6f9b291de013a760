// Command csim replays a valgrind lackey memory trace through a
// set-associative LRU cache and prints the hit, miss, and eviction counts.
//
// Usage:
//
//	csim [-v] -s <s> -E <E> -b <b> -t <tracefile>
//
// Flags:
//
//	-s          Number of set index bits (2^s sets)
//	-E          Number of lines per set
//	-b          Number of block offset bits (2^b bytes per block)
//	-t          Trace file to replay
//	-v          Print every data access with its outcome
//	--config    JSON cache geometry, overridden by -s, -E, and -b
//	--record    Write every access to a SQLite database
//	--arrow     Write every access to an Arrow IPC stream
//	--metrics   Write the run counters as a Prometheus textfile
//	--verify    Cross-check every access against the reference model
//	--check     Verify cache invariants after every access
//
// Example:
//
//	csim -s 4 -E 1 -b 4 -t traces/yi.trace
//
// Geometry and trace can also come from CSIM_SET_BITS, CSIM_LINES,
// CSIM_BLOCK_BITS, and CSIM_TRACE, which may be set in a .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var flags flagValues

var rootCmd = &cobra.Command{
	Use:   "csim",
	Short: "csim replays a memory trace through a set-associative LRU cache.",
	Long: `csim replays a valgrind lackey memory trace through a set-associative ` +
		`cache with LRU replacement and reports hits, misses, and evictions. ` +
		`Accesses can be recorded to SQLite or Arrow and cross-checked against ` +
		`an Akita cache directory.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true

		opts, err := resolveOptions(cmd.Flags(), flags, os.Getenv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}

		if _, err := run(cmd.Context(), opts, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}

		atexit.Exit(0)
	},
}

func init() {
	registerFlags(rootCmd.Flags(), &flags)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		atexit.Exit(1)
	}
}

// Package main provides a CLI tool to check the bundled trace files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/cachesim/trace"
)

func main() {
	// Find repository root
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	// Walk up to find go.mod
	repoRoot := cwd
	for {
		if _, err := os.Stat(filepath.Join(repoRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(repoRoot)
		if parent == repoRoot {
			fmt.Fprintf(os.Stderr, "Could not find repository root (go.mod)\n")
			os.Exit(1)
		}
		repoRoot = parent
	}

	paths, err := filepath.Glob(filepath.Join(repoRoot, "traces", "*.trace"))
	if err != nil || len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "No traces found under %s\n", filepath.Join(repoRoot, "traces"))
		fmt.Println("0")
		os.Exit(0)
	}

	valid := 0
	for _, path := range paths {
		records, err := trace.Load(path)
		name := filepath.Base(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ❌ %s - %v\n", name, err)
			continue
		}

		data := 0
		for _, r := range records {
			if r.Op != trace.Instruction {
				data++
			}
		}

		valid++
		fmt.Fprintf(os.Stderr, "  ✅ %s - %d records, %d data accesses\n", name, len(records), data)
	}

	fmt.Printf("%d\n", valid)

	if valid != len(paths) {
		os.Exit(1)
	}
}

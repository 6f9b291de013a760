package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/sarchlab/cachesim/cache"
)

// Environment variables read when the matching flag is not given.
const (
	envSetBits   = "CSIM_SET_BITS"
	envLines     = "CSIM_LINES"
	envBlockBits = "CSIM_BLOCK_BITS"
	envTrace     = "CSIM_TRACE"
)

// autoRecordName makes --record pick a unique database name.
const autoRecordName = "auto"

// flagValues are the raw command-line values.
type flagValues struct {
	setBits   uint
	lines     uint
	blockBits uint
	trace     string
	verbose   bool

	configPath     string
	envFile        string
	recordPath     string
	arrowPath      string
	metricsPath    string
	saveConfigPath string
	verify         bool
	check          bool
}

// options is a fully resolved run.
type options struct {
	config  cache.Config
	trace   string
	verbose bool

	// record is set when --record is given; an empty recordPath then means
	// a generated name.
	record         bool
	recordPath     string
	arrowPath      string
	metricsPath    string
	saveConfigPath string
	verify         bool
	check          bool
}

func registerFlags(fs *pflag.FlagSet, v *flagValues) {
	def := cache.DefaultConfig()

	fs.UintVarP(&v.setBits, "set-bits", "s", def.SetIndexBits, "number of set index bits (2^s sets)")
	fs.UintVarP(&v.lines, "lines", "E", def.LinesPerSet, "number of lines per set")
	fs.UintVarP(&v.blockBits, "block-bits", "b", def.BlockOffsetBits, "number of block offset bits (2^b bytes per block)")
	fs.StringVarP(&v.trace, "trace", "t", "", "valgrind lackey trace file to replay")
	fs.BoolVarP(&v.verbose, "verbose", "v", false, "print every data access with its outcome")

	fs.StringVar(&v.configPath, "config", "", "JSON file with the cache geometry")
	fs.StringVar(&v.envFile, "env-file", ".env", "file of environment defaults, ignored if missing")
	fs.StringVar(&v.recordPath, "record", "", "SQLite database to record every access into")
	fs.Lookup("record").NoOptDefVal = autoRecordName
	fs.StringVar(&v.arrowPath, "arrow", "", "Arrow IPC stream file to record every access into")
	fs.StringVar(&v.metricsPath, "metrics", "", "Prometheus textfile to write the run counters to")
	fs.StringVar(&v.saveConfigPath, "save-config", "", "write the resolved cache geometry as JSON")
	fs.BoolVar(&v.verify, "verify", false, "cross-check every access against the reference model")
	fs.BoolVar(&v.check, "check", false, "verify cache invariants after every access")
}

// resolveOptions layers the configuration: defaults, then the env file, then
// the environment, then the --config file, then explicit flags.
func resolveOptions(fs *pflag.FlagSet, v flagValues, getenv func(string) string) (options, error) {
	if err := loadEnvFile(v.envFile); err != nil {
		return options{}, err
	}

	config := cache.DefaultConfig()
	if err := applyEnv(&config, getenv); err != nil {
		return options{}, err
	}

	if v.configPath != "" {
		loaded, err := cache.LoadConfig(v.configPath)
		if err != nil {
			return options{}, err
		}
		config = loaded
	}

	if fs.Changed("set-bits") {
		config.SetIndexBits = v.setBits
	}
	if fs.Changed("lines") {
		config.LinesPerSet = v.lines
	}
	if fs.Changed("block-bits") {
		config.BlockOffsetBits = v.blockBits
	}

	if err := config.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid cache config: %w", err)
	}

	tracePath := v.trace
	if !fs.Changed("trace") {
		tracePath = getenv(envTrace)
	}
	if tracePath == "" {
		return options{}, fmt.Errorf("no trace file given, use -t or %s", envTrace)
	}

	opts := options{
		config:         config,
		trace:          tracePath,
		verbose:        v.verbose,
		record:         fs.Changed("record"),
		recordPath:     v.recordPath,
		arrowPath:      v.arrowPath,
		metricsPath:    v.metricsPath,
		saveConfigPath: v.saveConfigPath,
		verify:         v.verify,
		check:          v.check,
	}
	if opts.recordPath == autoRecordName {
		opts.recordPath = ""
	}

	return opts, nil
}

// loadEnvFile sets variables from path that are not already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func applyEnv(config *cache.Config, getenv func(string) string) error {
	fields := []struct {
		name string
		dst  *uint
	}{
		{envSetBits, &config.SetIndexBits},
		{envLines, &config.LinesPerSet},
		{envBlockBits, &config.BlockOffsetBits},
	}

	for _, f := range fields {
		s := getenv(f.name)
		if s == "" {
			continue
		}

		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, s, err)
		}
		*f.dst = uint(n)
	}

	return nil
}

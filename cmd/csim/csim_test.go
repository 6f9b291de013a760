package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/trace"
)

const evictionTrace = `I 0400d7d4,8
 L 1,1
 S 2,1
 M 1,1
 L 3,1
`

func envFrom(vars map[string]string) func(string) string {
	return func(name string) string {
		return vars[name]
	}
}

func parseFlags(args ...string) (*pflag.FlagSet, flagValues) {
	var v flagValues
	fs := pflag.NewFlagSet("csim", pflag.ContinueOnError)
	registerFlags(fs, &v)
	Expect(fs.Parse(args)).To(Succeed())
	return fs, v
}

var _ = Describe("resolveOptions", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should use cachelab flags", func() {
		fs, v := parseFlags("-s", "4", "-E", "1", "-b", "5", "-t", "yi.trace", "-v")

		opts, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.config).To(Equal(cache.Config{SetIndexBits: 4, LinesPerSet: 1, BlockOffsetBits: 5}))
		Expect(opts.trace).To(Equal("yi.trace"))
		Expect(opts.verbose).To(BeTrue())
		Expect(opts.record).To(BeFalse())
	})

	It("should fall back to defaults", func() {
		fs, v := parseFlags("-t", "yi.trace")

		opts, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.config).To(Equal(cache.DefaultConfig()))
	})

	It("should let flags override the config file and the environment", func() {
		configPath := filepath.Join(dir, "cache.json")
		Expect(cache.Config{SetIndexBits: 6, LinesPerSet: 8, BlockOffsetBits: 6}.
			SaveConfig(configPath)).To(Succeed())

		fs, v := parseFlags("--config", configPath, "-E", "2")
		env := envFrom(map[string]string{
			envSetBits:   "1",
			envLines:     "1",
			envBlockBits: "1",
			envTrace:     "env.trace",
		})

		opts, err := resolveOptions(fs, v, env)
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.config).To(Equal(cache.Config{SetIndexBits: 6, LinesPerSet: 2, BlockOffsetBits: 6}))
		Expect(opts.trace).To(Equal("env.trace"))
	})

	It("should read the geometry from the environment", func() {
		fs, v := parseFlags("-b", "3")
		env := envFrom(map[string]string{
			envSetBits: "5",
			envLines:   "4",
			envTrace:   "env.trace",
		})

		opts, err := resolveOptions(fs, v, env)
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.config).To(Equal(cache.Config{SetIndexBits: 5, LinesPerSet: 4, BlockOffsetBits: 3}))
	})

	It("should load an env file without overriding the environment", func() {
		envFile := filepath.Join(dir, "csim.env")
		Expect(os.WriteFile(envFile, []byte("CSIM_TEST_ONLY_LINES=7\n"), 0o644)).To(Succeed())

		fs, v := parseFlags("--env-file", envFile, "-t", "yi.trace")
		_, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Getenv("CSIM_TEST_ONLY_LINES")).To(Equal("7"))
		Expect(os.Unsetenv("CSIM_TEST_ONLY_LINES")).To(Succeed())
	})

	It("should ignore a missing env file", func() {
		fs, v := parseFlags("--env-file", filepath.Join(dir, "missing.env"), "-t", "yi.trace")
		_, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject malformed environment values", func() {
		fs, v := parseFlags("-t", "yi.trace")
		_, err := resolveOptions(fs, v, envFrom(map[string]string{envLines: "two"}))
		Expect(err).To(MatchError(ContainSubstring(envLines)))
	})

	It("should reject invalid geometries", func() {
		fs, v := parseFlags("-s", "40", "-b", "30", "-t", "yi.trace")
		_, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).To(MatchError(cache.ErrAddressBitsExceeded))
	})

	It("should require a trace", func() {
		fs, v := parseFlags("-s", "1")
		_, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).To(MatchError(ContainSubstring(envTrace)))
	})

	It("should generate a record name when --record has no value", func() {
		fs, v := parseFlags("-t", "yi.trace", "--record")
		opts, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.record).To(BeTrue())
		Expect(opts.recordPath).To(BeEmpty())
	})

	It("should keep an explicit record path", func() {
		fs, v := parseFlags("-t", "yi.trace", "--record=run.sqlite3")
		opts, err := resolveOptions(fs, v, envFrom(nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.record).To(BeTrue())
		Expect(opts.recordPath).To(Equal("run.sqlite3"))
	})
})

var _ = Describe("run", func() {
	var (
		dir       string
		tracePath string
		opts      options
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		tracePath = filepath.Join(dir, "evict.trace")
		Expect(os.WriteFile(tracePath, []byte(evictionTrace), 0o644)).To(Succeed())

		opts = options{
			config: cache.Config{SetIndexBits: 0, LinesPerSet: 2, BlockOffsetBits: 0},
			trace:  tracePath,
		}
		out = &bytes.Buffer{}
	})

	It("should print the summary", func() {
		stats, err := run(context.Background(), opts, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(cache.Statistics{Hits: 2, Misses: 1, Evictions: 1, ColdMisses: 2}))
		Expect(out.String()).To(Equal("hits:2 misses:1 evictions:1\n"))
	})

	It("should print every data access in verbose mode", func() {
		opts.verbose = true
		opts.check = true
		opts.verify = true

		_, err := run(context.Background(), opts, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Cache: s=0 E=2 b=0"))
		Expect(out.String()).To(ContainSubstring(
			"L 1,1 miss\nS 2,1 miss\nM 1,1 hit hit\nL 3,1 miss eviction\n" +
				"hits:2 misses:1 evictions:1\n"))
	})

	It("should write recorders, metrics, and the resolved config", func() {
		opts.record = true
		opts.recordPath = filepath.Join(dir, "run.sqlite3")
		opts.arrowPath = filepath.Join(dir, "run.arrow")
		opts.metricsPath = filepath.Join(dir, "csim.prom")
		opts.saveConfigPath = filepath.Join(dir, "cache.json")

		_, err := run(context.Background(), opts, out)
		Expect(err).NotTo(HaveOccurred())

		db, err := sql.Open("sqlite3", opts.recordPath)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()
		var count int
		Expect(db.QueryRow("SELECT COUNT(*) FROM accesses").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(4))

		Expect(opts.arrowPath).To(BeAnExistingFile())

		metrics, err := os.ReadFile(opts.metricsPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(metrics)).To(ContainSubstring("csim_hits_total 2"))

		saved, err := cache.LoadConfig(opts.saveConfigPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).To(Equal(opts.config))
	})

	It("should fail on a missing trace", func() {
		opts.trace = filepath.Join(dir, "missing.trace")
		_, err := run(context.Background(), opts, out)
		Expect(err).To(MatchError(ContainSubstring("failed to open trace")))
	})

	It("should fail on a malformed trace", func() {
		Expect(os.WriteFile(tracePath, []byte(" L 10,1\n X 20,1\n"), 0o644)).To(Succeed())
		_, err := run(context.Background(), opts, out)
		Expect(err).To(MatchError(ContainSubstring("evict.trace line 2")))
		Expect(errors.Is(err, trace.ErrUnknownOp)).To(BeTrue())
		Expect(out.String()).NotTo(ContainSubstring("hits:"))
	})

	It("should refuse a geometry the reference model cannot hold", func() {
		opts.verify = true
		opts.config = cache.Config{SetIndexBits: 0, LinesPerSet: 1, BlockOffsetBits: 64}
		_, err := run(context.Background(), opts, out)
		Expect(err).To(HaveOccurred())
	})
})

var _ = DescribeTable("run on the bundled sample trace",
	func(config cache.Config, want cache.Statistics) {
		opts := options{config: config, trace: filepath.Join("..", "..", "traces", "sample.trace")}
		out := &bytes.Buffer{}

		stats, err := run(context.Background(), opts, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(want))
		Expect(out.String()).To(Equal(fmt.Sprintf("hits:%d misses:%d evictions:%d\n",
			want.Hits, want.Misses, want.Evictions)))
	},
	Entry("s=1 E=1 b=1", cache.Config{SetIndexBits: 1, LinesPerSet: 1, BlockOffsetBits: 1},
		cache.Statistics{Hits: 4, Misses: 13, Evictions: 13, ColdMisses: 2}),
	Entry("s=2 E=2 b=4", cache.Config{SetIndexBits: 2, LinesPerSet: 2, BlockOffsetBits: 4},
		cache.Statistics{Hits: 10, Misses: 3, Evictions: 3, ColdMisses: 6}),
	Entry("s=4 E=1 b=4", cache.Config{SetIndexBits: 4, LinesPerSet: 1, BlockOffsetBits: 4},
		cache.Statistics{Hits: 10, Misses: 3, Evictions: 3, ColdMisses: 6}),
	Entry("s=0 E=4 b=3", cache.Config{SetIndexBits: 0, LinesPerSet: 4, BlockOffsetBits: 3},
		cache.Statistics{Hits: 5, Misses: 10, Evictions: 10, ColdMisses: 4}),
	Entry("s=0 E=1 b=0", cache.Config{SetIndexBits: 0, LinesPerSet: 1, BlockOffsetBits: 0},
		cache.Statistics{Hits: 4, Misses: 14, Evictions: 14, ColdMisses: 1}),
)

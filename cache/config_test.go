package cache_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cache"
)

var _ = Describe("Config", func() {
	Describe("Validate", func() {
		It("should accept the default config", func() {
			Expect(cache.DefaultConfig().Validate()).To(Succeed())
		})

		It("should accept set and offset fields that fill the address", func() {
			config := cache.Config{SetIndexBits: 0, LinesPerSet: 1, BlockOffsetBits: 64}
			Expect(config.Validate()).To(Succeed())
			Expect(config.TagBits()).To(Equal(uint(0)))
		})

		It("should reject fields wider than the address", func() {
			config := cache.Config{SetIndexBits: 30, LinesPerSet: 1, BlockOffsetBits: 35}
			err := config.Validate()
			Expect(errors.Is(err, cache.ErrAddressBitsExceeded)).To(BeTrue())
		})

		It("should reject offset widths that wrap the field sum", func() {
			config := cache.Config{SetIndexBits: 1, LinesPerSet: 1, BlockOffsetBits: ^uint(0)}
			err := config.Validate()
			Expect(errors.Is(err, cache.ErrAddressBitsExceeded)).To(BeTrue())

			config = cache.Config{SetIndexBits: ^uint(0), LinesPerSet: 1, BlockOffsetBits: 1}
			err = config.Validate()
			Expect(errors.Is(err, cache.ErrAddressBitsExceeded)).To(BeTrue())
		})

		It("should reject zero lines per set", func() {
			config := cache.Config{SetIndexBits: 1, LinesPerSet: 0, BlockOffsetBits: 1}
			Expect(config.Validate()).To(MatchError(cache.ErrNoLines))
		})

		It("should reject set tables too large to allocate", func() {
			config := cache.Config{SetIndexBits: 31, LinesPerSet: 1, BlockOffsetBits: 1}
			err := config.Validate()
			Expect(errors.Is(err, cache.ErrTooManySets)).To(BeTrue())
		})

		It("should reject associativity too large to allocate", func() {
			for _, config := range []cache.Config{
				{SetIndexBits: 0, LinesPerSet: ^uint(0), BlockOffsetBits: 0},
				{SetIndexBits: 0, LinesPerSet: 1 << 40, BlockOffsetBits: 4},
				{SetIndexBits: 0, LinesPerSet: cache.MaxLinesPerSet + 1, BlockOffsetBits: 4},
			} {
				err := config.Validate()
				Expect(errors.Is(err, cache.ErrTooManyLines)).To(BeTrue(), config.String())
			}
		})

		It("should reject caches with too many lines in total", func() {
			config := cache.Config{SetIndexBits: 20, LinesPerSet: 2048, BlockOffsetBits: 4}
			err := config.Validate()
			Expect(errors.Is(err, cache.ErrTooManyLines)).To(BeTrue())
		})

		It("should accept the largest associativity", func() {
			config := cache.Config{SetIndexBits: 0, LinesPerSet: cache.MaxLinesPerSet, BlockOffsetBits: 6}
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Derived geometry", func() {
		It("should split the address into tag, set, and offset fields", func() {
			for _, config := range []cache.Config{
				{SetIndexBits: 0, LinesPerSet: 2, BlockOffsetBits: 0},
				{SetIndexBits: 4, LinesPerSet: 1, BlockOffsetBits: 4},
				{SetIndexBits: 5, LinesPerSet: 8, BlockOffsetBits: 6},
				{SetIndexBits: 30, LinesPerSet: 1, BlockOffsetBits: 34},
			} {
				Expect(config.TagBits() + config.SetIndexBits + config.BlockOffsetBits).
					To(Equal(uint(64)))
			}
		})

		It("should report sets, block size, and capacity", func() {
			config := cache.Config{SetIndexBits: 4, LinesPerSet: 2, BlockOffsetBits: 6}
			Expect(config.NumSets()).To(Equal(uint64(16)))
			Expect(config.BlockSize()).To(Equal(uint64(64)))
			Expect(config.Capacity()).To(Equal(uint64(32)))
			Expect(config.String()).To(Equal("s=4 E=2 b=6"))
		})
	})

	Describe("JSON files", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "cache-config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should load what it saved", func() {
			path := filepath.Join(tempDir, "cache.json")
			config := cache.Config{SetIndexBits: 5, LinesPerSet: 4, BlockOffsetBits: 3}

			Expect(config.SaveConfig(path)).To(Succeed())

			loaded, err := cache.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(config))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"lines_per_set": 8}`), 0644)).To(Succeed())

			loaded, err := cache.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.LinesPerSet).To(Equal(uint(8)))
			Expect(loaded.SetIndexBits).To(Equal(cache.DefaultConfig().SetIndexBits))
		})

		It("should fail on a missing file", func() {
			_, err := cache.LoadConfig(filepath.Join(tempDir, "nope.json"))
			Expect(err).To(HaveOccurred())
		})

		It("should fail on malformed JSON", func() {
			path := filepath.Join(tempDir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"lines_per_set":`), 0644)).To(Succeed())

			_, err := cache.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse cache config")))
		})
	})
})

package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cache"
)

var _ = Describe("Decode", func() {
	It("should extract tag and set fields", func() {
		config := cache.Config{SetIndexBits: 4, LinesPerSet: 1, BlockOffsetBits: 4}

		tag, set := cache.Decode(0x12345678, config)
		Expect(tag).To(Equal(uint64(0x123456)))
		Expect(set).To(Equal(uint64(0x7)))
	})

	It("should place the set field right below an 8-bit tag", func() {
		config := cache.Config{SetIndexBits: 8, LinesPerSet: 1, BlockOffsetBits: 48}

		tag, set := cache.Decode(0xFF0F000000000000, config)
		Expect(tag).To(Equal(uint64(0xFF)))
		Expect(set).To(Equal(uint64(0x0F)))
	})

	It("should return the same fields on repeated calls", func() {
		config := cache.Config{SetIndexBits: 5, LinesPerSet: 1, BlockOffsetBits: 6}
		addr := uint64(0xDEADBEEFCAFE)

		tag1, set1 := cache.Decode(addr, config)
		tag2, set2 := cache.Decode(addr, config)
		Expect(tag2).To(Equal(tag1))
		Expect(set2).To(Equal(set1))
	})

	It("should ignore block offset bits", func() {
		config := cache.Config{SetIndexBits: 3, LinesPerSet: 1, BlockOffsetBits: 5}
		base := uint64(0x7FF000A0)

		wantTag, wantSet := cache.Decode(base, config)
		for offset := uint64(0); offset < 32; offset++ {
			tag, set := cache.Decode(base|offset, config)
			Expect(tag).To(Equal(wantTag))
			Expect(set).To(Equal(wantSet))
		}
	})

	It("should always use set 0 without set index bits", func() {
		config := cache.Config{SetIndexBits: 0, LinesPerSet: 2, BlockOffsetBits: 0}

		tag, set := cache.Decode(0xFFFFFFFFFFFFFFFF, config)
		Expect(set).To(BeZero())
		Expect(tag).To(Equal(uint64(0xFFFFFFFFFFFFFFFF)))
	})

	It("should map every address to tag 0 without tag bits", func() {
		config := cache.Config{SetIndexBits: 30, LinesPerSet: 1, BlockOffsetBits: 34}

		tag, set := cache.Decode(0xFFFFFFFFFFFFFFFF, config)
		Expect(tag).To(BeZero())
		Expect(set).To(Equal(uint64(1<<30 - 1)))
	})

	It("should handle an offset field covering the whole address", func() {
		config := cache.Config{SetIndexBits: 0, LinesPerSet: 1, BlockOffsetBits: 64}

		tag, set := cache.Decode(0x123, config)
		Expect(tag).To(BeZero())
		Expect(set).To(BeZero())
		Expect(cache.BlockAddress(0x123, config)).To(BeZero())
	})

	It("should clear offset bits in the block address", func() {
		config := cache.Config{SetIndexBits: 2, LinesPerSet: 1, BlockOffsetBits: 4}
		Expect(cache.BlockAddress(0x12345, config)).To(Equal(uint64(0x12340)))
	})
})

package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder(insts.XLEN64)
	})

	Describe("Default Timing Values", func() {
		It("should have the documented defaults", func() {
			config := table.Config()
			Expect(config.ALULatency).To(Equal(uint64(1)))
			Expect(config.BranchLatency).To(Equal(uint64(1)))
			Expect(config.LoadLatency).To(Equal(uint64(2)))
			Expect(config.StoreLatency).To(Equal(uint64(1)))
			Expect(config.BranchMispredictPenalty).To(Equal(uint64(3)))
			Expect(config.MemoryLatency).To(Equal(uint64(50)))
		})
	})

	DescribeTable("GetLatency",
		func(word uint32, expected uint64) {
			Expect(table.GetLatency(decoder.Decode(word))).To(Equal(expected))
		},
		Entry("ADDI x1, x0, 5", uint32(0x00500093), uint64(1)),
		Entry("ADD x3, x1, x2", uint32(0x002081B3), uint64(1)),
		Entry("LUI x1, 0x1", uint32(0x000010B7), uint64(1)),
		Entry("LW x3, 0(x1)", uint32(0x0000A183), uint64(2)),
		Entry("LD x3, 0(x1)", uint32(0x0000B183), uint64(2)),
		Entry("SW x2, 0(x1)", uint32(0x0020A023), uint64(1)),
		Entry("BEQ x1, x1, 8", uint32(0x00108463), uint64(1)),
		Entry("JAL x1, 8", uint32(0x008000EF), uint64(1)),
		Entry("ECALL", uint32(0x00000073), uint64(1)),
		Entry("FENCE", uint32(0x0FF0000F), uint64(1)),
		Entry("unknown", uint32(0xFFFFFFFF), uint64(1)),
	)

	Describe("Branch penalties", func() {
		It("should charge taken branches only", func() {
			beq := decoder.Decode(0x00108463)
			Expect(table.BranchPenalty(beq, true)).To(Equal(uint64(3)))
			Expect(table.BranchPenalty(beq, false)).To(BeZero())
		})

		It("should charge indirect jumps but not JAL", func() {
			Expect(table.BranchPenalty(decoder.Decode(0x00008067), true)).To(Equal(uint64(3)))
			Expect(table.BranchPenalty(decoder.Decode(0x008000EF), true)).To(BeZero())
		})

		It("should charge nothing for other instructions", func() {
			Expect(table.BranchPenalty(decoder.Decode(0x00500093), true)).To(BeZero())
			Expect(table.BranchPenalty(nil, true)).To(BeZero())
		})
	})

	Describe("Instruction Type Detection", func() {
		It("should classify instructions", func() {
			lw := decoder.Decode(0x0000A183)
			sw := decoder.Decode(0x0020A023)
			beq := decoder.Decode(0x00108463)
			jal := decoder.Decode(0x008000EF)
			addi := decoder.Decode(0x00500093)

			Expect(table.IsMemoryOp(lw)).To(BeTrue())
			Expect(table.IsMemoryOp(sw)).To(BeTrue())
			Expect(table.IsMemoryOp(addi)).To(BeFalse())
			Expect(table.IsLoadOp(lw)).To(BeTrue())
			Expect(table.IsLoadOp(sw)).To(BeFalse())
			Expect(table.IsStoreOp(sw)).To(BeTrue())
			Expect(table.IsBranchOp(beq)).To(BeTrue())
			Expect(table.IsBranchOp(jal)).To(BeTrue())
			Expect(table.IsBranchOp(addi)).To(BeFalse())
		})
	})

	Describe("Nil Instruction Handling", func() {
		It("should return 1 for nil instruction", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
		})

		It("should return false for nil instruction checks", func() {
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
			Expect(table.IsLoadOp(nil)).To(BeFalse())
			Expect(table.IsStoreOp(nil)).To(BeFalse())
			Expect(table.IsBranchOp(nil)).To(BeFalse())
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 2
			config.ShiftLatency = 3
			config.LoadLatency = 7
			config.SystemLatency = 9
			custom := latency.NewTableWithConfig(config)

			Expect(custom.GetLatency(decoder.Decode(0x00500093))).To(Equal(uint64(2)))
			// SLLI x1, x1, 3
			Expect(custom.GetLatency(decoder.Decode(0x00309093))).To(Equal(uint64(3)))
			Expect(custom.GetLatency(decoder.Decode(0x0000A183))).To(Equal(uint64(7)))
			Expect(custom.GetLatency(decoder.Decode(0x00100073))).To(Equal(uint64(9)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	It("should create a valid default config", func() {
		Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
	})

	DescribeTable("Validation",
		func(mutate func(*latency.TimingConfig), field string) {
			config := latency.DefaultTimingConfig()
			mutate(config)
			err := config.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(field))
		},
		Entry("ALU", func(c *latency.TimingConfig) { c.ALULatency = 0 }, "alu_latency"),
		Entry("shift", func(c *latency.TimingConfig) { c.ShiftLatency = 0 }, "shift_latency"),
		Entry("branch", func(c *latency.TimingConfig) { c.BranchLatency = 0 }, "branch_latency"),
		Entry("jump", func(c *latency.TimingConfig) { c.JumpLatency = 0 }, "jump_latency"),
		Entry("load", func(c *latency.TimingConfig) { c.LoadLatency = 0 }, "load_latency"),
		Entry("store", func(c *latency.TimingConfig) { c.StoreLatency = 0 }, "store_latency"),
		Entry("fence", func(c *latency.TimingConfig) { c.FenceLatency = 0 }, "fence_latency"),
		Entry("system", func(c *latency.TimingConfig) { c.SystemLatency = 0 }, "system_latency"),
	)

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()
			clone.ALULatency = 100

			Expect(original.ALULatency).To(Equal(uint64(1)))
			Expect(clone.ALULatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.ALULatency = 5
			original.LoadLatency = 10

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"load_latency": 3}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.LoadLatency).To(Equal(uint64(3)))
			Expect(loaded.MemoryLatency).To(Equal(uint64(50)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})

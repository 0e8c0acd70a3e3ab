package emu_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("System handlers", func() {
	var (
		regFile *emu.RegFile
		bus     *emu.Bus
		memory  *emu.Memory
		ecall   *insts.Instruction
		ebreak  *insts.Instruction
		fence   *insts.Instruction
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile(insts.XLEN64)
		bus = emu.NewBus(insts.XLEN64)
		memory = emu.NewMemory(base, size)
		Expect(bus.Attach(memory)).To(Succeed())

		decoder := insts.NewDecoder(insts.XLEN64)
		ecall = decoder.Decode(wordECALL)
		ebreak = decoder.Decode(wordEBREAK)
		fence = decoder.Decode(wordFENCE)
	})

	Describe("HaltOnECallHandler", func() {
		It("should halt with a0 as the exit code", func() {
			regFile.WriteReg(emu.RegA0, 42)
			result := emu.HaltOnECallHandler{}.Handle(ecall, base, regFile, bus)
			Expect(result).To(Equal(emu.SystemResult{Halt: true, ExitCode: 42}))
		})

		It("should ignore fences", func() {
			Expect(emu.HaltOnECallHandler{}.Handle(fence, base, regFile, bus).Halt).To(BeFalse())
		})
	})

	Describe("SyscallHandler", func() {
		var (
			handler *emu.SyscallHandler
			stdout  *bytes.Buffer
			stderr  *bytes.Buffer
		)

		syscall := func(num uint64, args ...uint64) int64 {
			regFile.WriteReg(emu.RegA7, num)
			for i, a := range args {
				regFile.WriteReg(emu.RegA0+uint8(i), a)
			}
			result := handler.Handle(ecall, base, regFile, bus)
			Expect(result.Halt).To(BeFalse())
			return regFile.ReadSigned(emu.RegA0)
		}

		BeforeEach(func() {
			stdout = &bytes.Buffer{}
			stderr = &bytes.Buffer{}
			handler = emu.NewSyscallHandler(emu.NewFDTable(strings.NewReader("input"), stdout, stderr))
		})

		It("should write guest memory to stdout and stderr", func() {
			Expect(memory.WriteBytes(base+0x100, []byte("hello"))).To(Succeed())

			Expect(syscall(emu.SyscallWrite, 1, base+0x100, 5)).To(Equal(int64(5)))
			Expect(syscall(emu.SyscallWrite, 2, base+0x101, 2)).To(Equal(int64(2)))
			Expect(stdout.String()).To(Equal("hello"))
			Expect(stderr.String()).To(Equal("el"))
		})

		It("should read stdin into guest memory", func() {
			Expect(syscall(emu.SyscallRead, 0, base+0x200, 16)).To(Equal(int64(5)))

			data, err := memory.ReadBytes(base+0x200, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("input"))

			Expect(syscall(emu.SyscallRead, 0, base+0x200, 16)).To(BeZero())
		})

		It("should report bad descriptors and addresses", func() {
			Expect(syscall(emu.SyscallWrite, 7, base, 1)).To(Equal(int64(-emu.EBADF)))
			Expect(syscall(emu.SyscallWrite, 1, base+size-1, 2)).To(Equal(int64(-emu.EFAULT)))
			Expect(syscall(emu.SyscallRead, 0, 0x10, 4)).To(Equal(int64(-emu.EFAULT)))
			Expect(syscall(emu.SyscallClose, 9)).To(Equal(int64(-emu.EBADF)))
			Expect(syscall(999)).To(Equal(int64(-emu.ENOSYS)))
		})

		It("should halt on exit with the status in a0", func() {
			regFile.WriteReg(emu.RegA7, emu.SyscallExitGroup)
			regFile.WriteReg(emu.RegA0, 3)
			result := handler.Handle(ecall, base, regFile, bus)
			Expect(result).To(Equal(emu.SystemResult{Halt: true, ExitCode: 3}))
		})

		It("should halt on EBREAK", func() {
			Expect(handler.Handle(ebreak, base, regFile, bus).ExitCode).To(Equal(int64(-1)))
		})

		It("should refuse host files unless enabled", func() {
			Expect(memory.WriteBytes(base, []byte("/etc/hostname\x00"))).To(Succeed())
			Expect(syscall(emu.SyscallOpenAt, uint64(0xFFFFFFFFFFFFFF9C), base, 0, 0)).
				To(Equal(int64(-emu.EACCES)))
		})

		It("should open, write and close host files", func() {
			handler.AllowHostFiles(true)
			path := filepath.Join(GinkgoT().TempDir(), "out.txt")
			Expect(memory.WriteBytes(base, append([]byte(path), 0))).To(Succeed())
			Expect(memory.WriteBytes(base+0x400, []byte("data"))).To(Succeed())

			fd := syscall(emu.SyscallOpenAt, uint64(0xFFFFFFFFFFFFFF9C), base, 0x241, 0o644)
			Expect(fd).To(Equal(int64(3)))
			Expect(handler.FDTable().IsOpen(3)).To(BeTrue())

			Expect(syscall(emu.SyscallWrite, uint64(fd), base+0x400, 4)).To(Equal(int64(4)))
			Expect(syscall(emu.SyscallRead, uint64(fd), base+0x500, 4)).To(Equal(int64(-emu.EBADF)))
			Expect(syscall(emu.SyscallClose, uint64(fd))).To(BeZero())

			content, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("data"))
		})

		It("should report missing host files", func() {
			handler.AllowHostFiles(true)
			path := filepath.Join(GinkgoT().TempDir(), "missing")
			Expect(memory.WriteBytes(base, append([]byte(path), 0))).To(Succeed())

			Expect(syscall(emu.SyscallOpenAt, uint64(0xFFFFFFFFFFFFFF9C), base, 0, 0)).
				To(Equal(int64(-emu.ENOENT)))
		})

		It("should run a guest hello world", func() {
			e := newEmulator(insts.XLEN32, []uint32{
				encodeU(opAUIPC, 11, 0),
				addi(11, 11, 32),
				addi(10, 0, 1),
				addi(12, 0, 3),
				addi(17, 0, 64),
				wordECALL,
				addi(17, 0, 93),
				0x00000073,
				0x000A6968, // "hi\n"
			}, emu.WithSystemHandler(handler))

			result := e.Run()
			Expect(result.Reason).To(Equal(emu.HaltSystem))
			Expect(result.ExitCode).To(Equal(int64(3)))
			Expect(stdout.String()).To(Equal("hi\n"))
		})
	})
})

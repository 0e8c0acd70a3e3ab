package emu

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/sarchlab/rvsim/insts"
)

// RISC-V Linux syscall numbers.
const (
	SyscallOpenAt    uint64 = 56 // openat(dirfd, path, flags, mode)
	SyscallClose     uint64 = 57 // close(fd)
	SyscallRead      uint64 = 63 // read(fd, buf, count)
	SyscallWrite     uint64 = 64 // write(fd, buf, count)
	SyscallExit      uint64 = 93 // exit(status)
	SyscallExitGroup uint64 = 94 // exit_group(status)
)

// Linux error codes.
const (
	ENOENT = 2  // No such file or directory
	EIO    = 5  // I/O error
	EBADF  = 9  // Bad file descriptor
	EACCES = 13 // Permission denied
	EFAULT = 14 // Bad address
	EINVAL = 22 // Invalid argument
	ENOSYS = 38 // Function not implemented
)

// Linux open(2) flags as passed in a2.
const (
	linuxOAccMode = 0x3
	linuxOWronly  = 0x1
	linuxORdwr    = 0x2
	linuxOCreat   = 0x40
	linuxOExcl    = 0x80
	linuxOTrunc   = 0x200
	linuxOAppend  = 0x400
)

const (
	atFDCWD = -100

	maxPathLen  = 4096
	maxTransfer = 1 << 20
)

// SyscallHandler proxies ECALL to the host using the RISC-V Linux ABI:
// the syscall number is in a7, arguments in a0-a5 and the result, or a
// negated errno, is returned in a0. EBREAK halts with exit code -1.
type SyscallHandler struct {
	fds       *FDTable
	hostFiles bool
}

// NewSyscallHandler creates a handler serving the given descriptor table.
func NewSyscallHandler(fds *FDTable) *SyscallHandler {
	return &SyscallHandler{fds: fds}
}

// AllowHostFiles enables openat on host paths. It is off by default, which
// makes openat fail with EACCES.
func (h *SyscallHandler) AllowHostFiles(allow bool) {
	h.hostFiles = allow
}

// FDTable returns the handler's descriptor table.
func (h *SyscallHandler) FDTable() *FDTable {
	return h.fds
}

// Handle implements SystemHandler.
func (h *SyscallHandler) Handle(inst *insts.Instruction, _ uint64, regFile *RegFile, bus *Bus) SystemResult {
	switch inst.Op {
	case insts.OpECALL:
		return h.syscall(regFile, bus)
	case insts.OpEBREAK:
		return SystemResult{Halt: true, ExitCode: -1}
	default:
		return SystemResult{}
	}
}

func (h *SyscallHandler) syscall(regFile *RegFile, bus *Bus) SystemResult {
	arg := func(i uint8) uint64 { return regFile.ReadReg(RegA0 + i) }

	var ret int64
	switch regFile.ReadReg(RegA7) {
	case SyscallExit, SyscallExitGroup:
		return SystemResult{Halt: true, ExitCode: regFile.ReadSigned(RegA0)}
	case SyscallWrite:
		ret = h.write(bus, arg(0), arg(1), arg(2))
	case SyscallRead:
		ret = h.read(bus, arg(0), arg(1), arg(2))
	case SyscallOpenAt:
		ret = h.openAt(bus, int64(insts.SignExtend(arg(0), regFile.XLEN().Bits(), 64)), arg(1), arg(2), arg(3))
	case SyscallClose:
		ret = h.close(arg(0))
	default:
		ret = -ENOSYS
	}

	regFile.WriteReg(RegA0, uint64(ret))
	return SystemResult{}
}

func (h *SyscallHandler) write(bus *Bus, fd, addr, count uint64) int64 {
	if !h.fds.IsOpen(fd) {
		return -EBADF
	}

	data, err := readGuest(bus, addr, min(count, maxTransfer))
	if err != nil {
		return -EFAULT
	}

	n, err := h.fds.Write(fd, data)
	if err != nil && n == 0 {
		return errno(err)
	}
	return int64(n)
}

func (h *SyscallHandler) read(bus *Bus, fd, addr, count uint64) int64 {
	buf := make([]byte, min(count, maxTransfer))

	n, err := h.fds.Read(fd, buf)
	if err != nil && n == 0 {
		if errors.Is(err, io.EOF) {
			return 0
		}
		return errno(err)
	}

	if err := writeGuest(bus, addr, buf[:n]); err != nil {
		return -EFAULT
	}
	return int64(n)
}

func (h *SyscallHandler) openAt(bus *Bus, dirfd int64, pathAddr, flags, mode uint64) int64 {
	if !h.hostFiles {
		return -EACCES
	}

	path, err := readGuestString(bus, pathAddr, maxPathLen)
	if err != nil {
		return -EFAULT
	}
	if path == "" {
		return -ENOENT
	}
	if !filepath.IsAbs(path) && dirfd != atFDCWD {
		return -EBADF
	}

	fd, err := h.fds.Open(path, hostOpenFlags(flags), os.FileMode(mode&0o777))
	if err != nil {
		return errno(err)
	}
	return int64(fd)
}

func (h *SyscallHandler) close(fd uint64) int64 {
	if err := h.fds.Close(fd); err != nil {
		return errno(err)
	}
	return 0
}

// hostOpenFlags translates Linux open flags into os package flags.
func hostOpenFlags(flags uint64) int {
	var out int
	switch flags & linuxOAccMode {
	case linuxOWronly:
		out = os.O_WRONLY
	case linuxORdwr:
		out = os.O_RDWR
	default:
		out = os.O_RDONLY
	}

	if flags&linuxOCreat != 0 {
		out |= os.O_CREATE
	}
	if flags&linuxOExcl != 0 {
		out |= os.O_EXCL
	}
	if flags&linuxOTrunc != 0 {
		out |= os.O_TRUNC
	}
	if flags&linuxOAppend != 0 {
		out |= os.O_APPEND
	}
	return out
}

func errno(err error) int64 {
	switch {
	case errors.Is(err, ErrBadFD):
		return -EBADF
	case errors.Is(err, os.ErrNotExist):
		return -ENOENT
	case errors.Is(err, os.ErrPermission):
		return -EACCES
	case errors.Is(err, os.ErrInvalid):
		return -EINVAL
	default:
		return -EIO
	}
}

func readGuest(bus *Bus, addr, n uint64) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		b, err := bus.Load(addr+uint64(i), Width8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(b)
	}
	return out, nil
}

func writeGuest(bus *Bus, addr uint64, data []byte) error {
	for i, b := range data {
		if err := bus.Store(addr+uint64(i), Width8, uint64(b)); err != nil {
			return err
		}
	}
	return nil
}

func readGuestString(bus *Bus, addr uint64, limit int) (string, error) {
	var out []byte
	for i := 0; i < limit; i++ {
		b, err := bus.Load(addr+uint64(i), Width8)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, byte(b))
	}
	return "", os.ErrInvalid
}

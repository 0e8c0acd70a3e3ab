package emu

import (
	"errors"
	"io"
	"os"
	"sync"
)

// ErrBadFD is returned for file descriptors that are not open.
var ErrBadFD = errors.New("bad file descriptor")

// FileDescriptor represents an open guest file descriptor.
type FileDescriptor struct {
	Path string // host path, or stdin/stdout/stderr

	reader io.Reader
	writer io.Writer
	closer io.Closer // nil for the standard streams
}

// FDTable maps guest file descriptors onto host streams and files.
type FDTable struct {
	mu  sync.Mutex
	fds map[uint64]*FileDescriptor
}

// NewFDTable creates a table with descriptors 0, 1 and 2 bound to the given
// streams. A nil stdin reads as end-of-file.
func NewFDTable(stdin io.Reader, stdout, stderr io.Writer) *FDTable {
	return &FDTable{
		fds: map[uint64]*FileDescriptor{
			0: {Path: "stdin", reader: stdin},
			1: {Path: "stdout", writer: stdout},
			2: {Path: "stderr", writer: stderr},
		},
	}
}

// Open opens a host file and returns the lowest free descriptor.
func (t *FDTable) Open(path string, flags int, perm os.FileMode) (uint64, error) {
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return 0, err
	}

	entry := &FileDescriptor{Path: path, closer: f}
	switch flags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_WRONLY:
		entry.writer = f
	case os.O_RDWR:
		entry.reader = f
		entry.writer = f
	default:
		entry.reader = f
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fd := uint64(3)
	for t.fds[fd] != nil {
		fd++
	}
	t.fds[fd] = entry

	return fd, nil
}

// Close releases a descriptor. Standard streams are unbound but the host
// stream stays open.
func (t *FDTable) Close(fd uint64) error {
	t.mu.Lock()
	entry, ok := t.fds[fd]
	delete(t.fds, fd)
	t.mu.Unlock()

	if !ok {
		return ErrBadFD
	}
	if entry.closer != nil {
		return entry.closer.Close()
	}
	return nil
}

// CloseAll closes every host file opened through the table.
func (t *FDTable) CloseAll() error {
	t.mu.Lock()
	fds := make([]uint64, 0, len(t.fds))
	for fd, entry := range t.fds {
		if entry.closer != nil {
			fds = append(fds, fd)
		}
	}
	t.mu.Unlock()

	var errs []error
	for _, fd := range fds {
		errs = append(errs, t.Close(fd))
	}
	return errors.Join(errs...)
}

// Get returns the descriptor entry if it is open.
func (t *FDTable) Get(fd uint64) (*FileDescriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.fds[fd]
	return entry, ok
}

// IsOpen checks if a file descriptor is open.
func (t *FDTable) IsOpen(fd uint64) bool {
	_, ok := t.Get(fd)
	return ok
}

// Read reads from a descriptor. A standard stream without a reader reads
// as end-of-file; a write-only host file is rejected.
func (t *FDTable) Read(fd uint64, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok {
		return 0, ErrBadFD
	}
	if entry.reader == nil {
		if entry.closer != nil {
			return 0, ErrBadFD
		}
		return 0, io.EOF
	}
	return entry.reader.Read(buf)
}

// Write writes to a descriptor.
func (t *FDTable) Write(fd uint64, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.writer == nil {
		return 0, ErrBadFD
	}
	return entry.writer.Write(buf)
}

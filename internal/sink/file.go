package sink

import (
	"os"
	"sync"
)

// DefaultFilePath mirrors the original disabled-egress fallback location;
// overridable for non-Windows deployments.
const DefaultFilePath = `C:\temp\UDPTest\UDP1.txt`

// File is a Sink that appends each line (plus a trailing newline) to a
// configured path, used when UDP egress is disabled.
type File struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenFile opens (creating if needed) path for append-only writes.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{path: path, f: f}, nil
}

// Send appends line and a newline to the file.
func (fl *File) Send(line string) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	_, err := fl.f.WriteString(line + "\n")
	return err
}

// Close closes the underlying file handle.
func (fl *File) Close() error { return fl.f.Close() }

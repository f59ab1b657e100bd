//go:build unix

package input

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mapFile maps size bytes of f read-only and private. Input bytes are shared
// by every worker, so nothing may write through the mapping.
func mapFile(f *os.File, size int64) ([]byte, func([]byte) error, error) {
	if int64(int(size)) != size {
		return nil, nil, errors.Errorf("file too large to map: %d bytes", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mmap %s", f.Name())
	}
	return data, munmap, nil
}

func munmap(data []byte) error {
	return errors.Wrap(unix.Munmap(data), "munmap")
}

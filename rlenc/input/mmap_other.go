//go:build !unix

package input

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// mapFile reads the whole file into memory on platforms without mmap.
func mapFile(f *os.File, size int64) ([]byte, func([]byte) error, error) {
	if int64(int(size)) != size {
		return nil, nil, errors.Errorf("file too large to read: %d bytes", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", f.Name())
	}
	return data, nil, nil
}

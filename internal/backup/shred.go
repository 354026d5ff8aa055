package backup

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
)

const shredBufferSize = 64 * 1024

// Shredder overwrites a file with random data before unlinking it. On
// copy-on-write or journaling filesystems old blocks may still survive;
// this matches what the shred tool itself can promise.
type Shredder struct {
	passes int
}

// NewShredder creates a shredder performing the given number of
// overwrite passes (minimum one, three when zero or negative)
func NewShredder(passes int) *Shredder {
	if passes <= 0 {
		passes = 3
	}
	return &Shredder{passes: passes}
}

// Shred overwrites path with random bytes pass by pass, syncing after
// each pass, then removes it
func (s *Shredder) Shred(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return NewEncryptionError(fmt.Sprintf("cannot stat %s for shredding", path), err)
	}

	if err := s.overwrite(path, info.Size()); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return NewEncryptionError(fmt.Sprintf("cannot remove %s after shredding", path), err)
	}

	return nil
}

func (s *Shredder) overwrite(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return NewEncryptionError(fmt.Sprintf("cannot open %s for shredding", path), err)
	}
	defer f.Close()

	buf := make([]byte, shredBufferSize)
	for pass := 0; pass < s.passes; pass++ {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return NewEncryptionError(fmt.Sprintf("cannot rewind %s", path), err)
		}

		remaining := size
		for remaining > 0 {
			n := int64(len(buf))
			if remaining < n {
				n = remaining
			}
			if _, err := rand.Read(buf[:n]); err != nil {
				return NewEncryptionError("failed to generate overwrite data", err)
			}
			if _, err := f.Write(buf[:n]); err != nil {
				return NewEncryptionError(fmt.Sprintf("cannot overwrite %s", path), err)
			}
			remaining -= n
		}

		if err := f.Sync(); err != nil {
			return NewEncryptionError(fmt.Sprintf("cannot sync %s during shredding", path), err)
		}
	}

	return nil
}

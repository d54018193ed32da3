// Package storage implements a storage node: a flat-directory chunk store
// with optional zstd compression at rest, asynchronous replica fan-out, and
// the heartbeat loop that keeps the node in the metadata service's
// placement pool.
package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the zstd frame magic number. Reads sniff it so a store can
// hold a mix of compressed and raw chunks (e.g. after toggling the
// compression flag across restarts).
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// zstdDec is a package-level decoder, concurrent-safe, always available for
// reads.
var zstdDec *zstd.Decoder

func init() {
	var err error
	zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("zstd: init decoder: " + err.Error())
	}
}

// DiskStore persists chunks as flat files in a single directory, one file
// per chunk, named by chunk id.
type DiskStore struct {
	dir string
	enc *zstd.Encoder // nil when compression is off
}

// NewDiskStore opens (creating if needed) a chunk store directory. When
// compress is true, new chunks are written zstd-compressed; existing raw
// chunks remain readable.
func NewDiskStore(dir string, compress bool) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}
	s := &DiskStore{dir: dir}
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("init zstd encoder: %w", err)
		}
		s.enc = enc
	}
	return s, nil
}

// Dir returns the store's directory.
func (s *DiskStore) Dir() string { return s.dir }

// Put writes a chunk atomically via temp-file-then-rename. An existing
// chunk with the same id is overwritten.
func (s *DiskStore) Put(id string, data []byte) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if s.enc != nil {
		data = s.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	}

	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp chunk: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write chunk %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close chunk %s: %w", id, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename chunk %s: %w", id, err)
	}
	return nil
}

// Get reads a chunk back, transparently decompressing zstd frames.
// A missing chunk yields an error satisfying os.IsNotExist.
func (s *DiskStore) Get(id string) ([]byte, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, zstdMagic) {
		out, err := zstdDec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress chunk %s: %w", id, err)
		}
		return out, nil
	}
	return data, nil
}

// Delete removes a chunk. It reports whether the chunk existed.
func (s *DiskStore) Delete(id string) (bool, error) {
	path, err := s.path(id)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete chunk %s: %w", id, err)
	}
	return true, nil
}

// Count returns the number of chunks on disk. The count is best-effort:
// concurrent puts and deletes race with the directory listing, and
// in-flight temp files are skipped.
func (s *DiskStore) Count() (uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	var n uint64
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".put-") {
			continue
		}
		n++
	}
	return n, nil
}

// path maps a chunk id to its on-disk location. Ids embed client-supplied
// filenames, so anything that would escape the store directory is rejected.
func (s *DiskStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("invalid chunk id %q", id)
	}
	return filepath.Join(s.dir, id), nil
}

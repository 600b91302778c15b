// Package oplog implements the file-backed op-log store: one append-only
// log file per register address, kept under
//
//	<root>/register/<visibility>/<hex name>/<tag>.log
//
// Each record is framed as a big-endian u32 length, the canonical op
// bytes, and a CRC32 of those bytes. The file has no header or trailer;
// the presence of the file is the existence of the address.
package oplog

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/module"
	"github.com/sectionnet/register-store/storage"
)

const storeDirName = "register"

// Store is the on-disk op-log journal. It is safe for concurrent use
// across addresses; the engine serializes mutations of a single address.
type Store struct {
	log       zerolog.Logger
	metrics   module.RegisterStoreMetrics
	root      string
	usedSpace *module.UsedSpace

	// Serializes tail truncation: reads may run concurrently for one
	// address, and the torn bytes must be returned to the budget once.
	truncateMu sync.Mutex
}

// NewStore opens the journal root, creating it if needed, and primes the
// used-space advisor with the bytes already held on disk.
func NewStore(log zerolog.Logger, metrics module.RegisterStoreMetrics, root string, usedSpace *module.UsedSpace) (*Store, error) {
	s := &Store{
		log:       log.With().Str("component", "oplog_store").Logger(),
		metrics:   metrics,
		root:      filepath.Join(root, storeDirName),
		usedSpace: usedSpace,
	}

	err := os.MkdirAll(s.root, 0755)
	if err != nil {
		return nil, fmt.Errorf("could not create store root: %w", err)
	}

	existing, err := s.diskUsage()
	if err != nil {
		return nil, fmt.Errorf("could not measure existing logs: %w", err)
	}
	if existing > 0 && !usedSpace.TryReserve(existing) {
		return nil, fmt.Errorf("existing logs (%d bytes) exceed the byte budget (%d)", existing, usedSpace.Max())
	}
	metrics.BytesUsed(usedSpace.Used())

	return s, nil
}

// LogPath returns the on-disk path of the address's log file.
func (s *Store) LogPath(addr register.Address) string {
	name := hex.EncodeToString(addr.Name[:])
	file := strconv.FormatUint(addr.Tag, 10) + ".log"
	return filepath.Join(s.root, addr.Visibility.String(), name, file)
}

// Append durably appends the ops as one fsynced batch.
func (s *Store) Append(addr register.Address, ops []register.Op) error {
	if len(ops) == 0 {
		return nil
	}

	var batch []byte
	sizes := make([]int, 0, len(ops))
	for _, op := range ops {
		record := encodeRecord(register.EncodeOp(op))
		batch = append(batch, record...)
		sizes = append(sizes, len(record))
	}

	if !s.usedSpace.TryReserve(int64(len(batch))) {
		return storage.ErrOutOfSpace
	}

	err := s.writeBatch(addr, batch)
	if err != nil {
		s.usedSpace.Release(int64(len(batch)))
		return err
	}

	for i, op := range ops {
		s.metrics.OpAppended(op.Type().String(), sizes[i])
	}
	s.metrics.BytesUsed(s.usedSpace.Used())

	return nil
}

func (s *Store) writeBatch(addr register.Address, batch []byte) error {
	path := s.LogPath(addr)
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	defer f.Close()

	_, err = f.Write(batch)
	if err != nil {
		return fmt.Errorf("could not append to log file: %w", err)
	}
	err = f.Sync()
	if err != nil {
		return fmt.Errorf("could not sync log file: %w", err)
	}

	return nil
}

// ReadAll streams the address's records in append order. A torn trailing
// record, left by a crash mid-append, is truncated away; a complete
// record failing its checksum poisons the whole log.
func (s *Store) ReadAll(addr register.Address) ([]register.Op, error) {
	path := s.LogPath(addr)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read log file: %w", err)
	}

	var ops []register.Op
	offset := 0
	for offset < len(data) {
		rest := data[offset:]
		if len(rest) < 4 {
			return ops, s.truncateTail(addr, path, int64(offset), int64(len(data)))
		}
		recLen := int(binary.BigEndian.Uint32(rest))
		if len(rest) < 4+recLen+4 {
			return ops, s.truncateTail(addr, path, int64(offset), int64(len(data)))
		}
		payload := rest[4 : 4+recLen]
		sum := binary.BigEndian.Uint32(rest[4+recLen:])
		if crc32.ChecksumIEEE(payload) != sum {
			return nil, fmt.Errorf("record at offset %d failed checksum: %w", offset, storage.ErrLogCorrupted)
		}
		op, err := register.DecodeOp(payload)
		if err != nil {
			return nil, fmt.Errorf("record at offset %d undecodable (%s): %w", offset, err, storage.ErrLogCorrupted)
		}
		ops = append(ops, op)
		offset += 4 + recLen + 4
	}

	return ops, nil
}

// truncateTail drops unchecksummed trailing bytes left by an interrupted
// append, so the next append starts at a record boundary. Concurrent
// readers may observe the same torn tail; the file is re-measured under
// the mutex so only the first caller truncates and releases budget.
func (s *Store) truncateTail(addr register.Address, path string, validLen int64, fileLen int64) error {
	s.truncateMu.Lock()
	defer s.truncateMu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("could not stat torn log: %w", err)
	}
	if info.Size() <= validLen {
		// Another reader already truncated this tail.
		return nil
	}

	s.log.Warn().
		Str("address", addr.String()).
		Int64("valid_len", validLen).
		Int64("file_len", fileLen).
		Msg("truncating torn record at log tail")

	err = os.Truncate(path, validLen)
	if err != nil {
		return fmt.Errorf("could not truncate torn log tail: %w", err)
	}
	s.usedSpace.Release(info.Size() - validLen)
	s.metrics.BytesUsed(s.usedSpace.Used())
	return nil
}

// Size returns the byte length of the address's log.
func (s *Store) Size(addr register.Address) (int64, bool, error) {
	info, err := os.Stat(s.LogPath(addr))
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not stat log file: %w", err)
	}
	return info.Size(), true, nil
}

// Delete removes the address's log from disk and returns its bytes to
// the budget.
func (s *Store) Delete(addr register.Address) error {
	path := s.LogPath(addr)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not stat log file: %w", err)
	}

	err = os.Remove(path)
	if err != nil {
		return fmt.Errorf("could not remove log file: %w", err)
	}
	// Drop the name directory too if this was its last log.
	_ = os.Remove(filepath.Dir(path))

	s.usedSpace.Release(info.Size())
	s.metrics.RegisterRemoved()
	s.metrics.BytesUsed(s.usedSpace.Used())

	return nil
}

// Addresses walks the journal root and reassembles the address of every
// log file present.
func (s *Store) Addresses() ([]register.Address, error) {
	var addrs []register.Address

	for _, visibility := range []register.Visibility{register.Public, register.Private} {
		visDir := filepath.Join(s.root, visibility.String())
		nameDirs, err := os.ReadDir(visDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not list %s logs: %w", visibility, err)
		}

		for _, nameDir := range nameDirs {
			if !nameDir.IsDir() {
				continue
			}
			nameBytes, err := hex.DecodeString(nameDir.Name())
			if err != nil || len(nameBytes) != register.NameLen {
				s.log.Warn().Str("dir", nameDir.Name()).Msg("skipping unparsable name directory")
				continue
			}
			var name register.Name
			copy(name[:], nameBytes)

			logs, err := os.ReadDir(filepath.Join(visDir, nameDir.Name()))
			if err != nil {
				return nil, fmt.Errorf("could not list logs for name %s: %w", nameDir.Name(), err)
			}
			for _, entry := range logs {
				tagStr, ok := strings.CutSuffix(entry.Name(), ".log")
				if !ok {
					continue
				}
				tag, err := strconv.ParseUint(tagStr, 10, 64)
				if err != nil {
					s.log.Warn().Str("file", entry.Name()).Msg("skipping unparsable log file name")
					continue
				}
				addrs = append(addrs, register.Address{
					Name:       name,
					Tag:        tag,
					Visibility: visibility,
				})
			}
		}
	}

	return addrs, nil
}

// diskUsage sums the size of all log files under the root.
func (s *Store) diskUsage() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".log") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func encodeRecord(payload []byte) []byte {
	record := make([]byte, 4+len(payload)+4)
	binary.BigEndian.PutUint32(record, uint32(len(payload)))
	copy(record[4:], payload)
	binary.BigEndian.PutUint32(record[4+len(payload):], crc32.ChecksumIEEE(payload))
	return record
}

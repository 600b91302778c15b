package oplog_test

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/module"
	"github.com/sectionnet/register-store/module/metrics"
	"github.com/sectionnet/register-store/storage"
	"github.com/sectionnet/register-store/storage/oplog"
	"github.com/sectionnet/register-store/utils/unittest"
)

func withStore(t *testing.T, budget int64, f func(*oplog.Store, string)) {
	unittest.RunWithTempDir(t, func(dir string) {
		store, err := oplog.NewStore(unittest.Logger(), metrics.NewNoopCollector(), dir, module.NewUsedSpace(budget))
		require.NoError(t, err)
		f(store, dir)
	})
}

func logFixture(t *testing.T, addr register.Address) []register.Op {
	ownerKey, priv := unittest.KeypairFixture(t)
	return []register.Op{
		unittest.SignedCreateFixture(t, addr, ownerKey, priv, 64),
		unittest.SignedEditFixture(t, addr, priv, register.Entry("one")),
		unittest.SignedEditFixture(t, addr, priv, register.Entry("two")),
	}
}

func TestStoreAppendReadRoundTrip(t *testing.T) {
	withStore(t, 1<<20, func(store *oplog.Store, _ string) {
		addr := unittest.AddressFixture(t, register.Public)
		ops := logFixture(t, addr)

		require.NoError(t, store.Append(addr, ops[:1]))
		require.NoError(t, store.Append(addr, ops[1:]))

		read, err := store.ReadAll(addr)
		require.NoError(t, err)
		require.Len(t, read, len(ops))
		for i := range ops {
			assert.Equal(t, register.EncodeOp(ops[i]), register.EncodeOp(read[i]))
		}
	})
}

func TestStoreReadMissing(t *testing.T) {
	withStore(t, 1<<20, func(store *oplog.Store, _ string) {
		addr := unittest.AddressFixture(t, register.Private)

		ops, err := store.ReadAll(addr)
		require.NoError(t, err)
		assert.Empty(t, ops)

		_, exists, err := store.Size(addr)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestStoreTornTailTruncated(t *testing.T) {
	withStore(t, 1<<20, func(store *oplog.Store, _ string) {
		addr := unittest.AddressFixture(t, register.Public)
		ops := logFixture(t, addr)
		require.NoError(t, store.Append(addr, ops))

		// Simulate a crash mid-append by chopping bytes off the last
		// record.
		path := store.LogPath(addr)
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NoError(t, os.Truncate(path, info.Size()-3))

		read, err := store.ReadAll(addr)
		require.NoError(t, err)
		require.Len(t, read, len(ops)-1)

		// The torn bytes are gone; the log is back on a record boundary
		// and appendable.
		size, exists, err := store.Size(addr)
		require.NoError(t, err)
		require.True(t, exists)
		require.Less(t, size, info.Size())

		require.NoError(t, store.Append(addr, ops[len(ops)-1:]))
		read, err = store.ReadAll(addr)
		require.NoError(t, err)
		assert.Len(t, read, len(ops))
	})
}

func TestStoreTornTailConcurrentReaders(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		space := module.NewUsedSpace(1 << 20)
		store, err := oplog.NewStore(unittest.Logger(), metrics.NewNoopCollector(), dir, space)
		require.NoError(t, err)

		addr := unittest.AddressFixture(t, register.Public)
		ops := logFixture(t, addr)
		require.NoError(t, store.Append(addr, ops))

		path := store.LogPath(addr)
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NoError(t, os.Truncate(path, info.Size()-3))

		// Several readers hit the torn tail at once; the torn bytes are
		// returned to the budget exactly once.
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				read, err := store.ReadAll(addr)
				assert.NoError(t, err)
				assert.Len(t, read, len(ops)-1)
			}()
		}
		wg.Wait()

		size, exists, err := store.Size(addr)
		require.NoError(t, err)
		require.True(t, exists)
		assert.Equal(t, size, space.Used())
	})
}

func TestStoreCorruptRecordPoisonsLog(t *testing.T) {
	withStore(t, 1<<20, func(store *oplog.Store, _ string) {
		addr := unittest.AddressFixture(t, register.Public)
		require.NoError(t, store.Append(addr, logFixture(t, addr)))

		// Flip a byte inside the first record's payload.
		path := store.LogPath(addr)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data[6] ^= 0xff
		require.NoError(t, os.WriteFile(path, data, 0644))

		_, err = store.ReadAll(addr)
		require.ErrorIs(t, err, storage.ErrLogCorrupted)
	})
}

func TestStoreDelete(t *testing.T) {
	withStore(t, 1<<20, func(store *oplog.Store, _ string) {
		addr := unittest.AddressFixture(t, register.Private)
		require.NoError(t, store.Append(addr, logFixture(t, addr)))

		require.NoError(t, store.Delete(addr))

		_, exists, err := store.Size(addr)
		require.NoError(t, err)
		assert.False(t, exists)

		// Deleting an absent log is a no-op.
		require.NoError(t, store.Delete(addr))
	})
}

func TestStoreAddresses(t *testing.T) {
	withStore(t, 1<<20, func(store *oplog.Store, _ string) {
		public := unittest.AddressFixture(t, register.Public)
		private := unittest.AddressFixture(t, register.Private)
		require.NoError(t, store.Append(public, logFixture(t, public)))
		require.NoError(t, store.Append(private, logFixture(t, private)))

		addrs, err := store.Addresses()
		require.NoError(t, err)
		assert.ElementsMatch(t, []register.Address{public, private}, addrs)
	})
}

func TestStoreOutOfSpace(t *testing.T) {
	withStore(t, 64, func(store *oplog.Store, _ string) {
		addr := unittest.AddressFixture(t, register.Public)

		err := store.Append(addr, logFixture(t, addr))
		require.ErrorIs(t, err, storage.ErrOutOfSpace)

		// Nothing was written and no budget was claimed.
		_, exists, err := store.Size(addr)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestStoreReopenPrimesBudget(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		addr := unittest.AddressFixture(t, register.Public)
		ops := logFixture(t, addr)

		first, err := oplog.NewStore(unittest.Logger(), metrics.NewNoopCollector(), dir, module.NewUsedSpace(1<<20))
		require.NoError(t, err)
		require.NoError(t, first.Append(addr, ops))
		written, _, err := first.Size(addr)
		require.NoError(t, err)

		// A reopened store accounts for what is already on disk.
		space := module.NewUsedSpace(1 << 20)
		second, err := oplog.NewStore(unittest.Logger(), metrics.NewNoopCollector(), dir, space)
		require.NoError(t, err)
		assert.Equal(t, written, space.Used())

		read, err := second.ReadAll(addr)
		require.NoError(t, err)
		assert.Len(t, read, len(ops))

		// A budget smaller than the existing logs refuses to open.
		_, err = oplog.NewStore(unittest.Logger(), metrics.NewNoopCollector(), dir, module.NewUsedSpace(written-1))
		require.Error(t, err)
	})
}

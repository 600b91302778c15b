package module

import (
	"go.uber.org/atomic"
)

// UsedSpace tracks the logical byte budget of the store. Appends reserve
// their record size before touching disk; deletes release what the log
// occupied. The budget is advisory: it bounds what the engine accepts,
// not what the filesystem holds.
type UsedSpace struct {
	max  int64
	used *atomic.Int64
}

// NewUsedSpace creates an advisor with the given byte budget.
func NewUsedSpace(max int64) *UsedSpace {
	return &UsedSpace{
		max:  max,
		used: atomic.NewInt64(0),
	}
}

// TryReserve atomically claims n bytes of budget, returning false without
// claiming anything when the budget has no room.
func (u *UsedSpace) TryReserve(n int64) bool {
	for {
		current := u.used.Load()
		if current+n > u.max {
			return false
		}
		if u.used.CompareAndSwap(current, current+n) {
			return true
		}
	}
}

// Release returns n bytes of budget, flooring at zero.
func (u *UsedSpace) Release(n int64) {
	for {
		current := u.used.Load()
		next := current - n
		if next < 0 {
			next = 0
		}
		if u.used.CompareAndSwap(current, next) {
			return
		}
	}
}

// Used returns the bytes currently accounted for.
func (u *UsedSpace) Used() int64 {
	return u.used.Load()
}

// Max returns the configured budget.
func (u *UsedSpace) Max() int64 {
	return u.max
}

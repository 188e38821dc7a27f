// Package clock implements the causal clocks attached to store entries.
//
// A Clock is indexed by store-global feed index; entry i is the number of
// records of that feed the writer had observed. Missing indices are zero.
package clock

// Clock is a vector of observed feed lengths.
type Clock []uint64

// At returns c[i], or 0 when i is out of range.
func (c Clock) At(i int) uint64 {
	if i < 0 || i >= len(c) {
		return 0
	}
	return c[i]
}

// Merge returns the elementwise maximum of a and b.
func Merge(a, b Clock) Clock {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Clock, n)
	for i := range out {
		x, y := a.At(i), b.At(i)
		if y > x {
			x = y
		}
		out[i] = x
	}
	return out
}

// Dominates reports whether a[i] >= b[i] for every i.
func Dominates(a, b Clock) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a.At(i) < b.At(i) {
			return false
		}
	}
	return true
}

// Concurrent reports whether neither clock dominates the other.
func Concurrent(a, b Clock) bool {
	return !Dominates(a, b) && !Dominates(b, a)
}

// Point is the clock of a single record: offset+1 records of feed seen,
// nothing else.
func Point(feed int, offset uint64) Clock {
	c := make(Clock, feed+1)
	c[feed] = offset + 1
	return c
}

// Saw reports whether a writer with clock c had observed record offset of
// the feed at index feed.
func Saw(c Clock, feed int, offset uint64) bool {
	return Dominates(c, Point(feed, offset))
}

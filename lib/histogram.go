package lib

import "fmt"
import "math"
import "sort"
import "strconv"
import "strings"

// Histogram of int64 samples bucketed into fixed `width` intervals
// between `from` and `till`. Samples below `from` and at or above
// `till` fall into the first and last bucket.
type Histogram struct {
	n       int64
	minval  int64
	maxval  int64
	sum     int64
	sumsq   float64
	buckets []int64
	// setup
	from  int64
	till  int64
	width int64
}

// NewHistogram return a new histogram, `from` and `till` are rounded
// down to multiples of `width`.
func NewHistogram(from, till, width int64) *Histogram {
	if width <= 0 {
		panicerr("histogram width %v should be > 0", width)
	}
	from, till = (from/width)*width, (till/width)*width
	if till < from {
		panicerr("histogram till %v < from %v", till, from)
	}
	h := &Histogram{from: from, till: till, width: width}
	h.buckets = make([]int64, ((till-from)/width)+2)
	return h
}

// Add a sample.
func (h *Histogram) Add(sample int64) {
	if h.n == 0 || sample < h.minval {
		h.minval = sample
	}
	if h.n == 0 || sample > h.maxval {
		h.maxval = sample
	}
	h.n++
	h.sum += sample
	f := float64(sample)
	h.sumsq += f * f

	switch {
	case sample < h.from:
		h.buckets[0]++
	case sample >= h.till:
		h.buckets[len(h.buckets)-1]++
	default:
		h.buckets[((sample-h.from)/h.width)+1]++
	}
}

// Samples return number of samples added so far.
func (h *Histogram) Samples() int64 {
	return h.n
}

// Min sample.
func (h *Histogram) Min() int64 {
	return h.minval
}

// Max sample.
func (h *Histogram) Max() int64 {
	return h.maxval
}

// Sum of all samples.
func (h *Histogram) Sum() int64 {
	return h.sum
}

// Mean of all samples.
func (h *Histogram) Mean() int64 {
	if h.n == 0 {
		return 0
	}
	return h.sum / h.n
}

// SD standard deviation of samples.
func (h *Histogram) SD() float64 {
	if h.n == 0 {
		return 0
	}
	mean := float64(h.sum) / float64(h.n)
	variance := (h.sumsq / float64(h.n)) - (mean * mean)
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// Buckets return non-empty buckets keyed by the bucket's lower bound.
// Samples below `from` are keyed as "-", samples at or above `till`
// are keyed as "+".
func (h *Histogram) Buckets() map[string]int64 {
	m := make(map[string]int64)
	last := len(h.buckets) - 1
	for i, count := range h.buckets {
		if count == 0 {
			continue
		}
		switch i {
		case 0:
			m["-"] = count
		case last:
			m["+"] = count
		default:
			m[strconv.Itoa(int(h.from+int64(i-1)*h.width))] = count
		}
	}
	return m
}

// Fullstats return summary and buckets as a map.
func (h *Histogram) Fullstats() map[string]interface{} {
	return map[string]interface{}{
		"samples":   h.n,
		"min":       h.minval,
		"max":       h.maxval,
		"mean":      h.Mean(),
		"sd":        h.SD(),
		"histogram": h.Buckets(),
	}
}

// Logstring return the histogram as single line loggable string with
// buckets in ascending order.
func (h *Histogram) Logstring() string {
	buckets := h.Buckets()
	keys := make([]int, 0, len(buckets))
	for key := range buckets {
		if n, err := strconv.Atoi(key); err == nil {
			keys = append(keys, n)
		}
	}
	sort.Ints(keys)

	ss := make([]string, 0, len(buckets))
	if count, ok := buckets["-"]; ok {
		ss = append(ss, fmt.Sprintf(`"-": %v`, count))
	}
	for _, key := range keys {
		ss = append(ss, fmt.Sprintf(`"%v": %v`, key, buckets[strconv.Itoa(key)]))
	}
	if count, ok := buckets["+"]; ok {
		ss = append(ss, fmt.Sprintf(`"+": %v`, count))
	}
	fmsg := `{"samples": %v, "min": %v, "max": %v, "mean": %v, "histogram": {%v}}`
	return fmt.Sprintf(fmsg, h.n, h.minval, h.maxval, h.Mean(), strings.Join(ss, ", "))
}

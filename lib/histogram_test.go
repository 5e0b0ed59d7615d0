package lib

import "testing"
import "reflect"
import "strings"

func TestHistogram(t *testing.T) {
	h := NewHistogram(0, 100, 10)
	for i := int64(1); i <= 100; i++ {
		h.Add(i)
	}
	if x := h.Samples(); x != 100 {
		t.Errorf("expected %v, got %v", 100, x)
	} else if x = h.Min(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x = h.Max(); x != 100 {
		t.Errorf("expected %v, got %v", 100, x)
	} else if x = h.Sum(); x != 5050 {
		t.Errorf("expected %v, got %v", 5050, x)
	} else if x = h.Mean(); x != 50 {
		t.Errorf("expected %v, got %v", 50, x)
	}

	ref := map[string]int64{
		"0": 9, "10": 10, "20": 10, "30": 10, "40": 10,
		"50": 10, "60": 10, "70": 10, "80": 10, "90": 10, "+": 1,
	}
	if buckets := h.Buckets(); !reflect.DeepEqual(ref, buckets) {
		t.Errorf("expected %v, got %v", ref, buckets)
	}

	h.Add(-5)
	if x := h.Buckets()["-"]; x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := h.Min(); x != -5 {
		t.Errorf("expected %v, got %v", -5, x)
	}
	s := h.Logstring()
	if !strings.HasPrefix(s, `{"samples": 101`) || !strings.Contains(s, `"-": 1, "0": 9`) {
		t.Errorf("unexpected %v", s)
	}
}

func TestHistogramEmpty(t *testing.T) {
	h := NewHistogram(2, 14, 3)
	if h.Mean() != 0 || h.SD() != 0 || len(h.Buckets()) != 0 {
		t.Errorf("unexpected %v", h.Fullstats())
	}
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		NewHistogram(0, 10, 0)
	}()
}

func BenchmarkHistogramAdd(b *testing.B) {
	h := NewHistogram(0, 1024, 32)
	for i := 0; i < b.N; i++ {
		h.Add(int64(i & 0x7ff))
	}
}

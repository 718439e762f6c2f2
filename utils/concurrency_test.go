package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestStringSetNoDuplicates(t *testing.T) {
	s := NewStringSet()

	added := s.Add("上海浦东新区张江镇")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("上海浦东新区张江镇")
	if added {
		t.Error("second Add of same value should return false")
	}

	if !s.Contains("上海浦东新区张江镇") {
		t.Error("Contains should report an added value")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestStringSetConcurrency(t *testing.T) {
	s := NewStringSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("http://m.sh.bendibao.com/news/gelizhengce/fengxianmingdan.php") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var timestamps []time.Time
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			<-mu
			timestamps = append(timestamps, time.Now())
			mu <- struct{}{}
		})
	}
	pool.Wait()

	if len(timestamps) != 3 {
		t.Fatalf("jobs run: got %d, want 3", len(timestamps))
	}
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		min := time.Duration(rateLimitMs) * time.Millisecond
		// allow for timer granularity
		if gap < min-5*time.Millisecond {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestWorkerPoolClampsWorkers(t *testing.T) {
	pool := NewWorkerPool(0, 0)
	var ran int64
	pool.Submit(func() { atomic.AddInt64(&ran, 1) })
	pool.Wait()
	if ran != 1 {
		t.Errorf("jobs run: got %d, want 1", ran)
	}
}

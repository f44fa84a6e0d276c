package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newStore(t *testing.T) *Store[string] {
	t.Helper()
	s, err := New[string](Config{MaxEntries: 100, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := newStore(t)
	s.Set("a", "1")
	if v, ok := s.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	s.Delete("a")
	if _, ok := s.Get("a"); ok {
		t.Fatalf("Get after Delete should miss")
	}
}

func TestGetOrLoadCachesSuccess(t *testing.T) {
	s := newStore(t)
	var calls int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "report", nil
	}

	for i := 0; i < 3; i++ {
		v, err := s.GetOrLoad(context.Background(), "k", load)
		if err != nil || v != "report" {
			t.Fatalf("GetOrLoad = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}

	s.Clear()
	if _, err := s.GetOrLoad(context.Background(), "k", load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("loader should rerun after Clear, ran %d times", calls)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	s := newStore(t)
	boom := errors.New("boom")
	if _, err := s.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, err := s.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("GetOrLoad after error = %q, %v", v, err)
	}
}

func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	s := newStore(t)
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.GetOrLoad(context.Background(), "k", load); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}
}

func TestGetOrLoadDoesNotCacheAcrossClear(t *testing.T) {
	s := newStore(t)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, _ := s.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "before", nil
		})
		done <- v
	}()

	<-started
	s.Clear()
	close(release)
	if v := <-done; v != "before" {
		t.Fatalf("in-flight caller got %q, want before", v)
	}
	if v, ok := s.Get("k"); ok {
		t.Fatalf("value loaded across Clear was cached: %q", v)
	}

	v, err := s.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "after", nil })
	if err != nil || v != "after" {
		t.Fatalf("GetOrLoad after Clear = %q, %v, want after", v, err)
	}
}

func TestNewDefaultsZeroTTL(t *testing.T) {
	s, err := New[string](Config{MaxEntries: 10})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.ttl != DefaultConfig().TTL {
		t.Fatalf("ttl = %v, want %v", s.ttl, DefaultConfig().TTL)
	}
}

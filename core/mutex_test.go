package core

import (
	"sync"
	"testing"
	"time"
)

func TestReentrantMutexSameGoroutineNests(t *testing.T) {
	var m ReentrantMutex
	m.Lock()
	m.Lock()
	if d := m.Depth(); d != 2 {
		t.Fatalf("Depth() = %d, want 2", d)
	}
	m.Unlock()
	if !m.HeldByCaller() {
		t.Fatalf("expected still held after one Unlock")
	}
	m.Unlock()
	if m.HeldByCaller() {
		t.Fatalf("expected released after matching Unlocks")
	}
}

func TestReentrantMutexUnlockByNonOwnerPanics(t *testing.T) {
	var m ReentrantMutex
	m.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if recover() == nil {
				t.Errorf("expected panic unlocking from the wrong goroutine")
			}
		}()
		m.Unlock()
	}()
	<-done
	m.Unlock()
}

func TestReentrantMutexExcludesOtherGoroutines(t *testing.T) {
	var m ReentrantMutex
	m.Lock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		m.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatalf("other goroutine should not have acquired the lock yet")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("other goroutine never acquired the lock")
	}
}

func TestMutexSatisfiesLocker(t *testing.T) {
	var m Mutex
	var _ sync.Locker = &m
	m.Lock()
	m.Unlock()
}

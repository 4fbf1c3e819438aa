package guard

import (
	"sync"
	"testing"
)

func TestWithSubmissionSerializesAccess(t *testing.T) {
	g := New()
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.WithSubmission(func() {
				counter++
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50, got %d", counter)
	}
}

func TestWithQueueOperationSerializesAccess(t *testing.T) {
	g := New()
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.WithQueueOperation(func() {
				counter++
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50, got %d", counter)
	}
}

func TestSubmissionThenQueueOperationOrderingDoesNotDeadlock(t *testing.T) {
	g := New()
	g.WithSubmission(func() {
		g.WithQueueOperation(func() {})
	})
}

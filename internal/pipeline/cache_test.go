package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scribe/internal/logging"
	"scribe/internal/pipeline"
)

type fakeModel struct {
	key    pipeline.ModelKey
	closed atomic.Bool

	transcribe func(ctx context.Context, req pipeline.TranscribeRequest) (pipeline.TranscribeResult, error)
}

func (m *fakeModel) Transcribe(ctx context.Context, req pipeline.TranscribeRequest) (pipeline.TranscribeResult, error) {
	if m.transcribe == nil {
		return pipeline.TranscribeResult{}, errors.New("transcribe not stubbed")
	}
	return m.transcribe(ctx, req)
}

func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

type fakeLoader struct {
	mu     sync.Mutex
	loads  int32
	delay  time.Duration
	err    error
	models []*fakeModel
}

func (l *fakeLoader) Load(ctx context.Context, key pipeline.ModelKey) (pipeline.Model, error) {
	atomic.AddInt32(&l.loads, 1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.err != nil {
		return nil, l.err
	}
	model := &fakeModel{key: key}
	l.mu.Lock()
	l.models = append(l.models, model)
	l.mu.Unlock()
	return model, nil
}

func (l *fakeLoader) loadCount() int32 {
	return atomic.LoadInt32(&l.loads)
}

func TestCacheReusesModelForSameKey(t *testing.T) {
	loader := &fakeLoader{}
	cache := pipeline.NewCache(loader, logging.NewNop())

	key := pipeline.ModelKey{Model: "medium", Device: "cpu", ComputeType: "float16"}
	first, err := cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first != second {
		t.Fatal("expected the resident model instance to be reused")
	}
	if loader.loadCount() != 1 {
		t.Fatalf("expected 1 load, got %d", loader.loadCount())
	}
}

func TestCacheReloadsOnKeyChange(t *testing.T) {
	loader := &fakeLoader{}
	cache := pipeline.NewCache(loader, logging.NewNop())

	ctx := context.Background()
	first, err := cache.Get(ctx, pipeline.ModelKey{Model: "medium", Device: "cpu", ComputeType: "float16"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := cache.Get(ctx, pipeline.ModelKey{Model: "large-v2", Device: "cpu", ComputeType: "float16"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first == second {
		t.Fatal("expected a different model after key change")
	}
	if loader.loadCount() != 2 {
		t.Fatalf("expected 2 loads, got %d", loader.loadCount())
	}
	if !first.(*fakeModel).closed.Load() {
		t.Fatal("expected evicted model to be closed")
	}
	if second.(*fakeModel).closed.Load() {
		t.Fatal("resident model must stay open")
	}
}

func TestCacheKeepsResidentModelOnLoadFailure(t *testing.T) {
	loader := &fakeLoader{}
	cache := pipeline.NewCache(loader, logging.NewNop())

	ctx := context.Background()
	key := pipeline.ModelKey{Model: "medium", Device: "cpu", ComputeType: "float16"}
	resident, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	loader.err = errors.New("weights unavailable")
	if _, err := cache.Get(ctx, pipeline.ModelKey{Model: "large-v2", Device: "cpu", ComputeType: "float16"}); err == nil {
		t.Fatal("expected load failure to propagate")
	}
	if resident.(*fakeModel).closed.Load() {
		t.Fatal("failed swap must not close the resident model")
	}

	loader.err = nil
	again, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again != resident {
		t.Fatal("resident model should survive a failed swap")
	}
	if loader.loadCount() != 2 {
		t.Fatalf("expected 2 loads, got %d", loader.loadCount())
	}
}

func TestCacheSerializesConcurrentLoads(t *testing.T) {
	loader := &fakeLoader{delay: 20 * time.Millisecond}
	cache := pipeline.NewCache(loader, logging.NewNop())

	key := pipeline.ModelKey{Model: "medium", Device: "cpu", ComputeType: "float16"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(context.Background(), key); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if loader.loadCount() != 1 {
		t.Fatalf("expected a single load for identical keys, got %d", loader.loadCount())
	}
}

func TestCacheCloseReleasesModel(t *testing.T) {
	loader := &fakeLoader{}
	cache := pipeline.NewCache(loader, logging.NewNop())

	model, err := cache.Get(context.Background(), pipeline.ModelKey{Model: "medium", Device: "cpu", ComputeType: "float16"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !model.(*fakeModel).closed.Load() {
		t.Fatal("expected Close to release the resident model")
	}
}

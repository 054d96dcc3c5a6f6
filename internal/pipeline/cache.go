package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"scribe/internal/logging"
)

// Cache is a single-slot model cache. It returns the resident model while
// the requested key matches and swaps in a freshly loaded model when it
// does not. The mutex is held across loads so concurrent callers never
// trigger duplicate loads of the same key.
type Cache struct {
	loader ModelLoader
	logger *slog.Logger

	mu    sync.Mutex
	key   ModelKey
	model Model
}

// NewCache wraps a model loader with single-slot reuse semantics.
func NewCache(loader ModelLoader, logger *slog.Logger) *Cache {
	return &Cache{
		loader: loader,
		logger: logging.NewComponentLogger(logger, "model-cache"),
	}
}

// Get returns a model for the key, loading one only when the resident
// model's key differs. A failed load leaves the resident model in place.
func (c *Cache) Get(ctx context.Context, key ModelKey) (Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model != nil && c.key == key {
		return c.model, nil
	}

	c.logger.Info("loading model",
		logging.String(logging.FieldModel, key.Model),
		logging.String("device", key.Device),
		logging.String("compute_type", key.ComputeType),
	)
	model, err := c.loader.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	if c.model != nil {
		c.logger.Info("releasing previous model",
			logging.String(logging.FieldModel, c.key.Model),
			logging.String("device", c.key.Device),
			logging.String("compute_type", c.key.ComputeType),
		)
		if closeErr := c.model.Close(); closeErr != nil {
			c.logger.Warn("previous model close failed", logging.Error(closeErr))
		}
	}

	c.key = key
	c.model = model
	return model, nil
}

// Close releases the resident model, if any.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model == nil {
		return nil
	}
	err := c.model.Close()
	c.model = nil
	c.key = ModelKey{}
	return err
}

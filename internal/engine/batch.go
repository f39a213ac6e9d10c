package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

const (
	DefaultRetryMultiple          = 5
	DefaultMaxConsecutiveFailures = 25
)

// BatchOptions bounds a batch run
type BatchOptions struct {
	// RetryMultiple times the requested count is the total attempt budget
	RetryMultiple int
	// MaxConsecutiveFailures aborts the run after that many misses in a row
	MaxConsecutiveFailures int
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.RetryMultiple <= 0 {
		o.RetryMultiple = DefaultRetryMultiple
	}
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	return o
}

// BatchResult holds the unique realizations of a batch run. A short result
// is reported through Warning, not an error.
type BatchResult struct {
	Items     []*Realization `json:"items"`
	Requested int            `json:"requested"`
	Attempts  int            `json:"attempts"`
	Warning   string         `json:"warning,omitempty"`
}

// Surfaces lists the generated texts in order
func (b *BatchResult) Surfaces() []string {
	out := make([]string, len(b.Items))
	for i, r := range b.Items {
		out[i] = r.Surface
	}
	return out
}

// GenerateBatch produces up to n distinct surfaces from pool. A duplicate
// or empty surface retries the same slot.
func (e *Engine) GenerateBatch(ctx context.Context, n int, pool []*models.TemplateDocument, profile *models.Profile, req Request, opts BatchOptions) (*BatchResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", n)
	}
	opts = opts.withDefaults()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.restart()

	result := &BatchResult{Requested: n}
	seen := make(map[string]bool, n)
	budget := n * opts.RetryMultiple
	consecutive := 0

	for len(result.Items) < n && result.Attempts < budget {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Attempts++

		r, err := e.generateLocked(ctx, pool, profile, req)
		if err != nil {
			return nil, err
		}
		key := strings.TrimSpace(r.Surface)
		if key == "" || seen[key] {
			consecutive++
			if consecutive >= opts.MaxConsecutiveFailures {
				e.logger.Debug("batch aborted after consecutive failures", zap.Int("failures", consecutive))
				break
			}
			continue
		}
		consecutive = 0
		seen[key] = true
		result.Items = append(result.Items, r)
	}

	if len(result.Items) < n {
		result.Warning = fmt.Sprintf("generated %d of %d unique results after %d attempts", len(result.Items), n, result.Attempts)
		e.logger.Info("batch exhausted", zap.Int("generated", len(result.Items)), zap.Int("requested", n))
	}
	if e.recorder.Enabled() {
		e.recorder.Record("generateBatch", map[string]interface{}{
			"requested": n,
			"budget":    budget,
		}, map[string]interface{}{
			"generated": len(result.Items),
			"attempts":  result.Attempts,
		})
	}
	return result, nil
}

package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/figureshelf/catalog"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of concurrent chunk evaluations
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the list size below which evaluation stays sequential
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator evaluates a filter over chunks of cards in parallel
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate evaluates a filter against all cards, keeping their order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, cards []catalog.FigureCard) ([]catalog.FigureCard, error) {
	if len(cards) == 0 {
		return []catalog.FigureCard{}, nil
	}

	if len(cards) < e.batchSize || !filter.IsThreadSafe() {
		return evaluateSequential(filter, cards), nil
	}

	return e.evaluateConcurrent(ctx, filter, cards)
}

func evaluateSequential(filter Filter, cards []catalog.FigureCard) []catalog.FigureCard {
	matches := make([]catalog.FigureCard, 0, len(cards))
	for _, card := range cards {
		if filter.Evaluate(card) {
			matches = append(matches, card)
		}
	}
	return matches
}

func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, cards []catalog.FigureCard) ([]catalog.FigureCard, error) {
	chunkSize := max(len(cards)/e.workerCount, e.batchSize)
	chunks := (len(cards) + chunkSize - 1) / chunkSize
	results := make([][]catalog.FigureCard, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for i := 0; i < chunks; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, len(cards))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// each goroutine owns its slot
			results[i] = evaluateSequential(filter, cards[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	matches := make([]catalog.FigureCard, 0, total)
	for _, r := range results {
		matches = append(matches, r...)
	}
	return matches, nil
}

package filter

import (
	"context"

	"github.com/s0up4200/figureshelf/catalog"
)

// Filter defines the basic interface for figure filters
type Filter interface {
	// Evaluate checks if a figure card matches the filter criteria
	Evaluate(card catalog.FigureCard) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string

	// IsThreadSafe indicates if the filter can be evaluated concurrently
	IsThreadSafe() bool
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against figure cards
type Evaluator interface {
	// Evaluate returns the matching cards in their original order
	Evaluate(ctx context.Context, filter CompiledFilter, cards []catalog.FigureCard) ([]catalog.FigureCard, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

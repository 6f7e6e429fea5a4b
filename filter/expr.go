package filter

import (
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/lru"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	logger     zerolog.Logger
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = lru.New[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// WithLogger sets the logger runtime evaluation failures are reported to
func WithLogger(logger zerolog.Logger) ExprCompilerOption {
	return func(c *exprCompiler) {
		c.logger = logger
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lru.Cache[CompiledFilter]
	logger      zerolog.Logger
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(), // card properties are bound at run time
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		logger:     c.logger,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against a figure card.
// A card that makes the expression fail at run time does not match.
func (f *exprFilter) Evaluate(card catalog.FigureCard) bool {
	result, err := expr.Run(f.program, createRuntimeEnvironment(card))
	if err != nil {
		f.logger.Debug().
			Err(&EvaluationError{Expression: f.expression, FigureID: card.ID, Err: err}).
			Msg("Filter evaluation failed")
		return false
	}

	return result.(bool)
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// IsThreadSafe indicates that expr filters are thread-safe
func (f *exprFilter) IsThreadSafe() bool {
	return true
}

// createHelperFunctions creates the static environment used during compilation.
// Card-bound helpers are declared with their signatures so calls type-check.
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)
	addHelperFunctions(funcs)
	funcs["hasStatus"] = func(string) bool { return false }
	funcs["madeBy"] = func(string) bool { return false }
	funcs["nameContains"] = func(string) bool { return false }
	return funcs
}

// addHelperFunctions adds the card independent helpers to env
func addHelperFunctions(env map[string]any) {
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
}

// createRuntimeEnvironment binds a card's properties and helpers
func createRuntimeEnvironment(card catalog.FigureCard) map[string]any {
	env := make(map[string]any, 16)

	addHelperFunctions(env)

	env["Figure"] = card
	env["hasStatus"] = createHasStatusFunc(card.Status)
	env["madeBy"] = createMadeByFunc(card.ManufacturerName)
	env["nameContains"] = createNameContainsFunc(card.Name)

	env["ID"] = card.ID
	env["Name"] = card.Name
	env["Manufacturer"] = card.ManufacturerName
	env["Status"] = string(card.Status)
	env["Sealed"] = card.IsSealed
	env["HasImage"] = card.ImageURL != "" && card.ImageURL != catalog.PlaceholderImageURL

	return env
}

func createHasStatusFunc(status catalog.Status) func(string) bool {
	return func(s string) bool {
		return strings.EqualFold(string(status), s)
	}
}

func createMadeByFunc(manufacturer string) func(string) bool {
	return func(name string) bool {
		return strings.EqualFold(manufacturer, name)
	}
}

func createNameContainsFunc(name string) func(string) bool {
	lowerName := strings.ToLower(name)
	return func(s string) bool {
		return strings.Contains(lowerName, strings.ToLower(s))
	}
}

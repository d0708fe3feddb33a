package problemgen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

var (
	ErrUnknownGrade    = errors.New("problemgen: unknown grade")
	ErrUnknownLevel    = errors.New("problemgen: unknown level")
	ErrUnknownCategory = errors.New("problemgen: unknown category")
	ErrNoCategories    = errors.New("problemgen: no categories requested")
)

// Generator synthesizes arithmetic problems. It is safe for concurrent use.
type Generator struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes the generator deterministic for the given seed.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand injects the random source.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// New creates a Generator. Without WithSeed or WithRand it is seeded randomly.
func New(cfg Config, opts ...Option) *Generator {
	g := &Generator{cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

// Generate produces the problem at position (0-based) of a session.
//
// If types contains CategoryRandom, a category is drawn uniformly from the
// categories valid for grade. Otherwise categories are used round-robin:
// types[position % len(types)].
//
// All configured validators run before returning; a rejected problem is
// reported as a *ValidationError and may simply be regenerated.
func (g *Generator) Generate(grade Grade, types []Category, level Level, position int) (Problem, error) {
	if !grade.Valid() {
		return Problem{}, fmt.Errorf("%w: %q", ErrUnknownGrade, grade)
	}
	if !level.Valid() {
		return Problem{}, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	if len(types) == 0 {
		return Problem{}, ErrNoCategories
	}
	if position < 0 {
		position = 0
	}

	g.mu.Lock()
	var cat Category
	if slices.Contains(types, CategoryRandom) {
		pool := CategoriesFor(grade)
		cat = pool[g.rng.IntN(len(pool))]
	} else {
		cat = types[position%len(types)]
	}
	p, err := g.generate(cat, level)
	g.mu.Unlock()
	if err != nil {
		return Problem{}, err
	}

	p.ID = position + 1
	if verr := g.Check(&p); verr != nil {
		return Problem{}, verr
	}
	return p, nil
}

// Check runs the configured validator chain on p.
func (g *Generator) Check(p *Problem) *ValidationError {
	for _, v := range g.cfg.Validators {
		if err := v.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

// generate dispatches to the per-category synthesizer. Callers hold g.mu.
func (g *Generator) generate(cat Category, level Level) (Problem, error) {
	var p Problem
	switch cat {
	case CategoryAddition:
		a, b := g.operandShape(level)
		p = binary(a, b, OpAdd, a+b)
	case CategorySubtraction:
		a, b := g.operandShape(level)
		if a < b {
			a, b = b, a
		}
		p = binary(a, b, OpSub, a-b)
	case CategoryMultiplication:
		a, b := g.factors(level)
		p = binary(a, b, OpMul, a*b)
	case CategoryDivision:
		p = g.division(level)
	case CategoryFraction:
		p = g.fraction(level)
	case CategoryDecimal:
		p = g.decimal(level)
	case CategoryPower:
		p = g.square(level)
	case CategoryRatio:
		p = g.ratio(level)
	default:
		return Problem{}, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	p.Category = cat
	p.AnswerType = cat.AnswerType()
	return p, nil
}

// operandShape picks two operands whose magnitude grows with level.
func (g *Generator) operandShape(level Level) (int, int) {
	switch level {
	case LevelIntermediate:
		switch g.rng.IntN(3) {
		case 0:
			return g.between(1, 9), g.between(1, 9)
		case 1:
			return g.between(10, 99), g.between(1, 9)
		default:
			return g.between(10, 99), g.between(10, 99)
		}
	case LevelAdvanced:
		switch g.rng.IntN(3) {
		case 0:
			return g.between(10, 99), g.between(10, 99)
		case 1:
			return g.between(100, 999), g.between(10, 99)
		default:
			return g.between(100, 999), g.between(100, 999)
		}
	default:
		return g.between(1, 9), g.between(1, 9)
	}
}

// factors picks multiplication factors: single-digit facts unless scaled.
func (g *Generator) factors(level Level) (int, int) {
	if g.cfg.ScaledMultiplication {
		return g.operandShape(level)
	}
	return g.between(1, 9), g.between(1, 9)
}

// division builds the dividend from two factors so the quotient is exact.
func (g *Generator) division(level Level) Problem {
	f1, f2 := g.factors(level)
	product := f1 * f2
	divisor := f1
	if g.rng.IntN(2) == 1 {
		divisor = f2
	}
	return binary(product, divisor, OpDiv, product/divisor)
}

func (g *Generator) fraction(level Level) Problem {
	a, b := g.between(2, 9), g.between(2, 9)
	if level == LevelBeginner {
		return Problem{
			Question: fmt.Sprintf("1/%d + 1/%d = ?", a, b),
			Answer:   formatFraction(int64(a+b), int64(a*b)),
			Operands: FractionOperands{Left: a, Right: b, Op: OpAdd},
		}
	}
	return Problem{
		Question: fmt.Sprintf("1/%d × 1/%d = ?", a, b),
		Answer:   formatFraction(1, int64(a*b)),
		Operands: FractionOperands{Left: a, Right: b, Op: OpMul},
	}
}

func (g *Generator) decimal(level Level) Problem {
	var a, b int
	switch level {
	case LevelIntermediate:
		a, b = g.between(1, 999), g.between(1, 99)
	case LevelAdvanced:
		a, b = g.between(1, 9999), g.between(1, 999)
	default:
		a, b = g.between(1, 99), g.between(1, 9)
	}
	return Problem{
		Question: fmt.Sprintf("%s + %s = ?", formatTenths(a), formatTenths(b)),
		Answer:   formatTenths(a + b),
		Operands: DecimalOperands{LeftTenths: a, RightTenths: b},
	}
}

func (g *Generator) square(level Level) Problem {
	var n int
	switch level {
	case LevelIntermediate:
		n = g.between(10, 20)
	case LevelAdvanced:
		n = g.between(21, 30)
	default:
		n = g.between(2, 9)
	}
	return Problem{
		Question: fmt.Sprintf("%d² = ?", n),
		Answer:   fmt.Sprint(n * n),
		Operands: SquareOperands{Base: n},
	}
}

func (g *Generator) ratio(level Level) Problem {
	a, b := g.between(2, 10), g.between(2, 10)
	var k int
	switch level {
	case LevelIntermediate:
		k = g.between(2, 10)
	case LevelAdvanced:
		k = g.between(5, 15)
	default:
		k = g.between(2, 5)
	}
	return Problem{
		Question: fmt.Sprintf("%d : %d = ? : %d", a, b, b*k),
		Answer:   fmt.Sprint(a * k),
		Operands: RatioOperands{Left: a, Right: b, Multiplier: k},
	}
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func binary(a, b int, op Operator, result int) Problem {
	return Problem{
		Question: fmt.Sprintf("%d %s %d = ?", a, op, b),
		Answer:   fmt.Sprint(result),
		Operands: BinaryOperands{Left: a, Right: b, Op: op},
	}
}

// formatFraction renders num/den in lowest terms; whole numbers render
// without a denominator.
func formatFraction(num, den int64) string {
	g := gcd(abs(num), abs(den))
	if g > 1 {
		num /= g
		den /= g
	}
	if den == 1 {
		return fmt.Sprint(num)
	}
	return fmt.Sprintf("%d/%d", num, den)
}

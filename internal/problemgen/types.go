package problemgen

import (
	"fmt"
	"slices"
)

// Grade is a school grade label as shown to the learner.
type Grade string

const (
	Grade1 Grade = "1학년"
	Grade2 Grade = "2학년"
	Grade3 Grade = "3학년"
	Grade4 Grade = "4학년"
	Grade5 Grade = "5학년"
	Grade6 Grade = "6학년"
)

// Grades lists every grade in display order.
var Grades = []Grade{Grade1, Grade2, Grade3, Grade4, Grade5, Grade6}

// Valid reports whether g is a known grade.
func (g Grade) Valid() bool {
	return slices.Contains(Grades, g)
}

// OffersRandom reports whether the Random type can be chosen for g.
func (g Grade) OffersRandom() bool {
	switch g {
	case Grade4, Grade5, Grade6:
		return true
	}
	return false
}

// Level is a difficulty tier controlling operand magnitudes.
type Level string

const (
	LevelBeginner     Level = "초급"
	LevelIntermediate Level = "중급"
	LevelAdvanced     Level = "고급"
)

// Levels lists every level in display order.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return slices.Contains(Levels, l)
}

// Category is an operation type, or the Random sentinel.
type Category string

const (
	CategoryAddition       Category = "덧셈"
	CategorySubtraction    Category = "뺄셈"
	CategoryMultiplication Category = "곱셈"
	CategoryDivision       Category = "나눗셈"
	CategoryFraction       Category = "분수"
	CategoryDecimal        Category = "소수"
	CategoryPower          Category = "제곱"
	CategoryRatio          Category = "비와 비율"

	// CategoryRandom asks the generator to pick a category per problem.
	CategoryRandom Category = "Random"
)

// AllCategories lists every concrete category in display order.
var AllCategories = []Category{
	CategoryAddition,
	CategorySubtraction,
	CategoryMultiplication,
	CategoryDivision,
	CategoryFraction,
	CategoryDecimal,
	CategoryPower,
	CategoryRatio,
}

// CategoriesFor returns the concrete categories offered for grade.
// Unknown grades get every category.
func CategoriesFor(g Grade) []Category {
	switch g {
	case Grade1:
		return []Category{CategoryAddition, CategorySubtraction}
	case Grade2, Grade3:
		return []Category{CategoryAddition, CategorySubtraction, CategoryMultiplication, CategoryDivision}
	default:
		return slices.Clone(AllCategories)
	}
}

// AllowedFor reports whether c is a concrete category valid for grade g.
func (c Category) AllowedFor(g Grade) bool {
	return slices.Contains(CategoriesFor(g), c)
}

// AnswerType returns how answers to problems of category c are compared.
func (c Category) AnswerType() AnswerType {
	switch c {
	case CategoryFraction:
		return AnswerTypeFraction
	case CategoryDecimal:
		return AnswerTypeDecimal
	default:
		return AnswerTypeInteger
	}
}

// Problem is a single generated question. It is immutable once generated.
type Problem struct {
	// ID is the 1-based position of the problem in its session.
	ID int `json:"id"`

	// Category is the concrete category the problem was drawn from.
	Category Category `json:"category"`

	// Question is the plain-text prompt, e.g. "12 + 7 = ?".
	Question string `json:"question"`

	// Answer is the canonical correct answer, e.g. "19", "7/12", "4.6".
	Answer string `json:"answer"`

	// AnswerType describes how Answer is normalized for comparison.
	AnswerType AnswerType `json:"answerType"`

	// Operands carries the category-specific inputs. Nil for problems
	// that were not produced by Generator.
	Operands Operands `json:"-"`
}

// Key identifies a problem for duplicate detection within a session.
func (p Problem) Key() string {
	return p.Question + "-" + p.Answer
}

// Markup returns the markup-math rendering of the question, falling back
// to the plain-text question.
func (p Problem) Markup() string {
	if p.Operands == nil {
		return p.Question
	}
	return p.Operands.Markup()
}

// AnswerType describes the numeric representation of the correct answer.
type AnswerType string

const (
	AnswerTypeInteger  AnswerType = "integer"  // e.g. "623"
	AnswerTypeDecimal  AnswerType = "decimal"  // e.g. "3.7"
	AnswerTypeFraction AnswerType = "fraction" // e.g. "7/12"
)

// Operator is a binary arithmetic operator.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "×"
	OpDiv Operator = "÷"
)

// Operands is the category-specific payload of a Problem.
// The set of implementations is closed.
type Operands interface {
	// Markup renders the question in markup-math (LaTeX) notation.
	Markup() string
	operands()
}

// BinaryOperands backs 덧셈, 뺄셈, 곱셈 and 나눗셈 problems.
type BinaryOperands struct {
	Left, Right int
	Op          Operator
}

func (o BinaryOperands) Markup() string {
	op := string(o.Op)
	switch o.Op {
	case OpMul:
		op = `\times`
	case OpDiv:
		op = `\div`
	}
	return fmt.Sprintf("%d %s %d = ?", o.Left, op, o.Right)
}

// FractionOperands backs 분수 problems: 1/Left Op 1/Right.
type FractionOperands struct {
	Left, Right int
	Op          Operator
}

func (o FractionOperands) Markup() string {
	op := "+"
	if o.Op == OpMul {
		op = `\times`
	}
	return fmt.Sprintf(`\frac{1}{%d} %s \frac{1}{%d} = ?`, o.Left, op, o.Right)
}

// DecimalOperands backs 소수 problems. Values are in tenths.
type DecimalOperands struct {
	LeftTenths, RightTenths int
}

func (o DecimalOperands) Markup() string {
	return fmt.Sprintf("%s + %s = ?", formatTenths(o.LeftTenths), formatTenths(o.RightTenths))
}

// SquareOperands backs 제곱 problems.
type SquareOperands struct {
	Base int
}

func (o SquareOperands) Markup() string {
	return fmt.Sprintf("%d^{2} = ?", o.Base)
}

// RatioOperands backs 비와 비율 problems: Left : Right = ? : Right×Multiplier.
type RatioOperands struct {
	Left, Right, Multiplier int
}

func (o RatioOperands) Markup() string {
	return fmt.Sprintf(`%d : %d = \square : %d`, o.Left, o.Right, o.Right*o.Multiplier)
}

func (BinaryOperands) operands()   {}
func (FractionOperands) operands() {}
func (DecimalOperands) operands()  {}
func (SquareOperands) operands()   {}
func (RatioOperands) operands()    {}

// formatTenths renders a count of tenths with exactly one decimal place.
func formatTenths(tenths int) string {
	sign := ""
	if tenths < 0 {
		sign = "-"
		tenths = -tenths
	}
	return fmt.Sprintf("%s%d.%d", sign, tenths/10, tenths%10)
}

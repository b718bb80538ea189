package parser

// SelectColumn is the closed set of select-list variants. The two
// implementations are ColumnRef and AggregateColumn; generators switch
// over them exhaustively.
type SelectColumn interface {
	selectColumn()
}

// ColumnRef is a plain column reference, optionally table-qualified
// and aliased. Wildcard marks the `*` select list.
type ColumnRef struct {
	Table    string
	Name     string
	Alias    string
	Wildcard bool
}

func (*ColumnRef) selectColumn() {}

// AggregateColumn is an aggregate function applied to a column.
// Column is "*" for COUNT(*).
type AggregateColumn struct {
	Func   AggregateFunc
	Column string
	Alias  string
}

func (*AggregateColumn) selectColumn() {}

// AggregateFunc is a supported aggregate function name (lowercase).
type AggregateFunc string

// Supported aggregate functions.
const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
)

// aggregateFuncs maps lowercase function names to AggregateFunc values.
var aggregateFuncs = map[string]AggregateFunc{
	"count": AggCount,
	"sum":   AggSum,
	"avg":   AggAvg,
	"min":   AggMin,
	"max":   AggMax,
}

// Operator is a comparison operator in a WHERE predicate, stored in its
// SQL spelling.
type Operator string

// Supported predicate operators.
const (
	OpEq      Operator = "="
	OpNe      Operator = "<>"
	OpLt      Operator = "<"
	OpGt      Operator = ">"
	OpLe      Operator = "<="
	OpGe      Operator = ">="
	OpLike    Operator = "LIKE"
	OpNotLike Operator = "NOT LIKE"
	OpNull    Operator = "IS NULL"
	OpNotNull Operator = "IS NOT NULL"
)

// Condition is one predicate of the flat AND-chain in WHERE.
// Value is empty for IS NULL / IS NOT NULL.
type Condition struct {
	Attribute string
	Operator  Operator
	Value     string
}

// OrderKey is one ORDER BY sort key.
type OrderKey struct {
	Attribute  string
	Descending bool
}

// SelectStatement is the parsed form of a SELECT statement. It is built
// once by the parser and never mutated afterwards; generators treat it
// as read-only.
type SelectStatement struct {
	Entity   string
	Columns  []SelectColumn
	Where    []Condition
	OrderBy  []OrderKey
	Top      int // 0 = no TOP clause
	Distinct bool
}

// Wildcard returns true if the select list is `*`.
func (s *SelectStatement) Wildcard() bool {
	for _, col := range s.Columns {
		if ref, ok := col.(*ColumnRef); ok && ref.Wildcard {
			return true
		}
	}
	return false
}

// HasAggregates returns true if any select-list entry is an aggregate.
func (s *SelectStatement) HasAggregates() bool {
	for _, col := range s.Columns {
		if _, ok := col.(*AggregateColumn); ok {
			return true
		}
	}
	return false
}

// ColumnNames returns the names of the plain (non-wildcard, non-aggregate)
// columns in select-list order.
func (s *SelectStatement) ColumnNames() []string {
	var names []string
	for _, col := range s.Columns {
		if ref, ok := col.(*ColumnRef); ok && !ref.Wildcard {
			names = append(names, ref.Name)
		}
	}
	return names
}

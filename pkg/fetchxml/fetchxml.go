// Package fetchxml generates, validates, and reverse-transpiles the
// FetchXML query format of the remote tabular data service.
//
// All entry points are pure functions over their inputs: Generate maps
// a parsed SelectStatement to FetchXML text, Validate structurally
// checks FetchXML text, and ToSQL reconstructs an equivalent SQL
// statement from valid FetchXML. None of them perform I/O, and all of
// them are cheap enough to run on every keystroke.
package fetchxml

import (
	"fmt"

	"github.com/querylink/fetchsql/pkg/parser"
)

// Element and attribute names of the FetchXML format.
const (
	elemFetch     = "fetch"
	elemEntity    = "entity"
	elemAttribute = "attribute"
	elemFilter    = "filter"
	elemCondition = "condition"
	elemOrder     = "order"
	elemLink      = "link-entity"

	attrName       = "name"
	attrTop        = "top"
	attrDistinct   = "distinct"
	attrAggregate  = "aggregate"
	attrAlias      = "alias"
	attrAttribute  = "attribute"
	attrOperator   = "operator"
	attrValue      = "value"
	attrDescending = "descending"
	attrFilterType = "type"
)

// operatorNames maps SQL predicate operators to FetchXML operator names.
var operatorNames = map[parser.Operator]string{
	parser.OpEq:      "eq",
	parser.OpNe:      "ne",
	parser.OpLt:      "lt",
	parser.OpGt:      "gt",
	parser.OpLe:      "le",
	parser.OpGe:      "ge",
	parser.OpLike:    "like",
	parser.OpNotLike: "not-like",
	parser.OpNull:    "null",
	parser.OpNotNull: "not-null",
}

// sqlOperators is the reverse of operatorNames.
var sqlOperators = map[string]parser.Operator{}

func init() {
	for op, name := range operatorNames {
		sqlOperators[name] = op
	}
	// The service also accepts "neq" as a spelling of ne.
	sqlOperators["neq"] = parser.OpNe
}

// aggregateNames maps SQL aggregate functions to FetchXML aggregate
// names. COUNT(*) maps to "count" and COUNT(column) to "countcolumn";
// the remaining functions share their SQL names.
var aggregateNames = map[parser.AggregateFunc]string{
	parser.AggCount: "countcolumn",
	parser.AggSum:   "sum",
	parser.AggAvg:   "avg",
	parser.AggMin:   "min",
	parser.AggMax:   "max",
}

const aggregateCountAll = "count"

// Warning reports non-fatal information loss during conversion.
// Feature identifies the construct that could not be represented
// losslessly so callers can branch on it.
type Warning struct {
	Message string `json:"message"`
	Feature string `json:"feature"`
}

// Warning feature identifiers.
const (
	FeatureAggregate = "aggregate"
	FeatureOperator  = "operator"
	FeatureFilter    = "filter"
	FeatureJoin      = "join"
)

// InternalError reports an AST invariant violation. It indicates a bug
// in the caller or the parser, never bad user input.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Message)
}

func internalf(format string, args ...any) error {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

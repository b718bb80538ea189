package fetchxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/querylink/fetchsql/pkg/parser"
)

// SQLResult is the outcome of ToSQL. Warnings report best-effort
// conversions of constructs the SQL subset cannot represent losslessly;
// they never block success.
type SQLResult struct {
	Success    bool              `json:"success"`
	SQL        string            `json:"sql,omitempty"`
	EntityName string            `json:"entityName,omitempty"`
	Warnings   []Warning         `json:"warnings,omitempty"`
	Errors     []ValidationError `json:"errors,omitempty"`
}

// ToSQL reconstructs an equivalent SQL SELECT statement from FetchXML
// text. The input is validated first; on failure the result carries the
// validation errors and no SQL is generated.
func ToSQL(text string) SQLResult {
	if v := Validate(text); !v.Valid {
		return SQLResult{Errors: v.Errors}
	}

	doc := etree.NewDocument()
	// Validate already proved the document well-formed.
	if err := doc.ReadFromString(text); err != nil {
		return SQLResult{Errors: []ValidationError{malformedError(err)}}
	}
	root := doc.Root()
	entity := entityElements(root)[0]
	entityName := entity.SelectAttrValue(attrName, "")

	r := &reverser{}
	var sql strings.Builder
	sql.WriteString("SELECT ")

	if root.SelectAttrValue(attrDistinct, "") == "true" {
		sql.WriteString("DISTINCT ")
	}
	if top := root.SelectAttrValue(attrTop, ""); top != "" {
		sql.WriteString("TOP " + top + " ")
	}
	if root.SelectAttrValue(attrAggregate, "") == "true" {
		r.warnf(FeatureAggregate, "aggregate mode has no full SQL equivalent; grouping semantics are not preserved")
	}

	sql.WriteString(r.columnList(entity))
	sql.WriteString(" FROM ")
	sql.WriteString(entityName)

	if where := r.whereClause(entity); where != "" {
		sql.WriteString(" WHERE ")
		sql.WriteString(where)
	}
	if order := r.orderClause(entity); order != "" {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(order)
	}

	if len(entity.SelectElements(elemLink)) > 0 {
		r.warnf(FeatureJoin, "link-entity elements are not representable in SQL and were ignored")
	}

	return SQLResult{
		Success:    true,
		SQL:        sql.String(),
		EntityName: entityName,
		Warnings:   r.warnings,
	}
}

// reverser accumulates warnings while walking the document.
type reverser struct {
	warnings []Warning
}

func (r *reverser) warnf(feature, format string, args ...any) {
	r.warnings = append(r.warnings, Warning{
		Message: fmt.Sprintf(format, args...),
		Feature: feature,
	})
}

// columnList renders the select list from the entity's attribute
// elements. An absent attribute list means the server returns all
// columns, which round-trips as `*`.
func (r *reverser) columnList(entity *etree.Element) string {
	attrs := entity.SelectElements(elemAttribute)
	if len(attrs) == 0 {
		return "*"
	}

	cols := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		cols = append(cols, r.column(attr))
	}
	return strings.Join(cols, ", ")
}

// column renders one attribute element as a select-list entry.
func (r *reverser) column(attr *etree.Element) string {
	name := attr.SelectAttrValue(attrName, "")
	aggregate := attr.SelectAttrValue(attrAggregate, "")
	if aggregate == "" {
		return name
	}

	var col string
	switch aggregate {
	case aggregateCountAll:
		col = "COUNT(*)"
	case "countcolumn":
		col = fmt.Sprintf("COUNT(%s)", name)
	case "sum", "avg", "min", "max":
		col = fmt.Sprintf("%s(%s)", strings.ToUpper(aggregate), name)
	default:
		r.warnf(FeatureAggregate, "unknown aggregate %q on attribute %q", aggregate, name)
		return name
	}
	if alias := attr.SelectAttrValue(attrAlias, ""); alias != "" {
		col += " AS " + alias
	}
	return col
}

// whereClause renders the entity's filter as a flat AND-chain. Nested
// filter groups and OR combinators have no equivalent in the supported
// subset and are reported as warnings.
func (r *reverser) whereClause(entity *etree.Element) string {
	filter := entity.SelectElement(elemFilter)
	if filter == nil {
		return ""
	}

	if t := filter.SelectAttrValue(attrFilterType, ""); t != "" && !strings.EqualFold(t, "and") {
		r.warnf(FeatureFilter, "filter type %q converted as AND; OR grouping is not supported", t)
	}
	if len(filter.SelectElements(elemFilter)) > 0 {
		r.warnf(FeatureFilter, "nested filter groups were flattened")
	}

	var preds []string
	for _, cond := range r.conditions(filter) {
		preds = append(preds, r.predicate(cond))
	}
	return strings.Join(preds, " AND ")
}

// conditions collects condition elements of the filter, including those
// of nested groups (flattened).
func (r *reverser) conditions(filter *etree.Element) []*etree.Element {
	return filter.FindElements(".//" + elemCondition)
}

// predicate renders one condition element.
func (r *reverser) predicate(cond *etree.Element) string {
	attribute := cond.SelectAttrValue(attrAttribute, "")
	operator := cond.SelectAttrValue(attrOperator, "")
	value := cond.SelectAttrValue(attrValue, "")

	op, ok := sqlOperators[operator]
	if !ok {
		r.warnf(FeatureOperator, "operator %q has no SQL equivalent and was emitted verbatim", operator)
		return fmt.Sprintf("%s %s %s", attribute, operator, quoteValue(value))
	}

	switch op {
	case parser.OpNull, parser.OpNotNull:
		return fmt.Sprintf("%s %s", attribute, op)
	default:
		return fmt.Sprintf("%s %s %s", attribute, op, quoteValue(value))
	}
}

// orderClause renders the entity's order elements. Ascending is the
// default when no direction is specified.
func (r *reverser) orderClause(entity *etree.Element) string {
	orders := entity.SelectElements(elemOrder)
	if len(orders) == 0 {
		return ""
	}

	keys := make([]string, 0, len(orders))
	for _, order := range orders {
		key := order.SelectAttrValue(attrAttribute, "")
		if order.SelectAttrValue(attrDescending, "") == "true" {
			key += " DESC"
		}
		keys = append(keys, key)
	}
	return strings.Join(keys, ", ")
}

// quoteValue renders a condition value as a SQL literal: numbers stay
// bare, everything else becomes a single-quoted string with doubled
// quotes as escapes.
func quoteValue(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil && v != "" {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

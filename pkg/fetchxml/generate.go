package fetchxml

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/querylink/fetchsql/pkg/parser"
)

// GenerateResult is the output of Generate. Aliases carries the SQL
// column aliases out-of-band, keyed by logical column name, because
// FetchXML has no alias concept for plain attributes; callers use it to
// re-label result columns.
type GenerateResult struct {
	XML        string
	EntityName string
	Aliases    map[string]string
	Aggregate  bool
}

// Generate converts a parsed SELECT statement into FetchXML text. It is
// pure and deterministic: the statement is never mutated and identical
// input always yields identical output.
//
// The only failure mode is an AST invariant violation, which indicates
// a bug rather than bad user input; statements produced by parser.Parse
// never trigger it.
func Generate(stmt *parser.SelectStatement) (*GenerateResult, error) {
	if stmt == nil {
		return nil, internalf("nil statement")
	}
	if stmt.Entity == "" {
		return nil, internalf("statement has no entity")
	}

	res := &GenerateResult{
		EntityName: stmt.Entity,
		Aliases:    map[string]string{},
		Aggregate:  stmt.HasAggregates(),
	}

	doc := etree.NewDocument()
	fetch := doc.CreateElement(elemFetch)
	if stmt.Top > 0 {
		fetch.CreateAttr(attrTop, strconv.Itoa(stmt.Top))
	}
	if stmt.Distinct {
		fetch.CreateAttr(attrDistinct, "true")
	}
	if res.Aggregate {
		fetch.CreateAttr(attrAggregate, "true")
	}

	entity := fetch.CreateElement(elemEntity)
	entity.CreateAttr(attrName, stmt.Entity)

	for _, col := range stmt.Columns {
		switch c := col.(type) {
		case *parser.ColumnRef:
			if c.Wildcard {
				// SELECT * produces no attribute elements; the server
				// returns all columns.
				continue
			}
			attr := entity.CreateElement(elemAttribute)
			attr.CreateAttr(attrName, c.Name)
			if c.Alias != "" {
				res.Aliases[c.Name] = c.Alias
			}
		case *parser.AggregateColumn:
			if err := generateAggregate(entity, stmt.Entity, c); err != nil {
				return nil, err
			}
		default:
			return nil, internalf("unknown select column variant %T", col)
		}
	}

	if len(stmt.Where) > 0 {
		filter := entity.CreateElement(elemFilter)
		filter.CreateAttr(attrFilterType, "and")
		for _, cond := range stmt.Where {
			op, ok := operatorNames[cond.Operator]
			if !ok {
				return nil, internalf("unknown operator %q", cond.Operator)
			}
			el := filter.CreateElement(elemCondition)
			el.CreateAttr(attrAttribute, cond.Attribute)
			el.CreateAttr(attrOperator, op)
			if cond.Operator != parser.OpNull && cond.Operator != parser.OpNotNull {
				el.CreateAttr(attrValue, cond.Value)
			}
		}
	}

	for _, key := range stmt.OrderBy {
		order := entity.CreateElement(elemOrder)
		order.CreateAttr(attrAttribute, key.Attribute)
		if key.Descending {
			order.CreateAttr(attrDescending, "true")
		}
	}

	doc.Indent(2)
	xml, err := doc.WriteToString()
	if err != nil {
		return nil, internalf("serializing document: %v", err)
	}
	res.XML = xml
	return res, nil
}

// generateAggregate emits one aggregate attribute element. FetchXML
// requires an alias on aggregates, so a stable one is derived when the
// SQL carried none. COUNT(*) counts rows through the entity's primary
// key attribute (<entity>id by service convention).
func generateAggregate(entity *etree.Element, entityName string, c *parser.AggregateColumn) error {
	name := c.Column
	aggregate := aggregateNames[c.Func]
	if c.Func == parser.AggCount && c.Column == "*" {
		name = entityName + "id"
		aggregate = aggregateCountAll
	}
	if aggregate == "" {
		return internalf("unknown aggregate function %q", c.Func)
	}

	alias := c.Alias
	if alias == "" {
		if c.Column == "*" {
			alias = string(c.Func)
		} else {
			alias = fmt.Sprintf("%s_%s", c.Column, c.Func)
		}
	}

	attr := entity.CreateElement(elemAttribute)
	attr.CreateAttr(attrName, name)
	attr.CreateAttr(attrAggregate, aggregate)
	attr.CreateAttr(attrAlias, alias)
	return nil
}

package schema

import "github.com/querylink/fetchsql/pkg/parser"

// VirtualColumnMapping pairs a selected virtual column with the parent
// attribute that must be queried in its place.
type VirtualColumnMapping struct {
	VirtualColumn string `json:"virtualColumn"`
	ParentColumn  string `json:"parentColumn"`
}

// VirtualColumnTransformation is the rewrite plan computed by
// DetectVirtualColumns. It is created fresh per call and never mutated.
//
// OriginalColumns is the allow-list of the columns the user actually
// selected; after execution callers re-filter the expanded result set
// down to it.
type VirtualColumnTransformation struct {
	NeedsTransformation bool                   `json:"needsTransformation"`
	ParentsToAdd        []string               `json:"parentsToAdd,omitempty"`
	VirtualColumns      []VirtualColumnMapping `json:"virtualColumns,omitempty"`
	OriginalColumns     []string               `json:"originalColumns,omitempty"`
}

// DetectVirtualColumns computes the rewrite plan for the given selected
// column names against the entity's attribute metadata. Wildcard
// selects must not be passed in: detection is skipped entirely for
// SELECT * since there is nothing to rewrite.
//
// Every selected column whose descriptor has a parent is replaced by
// that parent; parents are deduplicated when already selected or shared
// by several virtual columns. When nothing is virtual,
// NeedsTransformation is false and callers must leave the query
// unmodified.
func DetectVirtualColumns(selected []string, descriptors []AttributeDescriptor) VirtualColumnTransformation {
	if len(selected) == 0 {
		return VirtualColumnTransformation{}
	}

	byName := make(map[string]AttributeDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.LogicalName] = d
	}
	selectedSet := make(map[string]bool, len(selected))
	for _, name := range selected {
		selectedSet[name] = true
	}

	var t VirtualColumnTransformation
	queued := map[string]bool{}
	for _, name := range selected {
		d, ok := byName[name]
		if !ok || !d.IsVirtual() {
			continue
		}
		t.VirtualColumns = append(t.VirtualColumns, VirtualColumnMapping{
			VirtualColumn: name,
			ParentColumn:  d.ParentColumn,
		})
		if !selectedSet[d.ParentColumn] && !queued[d.ParentColumn] {
			queued[d.ParentColumn] = true
			t.ParentsToAdd = append(t.ParentsToAdd, d.ParentColumn)
		}
	}

	if len(t.VirtualColumns) == 0 {
		return VirtualColumnTransformation{}
	}
	t.NeedsTransformation = true
	t.OriginalColumns = append([]string(nil), selected...)
	return t
}

// RewriteStatement applies the transformation to a parsed statement,
// returning a new statement with each virtual column replaced by its
// parent (deduplicated). The input statement is never mutated; when no
// transformation is needed it is returned unchanged, so the generated
// query is byte-identical to the non-rewritten path.
func RewriteStatement(stmt *parser.SelectStatement, t VirtualColumnTransformation) *parser.SelectStatement {
	if !t.NeedsTransformation {
		return stmt
	}

	parents := make(map[string]string, len(t.VirtualColumns))
	for _, m := range t.VirtualColumns {
		parents[m.VirtualColumn] = m.ParentColumn
	}

	rewritten := *stmt
	rewritten.Columns = nil
	seen := map[string]bool{}
	for _, col := range stmt.Columns {
		ref, ok := col.(*parser.ColumnRef)
		if !ok || ref.Wildcard {
			rewritten.Columns = append(rewritten.Columns, col)
			continue
		}

		name := ref.Name
		if parent, virtual := parents[name]; virtual {
			// The virtual column's alias belongs to the display value,
			// not the parent, so it is dropped here and re-applied by
			// the caller via OriginalColumns.
			if seen[parent] {
				continue
			}
			seen[parent] = true
			rewritten.Columns = append(rewritten.Columns, &parser.ColumnRef{Name: parent})
			continue
		}

		if seen[name] {
			continue
		}
		seen[name] = true
		rewritten.Columns = append(rewritten.Columns, col)
	}
	return &rewritten
}

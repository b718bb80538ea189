package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylink/fetchsql/pkg/fetchxml"
	"github.com/querylink/fetchsql/pkg/parser"
)

var accountAttributes = []AttributeDescriptor{
	{LogicalName: "name", Type: "String"},
	{LogicalName: "revenue", Type: "Money"},
	{LogicalName: "createdby", Type: "Lookup"},
	{LogicalName: "createdbyname", Type: "String", ParentColumn: "createdby"},
	{LogicalName: "createdbyyominame", Type: "String", ParentColumn: "createdby"},
	{LogicalName: "ownerid", Type: "Owner"},
	{LogicalName: "owneridname", Type: "String", ParentColumn: "ownerid"},
}

func TestAttributeDescriptor_IsVirtual(t *testing.T) {
	assert.False(t, AttributeDescriptor{LogicalName: "name"}.IsVirtual())
	assert.True(t, AttributeDescriptor{LogicalName: "createdbyname", ParentColumn: "createdby"}.IsVirtual())
}

func TestDetectVirtualColumns_NoVirtualColumns(t *testing.T) {
	tr := DetectVirtualColumns([]string{"name", "revenue"}, accountAttributes)

	assert.False(t, tr.NeedsTransformation)
	assert.Empty(t, tr.ParentsToAdd)
	assert.Empty(t, tr.VirtualColumns)
	assert.Empty(t, tr.OriginalColumns)
}

func TestDetectVirtualColumns_EmptySelection(t *testing.T) {
	assert.False(t, DetectVirtualColumns(nil, accountAttributes).NeedsTransformation)
	assert.False(t, DetectVirtualColumns([]string{"name"}, nil).NeedsTransformation)
}

func TestDetectVirtualColumns_SingleVirtual(t *testing.T) {
	tr := DetectVirtualColumns([]string{"name", "createdbyname"}, accountAttributes)

	require.True(t, tr.NeedsTransformation)
	assert.Equal(t, []string{"createdby"}, tr.ParentsToAdd)
	assert.Equal(t, []VirtualColumnMapping{
		{VirtualColumn: "createdbyname", ParentColumn: "createdby"},
	}, tr.VirtualColumns)
	assert.Equal(t, []string{"name", "createdbyname"}, tr.OriginalColumns)
}

func TestDetectVirtualColumns_ParentAlreadySelected(t *testing.T) {
	tr := DetectVirtualColumns([]string{"createdby", "createdbyname"}, accountAttributes)

	require.True(t, tr.NeedsTransformation)
	assert.Empty(t, tr.ParentsToAdd, "parent already selected must not be re-added")
	require.Len(t, tr.VirtualColumns, 1)
}

func TestDetectVirtualColumns_SharedParentDeduplicated(t *testing.T) {
	tr := DetectVirtualColumns([]string{"createdbyname", "createdbyyominame"}, accountAttributes)

	require.True(t, tr.NeedsTransformation)
	assert.Equal(t, []string{"createdby"}, tr.ParentsToAdd, "shared parent must appear once")
	assert.Len(t, tr.VirtualColumns, 2)
}

func TestDetectVirtualColumns_UnknownColumnsIgnored(t *testing.T) {
	tr := DetectVirtualColumns([]string{"nosuchcolumn"}, accountAttributes)
	assert.False(t, tr.NeedsTransformation)
}

func TestRewriteStatement_NoTransformationReturnsSamePointer(t *testing.T) {
	stmt, err := parser.Parse("SELECT name, revenue FROM account")
	require.NoError(t, err)

	rewritten := RewriteStatement(stmt, VirtualColumnTransformation{})
	assert.Same(t, stmt, rewritten, "no-op rewrite must return the identical statement")
}

func TestRewriteStatement_ReplacesVirtualWithParent(t *testing.T) {
	stmt, err := parser.Parse("SELECT name, createdbyname FROM account")
	require.NoError(t, err)

	tr := DetectVirtualColumns(stmt.ColumnNames(), accountAttributes)
	rewritten := RewriteStatement(stmt, tr)

	assert.NotSame(t, stmt, rewritten)
	assert.Equal(t, []string{"name", "createdby"}, rewritten.ColumnNames())
	// Original statement is untouched.
	assert.Equal(t, []string{"name", "createdbyname"}, stmt.ColumnNames())
}

func TestRewriteStatement_DeduplicatesBothOrderings(t *testing.T) {
	for _, sql := range []string{
		"SELECT createdby, createdbyname FROM account",
		"SELECT createdbyname, createdby FROM account",
	} {
		stmt, err := parser.Parse(sql)
		require.NoError(t, err)

		tr := DetectVirtualColumns(stmt.ColumnNames(), accountAttributes)
		rewritten := RewriteStatement(stmt, tr)
		assert.Equal(t, []string{"createdby"}, rewritten.ColumnNames(), "sql: %s", sql)
	}
}

func TestRewriteStatement_SharedParentCollapses(t *testing.T) {
	stmt, err := parser.Parse("SELECT createdbyname, createdbyyominame FROM account")
	require.NoError(t, err)

	tr := DetectVirtualColumns(stmt.ColumnNames(), accountAttributes)
	rewritten := RewriteStatement(stmt, tr)
	assert.Equal(t, []string{"createdby"}, rewritten.ColumnNames())
}

func TestRewriteStatement_PreservesOtherClauses(t *testing.T) {
	stmt, err := parser.Parse("SELECT TOP 5 createdbyname FROM account WHERE revenue > 1000 ORDER BY name")
	require.NoError(t, err)

	tr := DetectVirtualColumns(stmt.ColumnNames(), accountAttributes)
	rewritten := RewriteStatement(stmt, tr)

	assert.Equal(t, stmt.Entity, rewritten.Entity)
	assert.Equal(t, stmt.Top, rewritten.Top)
	assert.Equal(t, stmt.Where, rewritten.Where)
	assert.Equal(t, stmt.OrderBy, rewritten.OrderBy)
}

func TestRewriteStatement_DropsVirtualAlias(t *testing.T) {
	stmt, err := parser.Parse("SELECT createdbyname AS creator FROM account")
	require.NoError(t, err)

	tr := DetectVirtualColumns(stmt.ColumnNames(), accountAttributes)
	rewritten := RewriteStatement(stmt, tr)

	ref, ok := rewritten.Columns[0].(*parser.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, "createdby", ref.Name)
	assert.Empty(t, ref.Alias, "the display column's alias must not attach to the parent")
}

// The rewritten statement must produce FetchXML that is byte-identical
// to parsing the equivalent parent-selecting SQL directly.
func TestRewriteStatement_GeneratedXMLMatchesDirectQuery(t *testing.T) {
	stmt, err := parser.Parse("SELECT name, createdbyname FROM account")
	require.NoError(t, err)
	tr := DetectVirtualColumns(stmt.ColumnNames(), accountAttributes)
	rewritten := RewriteStatement(stmt, tr)

	viaRewrite, err := fetchxml.Generate(rewritten)
	require.NoError(t, err)

	direct, err := parser.Parse("SELECT name, createdby FROM account")
	require.NoError(t, err)
	viaDirect, err := fetchxml.Generate(direct)
	require.NoError(t, err)

	assert.Equal(t, viaDirect.XML, viaRewrite.XML)
}

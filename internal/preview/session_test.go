package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylink/fetchsql/pkg/schema"
)

func TestSession_UpdateSQL(t *testing.T) {
	s := NewSession(nil)

	res := s.UpdateSQL("SELECT name FROM account")
	require.True(t, res.Valid, "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, SideSQL, res.Side)
	assert.Equal(t, "account", res.EntityName)
	assert.Contains(t, res.FetchXML, `<entity name="account">`)
	assert.Equal(t, res.FetchXML, s.FetchXML())
}

func TestSession_UpdateFetchXML(t *testing.T) {
	s := NewSession(nil)

	res := s.UpdateFetchXML(`<fetch><entity name="contact"><attribute name="fullname"/></entity></fetch>`)
	require.True(t, res.Valid, "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, SideFetchXML, res.Side)
	assert.Equal(t, "SELECT fullname FROM contact", res.SQL)
	assert.Equal(t, res.SQL, s.SQL())
}

func TestSession_InvalidSQLKeepsLastGoodCounterpart(t *testing.T) {
	s := NewSession(nil)

	good := s.UpdateSQL("SELECT name FROM account")
	require.True(t, good.Valid)
	lastXML := s.FetchXML()

	bad := s.UpdateSQL("SELECT name FROM")
	require.False(t, bad.Valid)
	require.NotEmpty(t, bad.Diagnostics)
	assert.Equal(t, lastXML, bad.FetchXML, "counterpart must stay at the last good value")
	assert.Equal(t, lastXML, s.FetchXML())
	assert.Equal(t, "SELECT name FROM account", s.SQL(), "last good SQL is kept")
}

func TestSession_InvalidFetchXMLKeepsLastGoodCounterpart(t *testing.T) {
	s := NewSession(nil)

	good := s.UpdateFetchXML(`<fetch><entity name="account"/></fetch>`)
	require.True(t, good.Valid)
	lastSQL := s.SQL()

	bad := s.UpdateFetchXML(`<fetch><entity`)
	require.False(t, bad.Valid)
	require.NotEmpty(t, bad.Diagnostics)
	assert.Equal(t, lastSQL, bad.SQL)
}

func TestSession_SQLDiagnosticCarriesPosition(t *testing.T) {
	s := NewSession(nil)

	res := s.UpdateSQL("SELECT name\nFROM account\nWHERE revenue 100")
	require.False(t, res.Valid)
	require.Len(t, res.Diagnostics, 1)

	d := res.Diagnostics[0]
	assert.Equal(t, 3, d.Line)
	assert.Equal(t, 15, d.Column)
	assert.NotEmpty(t, d.Snippet)
}

func TestSession_LexDiagnostic(t *testing.T) {
	s := NewSession(nil)

	res := s.UpdateSQL("SELECT name FROM account WHERE name = 'unclosed")
	require.False(t, res.Valid)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, "unterminated string")
}

func TestSession_VirtualRewriteAppliesWithMetadata(t *testing.T) {
	attrs := []schema.AttributeDescriptor{
		{LogicalName: "createdby", Type: "Lookup"},
		{LogicalName: "createdbyname", Type: "String", ParentColumn: "createdby"},
	}
	s := NewSession(attrs)

	res := s.UpdateSQL("SELECT createdbyname FROM account")
	require.True(t, res.Valid, "diagnostics: %v", res.Diagnostics)
	assert.True(t, res.Transformation.NeedsTransformation)
	assert.Contains(t, res.FetchXML, `<attribute name="createdby"/>`)
	assert.NotContains(t, res.FetchXML, "createdbyname")
}

func TestSession_WildcardSkipsRewrite(t *testing.T) {
	attrs := []schema.AttributeDescriptor{
		{LogicalName: "createdbyname", ParentColumn: "createdby"},
	}
	s := NewSession(attrs)

	res := s.UpdateSQL("SELECT * FROM account")
	require.True(t, res.Valid)
	assert.False(t, res.Transformation.NeedsTransformation)
}

func TestSession_FetchXMLWarningsSurface(t *testing.T) {
	s := NewSession(nil)

	res := s.UpdateFetchXML(`<fetch><entity name="a"><attribute name="x"/><link-entity name="b"/></entity></fetch>`)
	require.True(t, res.Valid)
	assert.NotEmpty(t, res.Warnings, "lossy constructs must surface as warnings")
}

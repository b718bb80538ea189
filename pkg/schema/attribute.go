// Package schema models entity attribute metadata and the virtual
// column rewrite applied to SQL select lists before FetchXML
// generation.
//
// A virtual column is a display-only field (such as a lookup's friendly
// name) that the service always returns alongside its parent attribute
// and that cannot be queried independently. Metadata marks it with a
// non-empty ParentColumn.
package schema

// AttributeDescriptor describes one attribute of an entity. It is
// supplied by an external metadata collaborator and treated as
// read-only here.
type AttributeDescriptor struct {
	LogicalName  string `json:"logicalName"`
	DisplayName  string `json:"displayName"`
	Type         string `json:"type"`
	ParentColumn string `json:"parentColumn,omitempty"`
}

// IsVirtual returns true if the attribute is a virtual display column
// of another attribute.
func (a AttributeDescriptor) IsVirtual() bool {
	return a.ParentColumn != ""
}

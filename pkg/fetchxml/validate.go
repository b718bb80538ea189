package fetchxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ValidationError is one structural defect in FetchXML text.
// Line is 1-based; 0 means no line information is available.
type ValidationError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult is the outcome of Validate. It is returned as data
// rather than an error so callers can run validation on every keystroke
// and highlight all reported defects.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Stable messages for the independently detectable defect classes.
// Callers branch on these, so they must not change between releases.
const (
	MsgEmptyDocument     = "fetch xml is empty"
	MsgMalformedPrefix   = "fetch xml is not well-formed"
	MsgEntityCount       = "fetch xml must contain exactly one entity element"
	MsgEntityMissingName = "entity element must have a non-empty name attribute"
)

// Validate structurally checks FetchXML text: it must be non-empty,
// well-formed, contain exactly one entity element, and that element
// must carry a non-empty name attribute. It never panics and never
// returns a Go error; every defect becomes a ValidationError.
func Validate(text string) ValidationResult {
	if strings.TrimSpace(text) == "" {
		return invalid(ValidationError{Message: MsgEmptyDocument})
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return invalid(malformedError(err))
	}
	root := doc.Root()
	if root == nil {
		// Comments or processing instructions only; nothing queryable.
		return invalid(ValidationError{Message: MsgEntityCount})
	}

	var errs []ValidationError

	entities := entityElements(root)
	if len(entities) != 1 {
		errs = append(errs, ValidationError{Message: MsgEntityCount})
	} else if strings.TrimSpace(entities[0].SelectAttrValue(attrName, "")) == "" {
		errs = append(errs, ValidationError{Message: MsgEntityMissingName})
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// entityElements collects the entity elements of the document, whether
// the root itself is an entity or it is nested under a fetch root.
func entityElements(root *etree.Element) []*etree.Element {
	if root.Tag == elemEntity {
		return []*etree.Element{root}
	}
	return root.FindElements(".//" + elemEntity)
}

// malformedError converts an XML parse failure into a positioned
// validation error where the decoder reported a line.
func malformedError(err error) ValidationError {
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return ValidationError{
			Message: fmt.Sprintf("%s: %s", MsgMalformedPrefix, syntaxErr.Msg),
			Line:    syntaxErr.Line,
		}
	}
	return ValidationError{Message: fmt.Sprintf("%s: %v", MsgMalformedPrefix, err)}
}

func invalid(errs ...ValidationError) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

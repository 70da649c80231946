// Package schema checks the structure of aECG documents before extraction.
package schema

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure Validator implements the interface.
var _ driven.SchemaValidator = (*Validator)(nil)

// HL7Namespace is the namespace of HL7 v3 documents.
const HL7Namespace = "urn:hl7-org:v3"

// RootElement is the document element of an annotated ECG.
const RootElement = "AnnotatedECG"

// requiredChildren must appear directly under the root.
var requiredChildren = []string{"id", "code", "component"}

// Validator walks the token stream once and rejects documents that are not
// well formed, have the wrong root, or lack required top level elements.
type Validator struct {
	// Strict requires the HL7 v3 namespace on the root.
	Strict bool

	// MaxDepth bounds element nesting.
	MaxDepth int
}

// NewValidator creates a validator with a nesting limit of 256.
func NewValidator(strict bool) *Validator {
	return &Validator{Strict: strict, MaxDepth: 256}
}

// Validate returns an error wrapping domain.ErrSchemaViolation when the
// content is rejected.
func (v *Validator) Validate(ctx context.Context, content []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel

	depth := 0
	rootSeen := false
	seen := make(map[string]bool)

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return violation("not well formed: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if v.MaxDepth > 0 && depth > v.MaxDepth {
				return violation("nesting deeper than %d elements", v.MaxDepth)
			}
			if depth == 1 {
				if rootSeen {
					return violation("more than one document element")
				}
				rootSeen = true
				if t.Name.Local != RootElement {
					return violation("document element is %s, expected %s", t.Name.Local, RootElement)
				}
				if v.Strict && t.Name.Space != HL7Namespace {
					return violation("document element namespace is %q, expected %q", t.Name.Space, HL7Namespace)
				}
			}
			if depth == 2 {
				seen[t.Name.Local] = true
			}
		case xml.EndElement:
			depth--
		}
	}

	if !rootSeen {
		return violation("no document element")
	}
	for _, name := range requiredChildren {
		if !seen[name] {
			return violation("%s has no %s element", RootElement, name)
		}
	}
	return nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrSchemaViolation, fmt.Sprintf(format, args...))
}

package domain

import "strings"

// Origin identifies where an aECG document was read from.
type Origin struct {
	// StudyDir is the directory the file was discovered under.
	StudyDir string

	// XMLPath is the XML file path. For zip members it is the member name.
	XMLPath string

	// ZipPath is the containing zip archive, empty for plain files.
	ZipPath string
}

// InZip reports whether the document is a member of a zip archive.
func (o Origin) InZip() bool {
	return o.ZipPath != ""
}

// Location renders the origin as "archive.zip!member.xml" or the XML path.
func (o Origin) Location() string {
	if o.InZip() {
		return o.ZipPath + "!" + o.XMLPath
	}
	return o.XMLPath
}

// Less orders origins by (ZipPath, XMLPath). Plain files sort first.
func (o Origin) Less(other Origin) bool {
	if o.ZipPath != other.ZipPath {
		return o.ZipPath < other.ZipPath
	}
	return o.XMLPath < other.XMLPath
}

// IsXMLName reports whether a file name has an .xml extension in any case.
func IsXMLName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xml")
}

// RawDocument represents opaque bytes fetched by a connector.
// It is the connector's output before decoding.
type RawDocument struct {
	// Origin is where the bytes came from.
	Origin Origin

	// Seq is the position of the document in discovery order.
	Seq int

	// Content is the raw XML bytes.
	Content []byte

	// Err carries a read failure. Content is empty when set.
	Err error
}

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns the change name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawDocumentChange represents a change event from a connector watch.
type RawDocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Origin is the affected file.
	Origin Origin
}

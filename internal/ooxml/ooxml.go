// Package ooxml reads and writes the WordprocessingML subset docconv needs:
// the paragraph text of a .docx package and a minimal package built from
// plain paragraphs.
package ooxml

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// OOXML namespaces and relationship types.
const (
	NSRelationships    = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSContentTypes     = "http://schemas.openxmlformats.org/package/2006/content-types"
	NSWordprocessingML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSRelDoc           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSCoreProperties   = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"

	RelOfficeDocument = NSRelDoc + "/officeDocument"
	RelCoreProperties = NSRelationships + "/metadata/core-properties"
	RelStyles         = NSRelDoc + "/styles"

	ContentTypeDocument = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// DefaultDocumentPart is where Word puts the main document.
const DefaultDocumentPart = "word/document.xml"

// Relationship represents an OOXML relationship.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// Relationships is the root element for .rels files.
type Relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Xmlns         string         `xml:"xmlns,attr,omitempty"`
	Relationships []Relationship `xml:"Relationship"`
}

// ParseRelationships parses a .rels part. A missing part yields an empty
// map.
func ParseRelationships(zr *zip.Reader, relsPath string) (map[string]Relationship, error) {
	f := findFile(zr, relsPath)
	if f == nil {
		return map[string]Relationship{}, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rels Relationships
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return nil, fmt.Errorf("decode relationships: %w", err)
	}
	result := make(map[string]Relationship, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		result[rel.ID] = rel
	}
	return result, nil
}

// PartByType returns the package-level target of the first relationship of
// the given type, or "" if there is none.
func PartByType(zr *zip.Reader, relType string) string {
	rels, err := ParseRelationships(zr, "_rels/.rels")
	if err != nil {
		return ""
	}
	for _, rel := range rels {
		if rel.Type == relType && rel.TargetMode != "External" {
			return ResolveTarget("", rel.Target)
		}
	}
	return ""
}

// ReadFile reads a part from the package.
func ReadFile(zr *zip.Reader, name string) ([]byte, error) {
	f := findFile(zr, name)
	if f == nil {
		return nil, fmt.Errorf("part %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// RelsPathFor returns the .rels path for a given part.
func RelsPathFor(filePath string) string {
	dir := path.Dir(filePath)
	base := path.Base(filePath)
	if dir == "." {
		return "_rels/" + base + ".rels"
	}
	return dir + "/_rels/" + base + ".rels"
}

// ResolveTarget resolves a relative target path against a base part.
func ResolveTarget(basePath, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(basePath), target)
}

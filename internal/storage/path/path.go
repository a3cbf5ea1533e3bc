// Package path implements the remoteStorage path algebra: an immutable
// sequence of folder/document segments with the validation and traversal
// rules the rest of the storage stack relies on.
package path

import (
	"strings"
)

// PartKind distinguishes a folder segment from a document segment.
type PartKind int

const (
	FolderPart PartKind = iota
	DocumentPart
)

// Part is a single named segment of a Path, tagged as folder or document.
type Part struct {
	Kind PartKind
	Name string
}

func (p Part) String() string {
	if p.Kind == FolderPart {
		return p.Name + "/"
	}
	return p.Name
}

// Path is an ordered, immutable sequence of path parts. The zero value is
// the root folder.
type Path struct {
	parts []Part
}

// Root is the empty path denoting the root folder.
var Root = Path{}

// PartErrorKind enumerates why a single path part failed validation.
type PartErrorKind int

const (
	IsEmpty PartErrorKind = iota
	IsSinglePoint
	IsDoublePoint
	ContainsSlash
	ContainsBackslash
	ContainsZero
	ContainsItemData
)

func (k PartErrorKind) String() string {
	switch k {
	case IsEmpty:
		return "name is empty"
	case IsSinglePoint:
		return "name is only a point (`.`)"
	case IsDoublePoint:
		return "name is only a double-point (`..`)"
	case ContainsSlash:
		return "name contains a slash (`/`)"
	case ContainsBackslash:
		return "name contains a backslash (`\\`)"
	case ContainsZero:
		return "name contains the empty char"
	case ContainsItemData:
		return "name contains the chain `.itemdata.`"
	default:
		return "unknown path part error"
	}
}

// WrongPartNameError reports a parse failure, preserving the prefix that
// parsed successfully before the offending segment.
type WrongPartNameError struct {
	Until Path
	Cause PartErrorKind
}

func (e *WrongPartNameError) Error() string {
	return "wrong item part name until `" + e.Until.String() + "`: " + e.Cause.String()
}

func checkPartName(name string) (string, PartErrorKind, bool) {
	switch {
	case name == "":
		return "", IsEmpty, false
	case name == ".":
		return "", IsSinglePoint, false
	case name == "..":
		return "", IsDoublePoint, false
	case strings.Contains(name, "/"):
		return "", ContainsSlash, false
	case strings.Contains(name, "\\"):
		return "", ContainsBackslash, false
	case strings.Contains(name, "\x00"):
		return "", ContainsZero, false
	case strings.Contains(name, ".itemdata."):
		return "", ContainsItemData, false
	default:
		return name, 0, true
	}
}

// Parse converts a slash-delimited wire path into a Path. A leading slash
// is stripped; a trailing slash marks the final segment as a folder.
func Parse(input string) (Path, error) {
	lastIsFolder := false

	input = strings.TrimPrefix(input, "/")
	if trimmed, ok := strings.CutSuffix(input, "/"); ok {
		lastIsFolder = true
		input = trimmed
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return Root, nil
	}

	var parts []Part
	for _, name := range strings.Split(input, "/") {
		checked, cause, ok := checkPartName(name)
		if !ok {
			return Path{}, &WrongPartNameError{Until: Path{parts: parts}, Cause: cause}
		}
		parts = append(parts, Part{Kind: FolderPart, Name: checked})
	}

	if !lastIsFolder {
		parts[len(parts)-1].Kind = DocumentPart
	}

	return Path{parts: parts}, nil
}

// MustParse parses input and panics on error. Intended for fixtures and
// constant paths known to be valid at compile time.
func MustParse(input string) Path {
	p, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	var b strings.Builder
	for _, part := range p.parts {
		b.WriteString(part.String())
	}
	return b.String()
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.parts) }

// IsRoot reports whether p is the empty root path.
func (p Path) IsRoot() bool { return len(p.parts) == 0 }

// IsFolder reports whether p denotes a folder: the root, or any path whose
// last segment is a folder segment.
func (p Path) IsFolder() bool {
	if len(p.parts) == 0 {
		return true
	}
	return p.parts[len(p.parts)-1].Kind == FolderPart
}

// IsDocument reports whether p denotes a document.
func (p Path) IsDocument() bool {
	if len(p.parts) == 0 {
		return false
	}
	return p.parts[len(p.parts)-1].Kind == DocumentPart
}

// Last returns the final part, or false if p is root.
func (p Path) Last() (Part, bool) {
	if len(p.parts) == 0 {
		return Part{}, false
	}
	return p.parts[len(p.parts)-1], true
}

// StartsWith reports whether p's parts begin with prefix's parts.
func (p Path) StartsWith(prefix Path) bool {
	if len(prefix.parts) > len(p.parts) {
		return false
	}
	for i, part := range prefix.parts {
		if p.parts[i] != part {
			return false
		}
	}
	return true
}

// IsDirectChild reports whether p has exactly one more segment than parent
// and shares parent's prefix.
func (p Path) IsDirectChild(parent Path) bool {
	return p.StartsWith(parent) && len(p.parts) == len(parent.parts)+1
}

// Parent returns the enclosing folder path and true, or false if p is
// already root. A depth-1 path's parent is Root, so ancestor walks that
// keep calling Parent until it returns false always terminate having
// visited the root exactly once.
func (p Path) Parent() (Path, bool) {
	switch len(p.parts) {
	case 0:
		return Path{}, false
	case 1:
		return Root, true
	default:
		parent := make([]Part, len(p.parts)-1)
		copy(parent, p.parts[:len(p.parts)-1])
		return Path{parts: parent}, true
	}
}

// AsDatafile derives the sidecar path used by the filesystem engine: a
// document "a/b/x" with extension ".itemdata.toml" becomes
// "a/b/x.itemdata.toml"; a folder "a/b/" becomes "a/b/.folder.itemdata.toml".
func (p Path) AsDatafile(extension string) Path {
	switch last, ok := p.Last(); {
	case !ok:
		parts := append(append([]Part{}, p.parts...), Part{Kind: DocumentPart, Name: ".folder" + extension})
		return Path{parts: parts}
	case last.Kind == DocumentPart:
		parts := append([]Part{}, p.parts[:len(p.parts)-1]...)
		parts = append(parts, Part{Kind: DocumentPart, Name: last.Name + extension})
		return Path{parts: parts}
	default:
		parts := append([]Part{}, p.parts...)
		parts = append(parts, Part{Kind: DocumentPart, Name: ".folder" + extension})
		return Path{parts: parts}
	}
}

// Parts returns a defensive copy of the underlying segments.
func (p Path) Parts() []Part {
	out := make([]Part, len(p.parts))
	copy(out, p.parts)
	return out
}

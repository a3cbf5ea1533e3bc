// Package item models the remoteStorage item value type: a tagged union
// of documents and folders, plus the etag/last-modified identifiers
// mutations regenerate.
package item

import (
	"time"

	"github.com/google/uuid"
)

// Etag is an opaque strong validator regenerated on every mutation. The
// literal "*" matches any existing resource in preconditions.
type Etag string

const WildcardEtag Etag = "*"

// NewEtag generates a fresh etag.
func NewEtag() Etag {
	return Etag(uuid.NewString())
}

// LastModified is a UTC timestamp truncated to second resolution, wire
// serialized as RFC 1123Z ("RFC 2822" for the HTTP Last-Modified header).
type LastModified time.Time

// Now returns the current instant truncated to second resolution.
func Now() LastModified {
	return LastModified(time.Now().UTC().Truncate(time.Second))
}

func (l LastModified) Time() time.Time { return time.Time(l) }

// String renders the RFC 2822 / RFC 1123Z wire form used on HTTP
// Last-Modified headers.
func (l LastModified) String() string {
	return time.Time(l).UTC().Format(time.RFC1123Z)
}

// Kind tags which variant an Item holds.
type Kind int

const (
	Document Kind = iota
	Folder
)

// Item is a tagged value: either a Document (optional etag, last-modified,
// content, content-type) or a Folder (optional etag, last-modified only).
type Item struct {
	Kind        Kind
	Etag        *Etag
	LastModified *LastModified
	Content      []byte
	ContentType  string
}

// NewDocument returns an empty document item.
func NewDocument() Item {
	return Item{Kind: Document}
}

// NewFolder returns an empty folder item.
func NewFolder() Item {
	return Item{Kind: Folder}
}

// WithContent sets content on a document item; a no-op (documented, not
// silently ignored) on a folder item.
func (i Item) WithContent(content []byte) Item {
	if i.Kind == Document {
		i.Content = content
	}
	return i
}

// WithContentType sets the content type on a document item.
func (i Item) WithContentType(contentType string) Item {
	if i.Kind == Document {
		i.ContentType = contentType
	}
	return i
}

// WithStamp sets the etag and last-modified fields, as engines do on every
// create/update.
func (i Item) WithStamp(etag Etag, lastModified LastModified) Item {
	i.Etag = &etag
	i.LastModified = &lastModified
	return i
}

// CloneWithoutContent returns a copy with Content cleared, used for HEAD
// responses: content-type, etag, and last-modified survive unchanged.
func (i Item) CloneWithoutContent() Item {
	i.Content = nil
	return i
}

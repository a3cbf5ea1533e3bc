// Package security implements the scope grammar, bearer tokens, and user
// table that authorize remoteStorage requests.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

var moduleNameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// Right is the access level a scope grants: read-only or read-write.
type Right int

const (
	Read Right = iota
	ReadWrite
)

func (r Right) methods() []proto.Method {
	switch r {
	case Read:
		return []proto.Method{proto.Head, proto.Get}
	default:
		return []proto.Method{proto.Head, proto.Get, proto.Put, proto.Delete}
	}
}

// BearerAccessConvertErrorKind enumerates why a scope entry failed to parse.
type BearerAccessConvertErrorKind int

const (
	IncorrectModule BearerAccessConvertErrorKind = iota
	IncorrectFormat
	IncorrectRight
)

// BearerAccessConvertError reports a scope-entry parse failure.
type BearerAccessConvertError struct {
	Kind  BearerAccessConvertErrorKind
	Input string
}

func (e *BearerAccessConvertError) Error() string {
	switch e.Kind {
	case IncorrectModule:
		return fmt.Sprintf("incorrect module in scope entry %q", e.Input)
	case IncorrectRight:
		return fmt.Sprintf("incorrect right in scope entry %q", e.Input)
	default:
		return fmt.Sprintf("incorrect scope entry format %q", e.Input)
	}
}

// RequestValidityErrorKind enumerates why a single bearer access denied a
// request it was asked to check.
type RequestValidityErrorKind int

const (
	OutOfModuleScope RequestValidityErrorKind = iota
	UnallowedMethod
)

// RequestValidityError reports a single bearer access's refusal reason.
type RequestValidityError struct {
	Kind RequestValidityErrorKind
}

func (e *RequestValidityError) Error() string {
	if e.Kind == OutOfModuleScope {
		return "out of module scope"
	}
	return "method not allowed by this scope"
}

// BearerAccess is one `module:right` grant within a token's scope string.
type BearerAccess struct {
	Module string
	Right  Right
}

// ParseBearerAccess parses a single "module:right" scope entry. The module
// "public" is forbidden: public documents are reachable without a token at
// all, so granting a scope over it would be meaningless and confusing.
func ParseBearerAccess(input string) (BearerAccess, error) {
	parts := strings.Split(input, ":")
	if len(parts) != 2 {
		return BearerAccess{}, &BearerAccessConvertError{Kind: IncorrectFormat, Input: input}
	}
	module, rightStr := parts[0], parts[1]

	if module == "public" {
		return BearerAccess{}, &BearerAccessConvertError{Kind: IncorrectModule, Input: input}
	}
	if module != "*" && !moduleNameRe.MatchString(module) {
		return BearerAccess{}, &BearerAccessConvertError{Kind: IncorrectModule, Input: input}
	}

	right, err := parseRight(rightStr)
	if err != nil {
		return BearerAccess{}, err
	}

	return BearerAccess{Module: module, Right: right}, nil
}

func parseRight(input string) (Right, error) {
	switch strings.TrimSpace(input) {
	case "rw":
		return ReadWrite, nil
	case "r":
		return Read, nil
	default:
		return 0, &BearerAccessConvertError{Kind: IncorrectRight, Input: input}
	}
}

// ParseScopeString splits a comma-separated scope string into its entries.
func ParseScopeString(scopes string) ([]BearerAccess, error) {
	var result []BearerAccess
	for _, entry := range strings.Split(scopes, ",") {
		access, err := ParseBearerAccess(strings.TrimSpace(entry))
		if err != nil {
			return nil, err
		}
		result = append(result, access)
	}
	return result, nil
}

// CheckRequest reports whether this access grants the given request,
// checking the method set first and then the module/path predicate.
func (b BearerAccess) CheckRequest(request *proto.Request) error {
	allowed := false
	for _, m := range b.Right.methods() {
		if m == request.Method {
			allowed = true
			break
		}
	}
	if !allowed {
		return &RequestValidityError{Kind: UnallowedMethod}
	}

	if b.Module == "*" {
		return nil
	}

	prefix, err := path.Parse(b.Module + "/")
	if err != nil {
		return &RequestValidityError{Kind: OutOfModuleScope}
	}
	if request.Path.StartsWith(prefix) {
		return nil
	}
	return &RequestValidityError{Kind: OutOfModuleScope}
}

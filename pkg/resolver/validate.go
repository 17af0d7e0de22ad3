package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/elonfeng/techriver/pkg/source"
)

const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 50
)

var communityPattern = regexp.MustCompile(`^[a-z0-9_-]{1,21}$`)

// reservedNames are paths on the upstream site that are not communities.
var reservedNames = map[string]bool{
	"www": true, "api": true, "blog": true, "help": true, "info": true,
	"mod": true, "moderators": true, "i": true, "me": true, "r": true,
}

// Request asks for the river of one community.
type Request struct {
	Source    string
	Community string
	Limit     int
}

// Normalize validates req and returns it with the source and community
// trimmed and lowercased.
func Normalize(req Request) (Request, error) {
	src := strings.ToLower(strings.TrimSpace(req.Source))
	if src == "" {
		src = string(source.SourceReddit)
	}
	if !supportedSource(src) {
		return req, validationError(fmt.Sprintf("unsupported source %q", req.Source))
	}

	name := strings.ToLower(strings.TrimSpace(req.Community))
	if name == "" {
		return req, validationError("community name is required")
	}
	if !communityPattern.MatchString(name) {
		return req, validationError("community name must be 1-21 characters of letters, digits, '_' or '-'")
	}
	if reservedNames[name] {
		return req, validationError(fmt.Sprintf("%q is a reserved name", name))
	}

	if req.Limit < MinLimit || req.Limit > MaxLimit {
		return req, validationError(fmt.Sprintf("limit must be between %d and %d", MinLimit, MaxLimit))
	}

	return Request{Source: src, Community: name, Limit: req.Limit}, nil
}

func supportedSource(s string) bool {
	for _, t := range source.AllSourceTypes() {
		if string(t) == s {
			return true
		}
	}
	return false
}

// CacheKey is the key a community's river is cached under. The limit is not part of it.
func CacheKey(src, community string) string {
	return src + ":" + community
}

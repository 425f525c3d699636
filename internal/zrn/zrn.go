// Package zrn generates and parses Zekret Resource Names.
//
// A ZRN has the form
//
//	zrn:zekret:<type>:<yyyyMMdd>:<identifier>
//
// where the date is the UTC issuance day and the identifier is a random UUID.
// Credential types may instead be keyed by a bare slug such as "ssh_key".
package zrn

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResourceType is the kind of entity a ZRN names.
type ResourceType string

const (
	Credential     ResourceType = "credential"
	Namespace      ResourceType = "namespace"
	CredentialType ResourceType = "credtype"
)

const (
	Prefix       = "zrn"
	AppNamespace = "zekret"

	// UnknownSlug is returned by GenerateSlug when nothing usable is left of the input.
	UnknownSlug = "unknown_type"

	dateLayout = "20060102"
	separator  = ":"
	partsCount = 5
)

// ErrUnknownResourceType is returned when generating a ZRN for a type outside the known set.
var ErrUnknownResourceType = errors.New("unknown resource type")

var resourceTypes = []ResourceType{Credential, Namespace, CredentialType}

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9_]+$`)
	datePattern     = regexp.MustCompile(`^[0-9]{8}$`)
	specialChars    = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	underscoreRuns  = regexp.MustCompile(`_+`)
	edgeUnderscores = regexp.MustCompile(`^_|_$`)
)

// now and newID are swapped in tests.
var (
	now   = time.Now
	newID = uuid.NewString
)

// Valid reports whether t belongs to the known set of resource types.
func (t ResourceType) Valid() bool {
	for _, rt := range resourceTypes {
		if rt == t {
			return true
		}
	}
	return false
}

func (t ResourceType) String() string { return string(t) }

// Generate returns a new ZRN for the given resource type with a random identifier.
// Uniqueness relies on the UUID suffix; storage enforces it with a unique constraint.
func Generate(t ResourceType) (string, error) {
	return GenerateWithCustomID(t, newID())
}

// GenerateWithCustomID builds a ZRN using the caller supplied identifier.
func GenerateWithCustomID(t ResourceType, id string) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownResourceType, string(t))
	}
	if id == "" || strings.Contains(id, separator) {
		return "", fmt.Errorf("invalid identifier %q", id)
	}
	date := now().UTC().Format(dateLayout)
	return strings.Join([]string{Prefix, AppNamespace, string(t), date, id}, separator), nil
}

// GenerateSlug turns a display name into a lowercase [a-z0-9_] slug.
//
//	GenerateSlug("SSH Credential") == "ssh_credential"
//	GenerateSlug("Test___Slug")    == "testslug"
//
// Names that are already valid slugs are returned unchanged. Names with no
// slug characters at all map to UnknownSlug.
func GenerateSlug(name string) string {
	if name == "" {
		return UnknownSlug
	}
	if IsValidSlug(name) {
		return name
	}

	s := strings.ToLower(name)
	s = strings.TrimSpace(s)
	s = specialChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = edgeUnderscores.ReplaceAllString(s, "")

	if s == "" {
		return UnknownSlug
	}
	return s
}

// IsValidSlug reports whether s is a non-empty [a-z0-9_] string without edge underscores.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}
	return slugPattern.MatchString(s) && !strings.HasPrefix(s, "_") && !strings.HasSuffix(s, "_")
}

// IsValid reports whether s is either a valid slug or a well-formed ZRN.
func IsValid(s string) bool {
	_, ok := parse(s)
	return ok
}

// ExtractResourceType returns the resource type of s. Slugs report CredentialType.
func ExtractResourceType(s string) (ResourceType, bool) {
	p, ok := parse(s)
	if !ok {
		return "", false
	}
	return p.resourceType, true
}

// ExtractDate returns the yyyyMMdd segment of s. Slugs have no date.
func ExtractDate(s string) (string, bool) {
	p, ok := parse(s)
	if !ok || p.date == "" {
		return "", false
	}
	return p.date, true
}

// ExtractIdentifier returns the trailing identifier of s, or the whole slug.
func ExtractIdentifier(s string) (string, bool) {
	p, ok := parse(s)
	if !ok {
		return "", false
	}
	return p.identifier, true
}

type parsed struct {
	resourceType ResourceType
	date         string
	identifier   string
}

func parse(s string) (parsed, bool) {
	if s == "" {
		return parsed{}, false
	}

	if !strings.Contains(s, separator) {
		if !IsValidSlug(s) {
			return parsed{}, false
		}
		return parsed{resourceType: CredentialType, identifier: s}, true
	}

	parts := strings.Split(s, separator)
	if len(parts) != partsCount {
		return parsed{}, false
	}
	if parts[0] != Prefix || parts[1] != AppNamespace {
		return parsed{}, false
	}
	rt := ResourceType(parts[2])
	if !rt.Valid() {
		return parsed{}, false
	}
	if !datePattern.MatchString(parts[3]) || parts[4] == "" {
		return parsed{}, false
	}

	return parsed{resourceType: rt, date: parts[3], identifier: parts[4]}, true
}

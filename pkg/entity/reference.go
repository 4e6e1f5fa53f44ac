package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// EmptyID is the all-zero GUID sent for records that do not have an id yet.
const EmptyID = "00000000-0000-0000-0000-000000000000"

var (
	// ErrInvalidID is returned for ids that are not GUIDs.
	ErrInvalidID = errors.New("invalid record id")
	// ErrInvalidLogicalName is returned for names that are not schema identifiers.
	ErrInvalidLogicalName = errors.New("invalid logical name")
)

var logicalNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// EntityReference identifies a record.
type EntityReference struct {
	ID          string `json:"id" yaml:"id"`
	LogicalName string `json:"logicalName" yaml:"logicalName"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Equal compares two references by logical name and id. Ids compare with
// GUIDsEqual.
func (r EntityReference) Equal(other EntityReference) bool {
	return r.LogicalName == other.LogicalName && GUIDsEqual(r.ID, other.ID)
}

func (r EntityReference) String() string {
	return r.LogicalName + "(" + r.ID + ")"
}

// Validate checks that the reference can be written to an envelope.
func (r EntityReference) Validate() error {
	if _, err := CanonicalID(r.ID); err != nil {
		return err
	}
	return ValidateLogicalName(r.LogicalName)
}

// GUIDsEqual compares two ids ignoring surrounding braces and case. An empty
// id never equals anything.
func GUIDsEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return normalizeGUID(a) == normalizeGUID(b)
}

func normalizeGUID(s string) string {
	s = strings.ReplaceAll(s, "{", "")
	s = strings.ReplaceAll(s, "}", "")
	return strings.ToLower(s)
}

// CanonicalID parses a GUID, with or without braces, and returns its
// lower-case hyphenated form.
func CanonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidID, id, err)
	}
	return parsed.String(), nil
}

// ValidateLogicalName checks that name is a schema identifier. Logical names
// are written to envelopes verbatim.
func ValidateLogicalName(name string) error {
	if !logicalNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidLogicalName, name)
	}
	return nil
}

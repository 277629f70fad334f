// Package validation provides centralized input validation for telemetrygen.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/sys/unix"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for identifiers.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
}

// DefaultNameRules returns the rules for sensor IDs and partition names.
func DefaultNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    255,
		AllowDots:    false,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// LaunchIDRules returns rules for launch IDs, which end up in file names.
func LaunchIDRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    128,
		AllowDots:    true,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("name cannot be '.' or '..'")
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name cannot start with '.'")
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r == '/' || r == '\\' {
			return fmt.Errorf("name cannot contain path separators at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// ValidateSensorID validates a sensor ID with default rules.
func ValidateSensorID(id string) error {
	return ValidateName(id, DefaultNameRules())
}

// ValidateSensorType validates a sensor type tag. Types are lower-case
// categorical tags such as "accelerometer" or "one_hertz".
func ValidateSensorType(typ string) error {
	if err := ValidateName(typ, DefaultNameRules()); err != nil {
		return err
	}
	if strings.ToLower(typ) != typ {
		return fmt.Errorf("sensor type must be lower case")
	}
	return nil
}

// ValidateLaunchID validates a launch ID.
func ValidateLaunchID(id string) error {
	return ValidateName(id, LaunchIDRules())
}

// ValidateOutputDir reports whether files can be created in dir. A missing
// dir is checked through its nearest existing ancestor, since it is
// created on demand.
func ValidateOutputDir(dir string) error {
	path := filepath.Clean(dir)
	for {
		err := unix.Access(path, unix.W_OK|unix.X_OK)
		if err == nil {
			return nil
		}
		if err != unix.ENOENT {
			return fmt.Errorf("%s is not writable: %w", path, err)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return fmt.Errorf("%s: no existing parent", dir)
		}
		path = parent
	}
}

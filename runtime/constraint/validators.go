package constraint

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Unbounded disables the maximum of a LengthConstraint.
const Unbounded = -1

// RegexConstraint requires the string form of a value to match a pattern.
type RegexConstraint struct {
	id, description string
	applies         Predicate
	pattern         *regexp.Regexp
	allowNil        bool
}

// NewRegexConstraint compiles pattern into a validation.
func NewRegexConstraint(id, description string, applies Predicate, pattern string, allowNil bool) (*RegexConstraint, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("constraint %s: invalid pattern: %w", id, err)
	}
	return &RegexConstraint{id: id, description: description, applies: applies, pattern: re, allowNil: allowNil}, nil
}

func (c *RegexConstraint) ID() string                { return c.id }
func (c *RegexConstraint) Description() string       { return c.description }
func (c *RegexConstraint) AppliesTo(el Element) bool { return c.applies(el) }

// Validate implements Validation.
func (c *RegexConstraint) Validate(el Element, value any) error {
	if value == nil {
		if c.allowNil {
			return nil
		}
		return fmt.Errorf("value for %s '%s' cannot be nil", el.TypeID(), el.Name())
	}
	s := fmt.Sprint(value)
	if !c.pattern.MatchString(s) {
		return fmt.Errorf("value '%s' for %s '%s' does not match pattern %s",
			truncate(s), el.TypeID(), el.Name(), c.pattern)
	}
	return nil
}

// EnumConstraint restricts a value to a fixed set. Nil values pass.
type EnumConstraint struct {
	id, description string
	applies         Predicate
	values          []string
	caseSensitive   bool
}

// NewEnumConstraint creates an enum validation. values must not be empty.
func NewEnumConstraint(id, description string, applies Predicate, values []string, caseSensitive bool) (*EnumConstraint, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("constraint %s: allowed values cannot be empty", id)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return &EnumConstraint{
		id:            id,
		description:   description,
		applies:       applies,
		values:        slices.Compact(sorted),
		caseSensitive: caseSensitive,
	}, nil
}

func (c *EnumConstraint) ID() string                { return c.id }
func (c *EnumConstraint) Description() string       { return c.description }
func (c *EnumConstraint) AppliesTo(el Element) bool { return c.applies(el) }

// Values returns the allowed values, sorted.
func (c *EnumConstraint) Values() []string { return slices.Clone(c.values) }

// Validate implements Validation.
func (c *EnumConstraint) Validate(el Element, value any) error {
	if value == nil {
		return nil
	}
	s := fmt.Sprint(value)
	for _, allowed := range c.values {
		if s == allowed || (!c.caseSensitive && strings.EqualFold(s, allowed)) {
			return nil
		}
	}
	return fmt.Errorf("value '%s' for %s '%s' is not allowed. Allowed values: [%s]",
		s, el.TypeID(), el.Name(), strings.Join(c.values, ", "))
}

// LengthConstraint bounds the character length of the string form of a value.
type LengthConstraint struct {
	id, description string
	applies         Predicate
	min, max        int
	allowNil        bool
}

// NewLengthConstraint creates a length validation. max may be Unbounded; at least one
// bound must be set.
func NewLengthConstraint(id, description string, applies Predicate, min, max int, allowNil bool) (*LengthConstraint, error) {
	switch {
	case min < 0:
		return nil, fmt.Errorf("constraint %s: min length cannot be negative: %d", id, min)
	case max < Unbounded:
		return nil, fmt.Errorf("constraint %s: max length cannot be negative: %d", id, max)
	case max != Unbounded && min > max:
		return nil, fmt.Errorf("constraint %s: min length %d greater than max length %d", id, min, max)
	case min == 0 && max == Unbounded:
		return nil, errors.New("constraint " + id + ": at least one of min or max length must be set")
	}
	return &LengthConstraint{id: id, description: description, applies: applies, min: min, max: max, allowNil: allowNil}, nil
}

func (c *LengthConstraint) ID() string                { return c.id }
func (c *LengthConstraint) Description() string       { return c.description }
func (c *LengthConstraint) AppliesTo(el Element) bool { return c.applies(el) }

// Validate implements Validation.
func (c *LengthConstraint) Validate(el Element, value any) error {
	if value == nil {
		if c.allowNil {
			return nil
		}
		return fmt.Errorf("value for %s '%s' cannot be nil", el.TypeID(), el.Name())
	}
	s := fmt.Sprint(value)
	n := utf8.RuneCountInString(s)
	if n < c.min {
		return fmt.Errorf("value '%s' for %s '%s' is too short: %d characters (minimum: %d)",
			truncate(s), el.TypeID(), el.Name(), n, c.min)
	}
	if c.max != Unbounded && n > c.max {
		return fmt.Errorf("value '%s' for %s '%s' is too long: %d characters (maximum: %d)",
			truncate(s), el.TypeID(), el.Name(), n, c.max)
	}
	return nil
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= 50 {
		return s
	}
	return string([]rune(s)[:47]) + "..."
}

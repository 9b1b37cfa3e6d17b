package config

import (
	"fmt"
	"strconv"
	"strings"
)

// The types below implement kingpin.Value so that every parse failure is
// reported as an *Error naming the offending flag.

// choiceValue restricts a string option to a closed set.
type choiceValue[T ~string] struct {
	option  string
	target  *T
	allowed []T
}

func (v *choiceValue[T]) Set(raw string) error {
	parsed, err := parseChoice(v.option, raw, v.allowed)
	if err != nil {
		return err
	}
	*v.target = parsed
	return nil
}

func (v *choiceValue[T]) String() string {
	return string(*v.target)
}

// scalarValue parses a single number.
type scalarValue[T int | float64] struct {
	option string
	target *T
}

func (v *scalarValue[T]) Set(raw string) error {
	parsed, err := parseNumber[T](raw)
	if err != nil {
		return invalidValue(v.option, "expected %s, got %q", numberKind[T](), raw)
	}
	*v.target = parsed
	return nil
}

func (v *scalarValue[T]) String() string {
	return formatNumber(*v.target)
}

// optionalValue is a number that stays nil until set.
type optionalValue[T int | float64] struct {
	option string
	target **T
}

func (v *optionalValue[T]) Set(raw string) error {
	parsed, err := parseNumber[T](raw)
	if err != nil {
		return invalidValue(v.option, "expected %s, got %q", numberKind[T](), raw)
	}
	*v.target = &parsed
	return nil
}

func (v *optionalValue[T]) String() string {
	if *v.target == nil {
		return ""
	}
	return formatNumber(**v.target)
}

// intChoiceValue is an optional integer restricted to [lo, hi].
type intChoiceValue struct {
	option string
	target **int
	lo, hi int
}

func (v *intChoiceValue) Set(raw string) error {
	parsed, err := parseNumber[int](raw)
	if err != nil {
		return invalidChoice(v.option, raw, intRangeNames(v.lo, v.hi))
	}
	if err := checkIntChoice(v.option, &parsed, v.lo, v.hi); err != nil {
		return err
	}
	*v.target = &parsed
	return nil
}

func (v *intChoiceValue) String() string {
	if *v.target == nil {
		return ""
	}
	return strconv.Itoa(**v.target)
}

// listValue holds comma separated numbers. A user value replaces the
// default list.
type listValue[T int | float64] struct {
	option string
	target *[]T
}

func (v *listValue[T]) Set(raw string) error {
	parsed, err := parseNumberList[T](v.option, raw)
	if err != nil {
		return err
	}
	*v.target = parsed
	return nil
}

func (v *listValue[T]) String() string {
	return joinNumbers(*v.target)
}

// pairValue takes exactly two integers, such as a HxW resize shape.
type pairValue struct {
	option string
	target *[2]int
}

func (v *pairValue) Set(raw string) error {
	parsed, err := parseNumberList[int](v.option, raw)
	if err != nil {
		return err
	}
	if len(parsed) != len(v.target) {
		return invalidValue(v.option, "expected exactly %d numbers, got %d", len(v.target), len(parsed))
	}
	copy(v.target[:], parsed)
	return nil
}

func (v *pairValue) String() string {
	return joinNumbers(v.target[:])
}

func parseNumber[T int | float64](raw string) (T, error) {
	raw = strings.TrimSpace(raw)
	var zero T
	switch any(zero).(type) {
	case int:
		n, err := strconv.Atoi(raw)
		return T(n), err
	default:
		f, err := strconv.ParseFloat(raw, 64)
		return T(f), err
	}
}

func parseNumberList[T int | float64](option, raw string) ([]T, error) {
	parts := strings.Split(raw, ",")
	out := make([]T, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := parseNumber[T](part)
		if err != nil {
			return nil, invalidValue(option, "expected %s, got %q", numberKind[T](), part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, invalidValue(option, "expected at least one number")
	}
	return out, nil
}

func numberKind[T int | float64]() string {
	var zero T
	if _, ok := any(zero).(int); ok {
		return "an integer"
	}
	return "a number"
}

func formatNumber[T int | float64](n T) string {
	switch v := any(n).(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(n)
}

func joinNumbers[T int | float64](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatNumber(v)
	}
	return strings.Join(parts, " ")
}

// Package domain defines versioned station configuration documents, the editable
// draft built on top of them and the declarative schema every field is checked against.
package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ValueType is the declared type of a configuration field.
type ValueType string

// Supported value types.
const (
	TypeString   ValueType = "string"
	TypeInt      ValueType = "int"
	TypeBool     ValueType = "bool"
	TypeDuration ValueType = "duration"
)

// Value is a typed configuration value kept in canonical text form so two equal
// values always digest the same way.
type Value struct {
	Type ValueType `json:"type"`
	Raw  string    `json:"value"`
}

// ParseValue converts operator input into a canonical Value of the given type.
// Booleans accept yes/no, true/false, on/off and 1/0. Durations accept Go syntax
// ("90s", "5m") or a bare number of seconds, as yate.conf does. Strings must not
// contain control characters since every value lands on a single INI line.
func ParseValue(t ValueType, input string) (Value, error) {
	input = strings.TrimSpace(input)
	switch t {
	case TypeString:
		if strings.IndexFunc(input, unicode.IsControl) >= 0 {
			return Value{}, fmt.Errorf("%q contains control characters", input)
		}
		return Value{Type: t, Raw: input}, nil
	case TypeInt:
		n, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%q is not an integer", input)
		}
		return Value{Type: t, Raw: strconv.FormatInt(n, 10)}, nil
	case TypeBool:
		switch strings.ToLower(input) {
		case "yes", "true", "on", "1":
			return Value{Type: t, Raw: "yes"}, nil
		case "no", "false", "off", "0":
			return Value{Type: t, Raw: "no"}, nil
		}
		return Value{}, fmt.Errorf("%q is not a boolean (use yes or no)", input)
	case TypeDuration:
		if seconds, err := strconv.ParseInt(input, 10, 64); err == nil {
			if seconds < 0 || seconds > math.MaxInt64/int64(time.Second) {
				return Value{}, fmt.Errorf("%q is out of range", input)
			}
			return Value{Type: t, Raw: (time.Duration(seconds) * time.Second).String()}, nil
		}
		d, err := time.ParseDuration(input)
		if err != nil {
			return Value{}, fmt.Errorf("%q is not a duration", input)
		}
		if d < 0 {
			return Value{}, fmt.Errorf("%q is negative", input)
		}
		return Value{Type: t, Raw: d.String()}, nil
	default:
		return Value{}, fmt.Errorf("unknown value type %q", t)
	}
}

// Native returns the value as string, int64, bool or time.Duration.
func (v Value) Native() any {
	switch v.Type {
	case TypeInt:
		n, _ := strconv.ParseInt(v.Raw, 10, 64)
		return n
	case TypeBool:
		return v.Raw == "yes"
	case TypeDuration:
		d, _ := time.ParseDuration(v.Raw)
		return d
	default:
		return v.Raw
	}
}

// Bool reports whether a bool value is set.
func (v Value) Bool() bool {
	return v.Type == TypeBool && v.Raw == "yes"
}

// INI renders the value the way the station service reads it. Durations are
// written as whole seconds.
func (v Value) INI() string {
	if v.Type == TypeDuration {
		d, _ := time.ParseDuration(v.Raw)
		return strconv.FormatInt(int64(d/time.Second), 10)
	}
	return v.Raw
}

func (v Value) String() string {
	return v.Raw
}

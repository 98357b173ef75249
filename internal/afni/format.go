package afni

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// formatValue renders v as the text following an option flag. Lists are joined
// with single spaces.
func formatValue(v any) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: nil", ErrUnsupportedValue)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, err := formatScalar(rv.Index(i).Interface())
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	}

	return formatScalar(v)
}

func formatScalar(v any) (string, error) {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	return s, nil
}

// truthy reports whether a configuration value switches an option on.
func truthy(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y":
			return true, nil
		case "no", "n", "":
			return false, nil
		}
	}

	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("%w: %T is not a boolean", ErrUnsupportedValue, v)
	}
	return b, nil
}

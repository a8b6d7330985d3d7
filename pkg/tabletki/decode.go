package tabletki

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// decodeInto fills out from an untyped JSON object. Keys match field tags
// exactly. Absent and null keys keep the zero value; scalar kinds are coerced
// (number to text, numeric text to number) and incompatible values fail.
func decodeInto(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		MatchName:        func(key, field string) bool { return key == field },
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(rejectBlankNumbers, dropEmptyRecords),
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if in == nil {
		return nil
	}
	return dec.Decode(in)
}

// dropEmptyRecords leaves optional sub-records nil when the payload carries
// an empty object or a falsy scalar for them.
func dropEmptyRecords(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Ptr || to.Elem().Kind() != reflect.Struct {
		return data, nil
	}
	switch v := data.(type) {
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
	case bool:
		if !v {
			return nil, nil
		}
	case string:
		if v == "" {
			return nil, nil
		}
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
	}
	return data, nil
}

// rejectBlankNumbers fails on blank text bound for a numeric field, which
// weak typing would otherwise read as zero.
func rejectBlankNumbers(from, to reflect.Type, data any) (any, error) {
	v, ok := data.(string)
	if !ok || strings.TrimSpace(v) != "" {
		return data, nil
	}
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil, fmt.Errorf("cannot convert blank string to %s", to.Kind())
	}
	return data, nil
}

// orEmpty replaces a nil slice with an empty one so absent lists encode as [].
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

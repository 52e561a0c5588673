package influxdb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Decimal is a float field written with a fixed number of decimal places.
type Decimal struct {
	Value  float64
	Places int
}

// FormatLine formats a point as one line of InfluxDB line protocol
// without a timestamp, so the server assigns its receive time:
//
//	measurement,tag1=v1,tag2=v2 field1=v1,field2=v2
//
// Tags and fields are sorted by key. Empty tag values are skipped, as
// line protocol does not allow them.
//
// Supported field types are Decimal, float64, float32, the integer
// types (written with the "i" suffix), bool and string. Any other type
// fails with ErrUnsupportedField.
func FormatLine(measurement string, tags map[string]string, fields map[string]any) (string, error) {
	var b strings.Builder

	b.WriteString(escapeMeasurement(measurement))

	for _, k := range sortedKeys(tags) {
		if tags[k] == "" {
			continue
		}
		b.WriteByte(',')
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(escapeTag(tags[k]))
	}

	b.WriteByte(' ')
	for i, k := range sortedKeys(fields) {
		if i > 0 {
			b.WriteByte(',')
		}
		v, err := formatField(fields[k])
		if err != nil {
			return "", fmt.Errorf("field %q: %w", k, err)
		}
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(v)
	}

	return b.String(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatField(v any) (string, error) {
	switch val := v.(type) {
	case Decimal:
		return strconv.FormatFloat(val.Value, 'f', val.Places, 64), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int:
		return formatInt(int64(val)), nil
	case int8:
		return formatInt(int64(val)), nil
	case int16:
		return formatInt(int64(val)), nil
	case int32:
		return formatInt(int64(val)), nil
	case int64:
		return formatInt(val), nil
	case uint:
		return formatUint(uint64(val)), nil
	case uint8:
		return formatUint(uint64(val)), nil
	case uint16:
		return formatUint(uint64(val)), nil
	case uint32:
		return formatUint(uint64(val)), nil
	case uint64:
		return formatUint(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case string:
		return `"` + escapeFieldString(val) + `"`, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedField, v)
	}
}

// Integers carry the "i" suffix. Unsigned values are written as signed
// integers, which every InfluxDB version accepts.
func formatInt(v int64) string {
	return strconv.FormatInt(v, 10) + "i"
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10) + "i"
}

// escapeTag escapes special characters in tag keys/values and field keys.
// Newlines are stripped to prevent line protocol injection.
func escapeTag(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, " ", "\\ ")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "=", "\\=")
	return s
}

// escapeMeasurement escapes special characters in measurement names.
func escapeMeasurement(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, " ", "\\ ")
	s = strings.ReplaceAll(s, ",", "\\,")
	return s
}

func escapeFieldString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

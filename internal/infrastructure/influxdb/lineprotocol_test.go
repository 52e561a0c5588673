package influxdb

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsedLine is a line protocol record split back into its parts.
type parsedLine struct {
	measurement string
	tags        map[string]string
	fields      map[string]string
}

// splitUnescaped splits s at sep where sep is not preceded by a backslash.
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unescape(s string) string {
	r := strings.NewReplacer(`\ `, " ", `\,`, ",", `\=`, "=")
	return r.Replace(s)
}

// parseLine parses the subset of line protocol FormatLine produces:
// no timestamp and no spaces inside string fields.
func parseLine(t *testing.T, line string) parsedLine {
	t.Helper()
	sections := splitUnescaped(line, ' ')
	require.Len(t, sections, 2, "line %q", line)

	head := splitUnescaped(sections[0], ',')
	p := parsedLine{
		measurement: unescape(head[0]),
		tags:        map[string]string{},
		fields:      map[string]string{},
	}
	for _, kv := range head[1:] {
		pair := splitUnescaped(kv, '=')
		require.Len(t, pair, 2, "tag %q", kv)
		p.tags[unescape(pair[0])] = unescape(pair[1])
	}
	for _, kv := range splitUnescaped(sections[1], ',') {
		pair := splitUnescaped(kv, '=')
		require.Len(t, pair, 2, "field %q", kv)
		p.fields[unescape(pair[0])] = pair[1]
	}
	return p
}

func mustFormatLine(t *testing.T, measurement string, tags map[string]string, fields map[string]any) string {
	t.Helper()
	line, err := FormatLine(measurement, tags, fields)
	require.NoError(t, err)
	return line
}

func TestFormatLine(t *testing.T) {
	line := mustFormatLine(t, "temperature",
		map[string]string{
			"sensor_type": "gfroerli",
			"dev_eui":     "70B3D57ED0041234",
			"sensor_id":   "12",
			"bw":          "125000",
			"sf":          "9",
		},
		map[string]any{
			"water_temp":              Decimal{13.14, 2},
			"voltage":                 Decimal{3.21, 3},
			"airtime_ms":              205.0,
			"receiving_gateway_count": 2.0,
			"max_rssi":                -97.0,
			"max_snr":                 7.25,
			"sf":                      9.0,
		})

	assert.Equal(t,
		"temperature,bw=125000,dev_eui=70B3D57ED0041234,sensor_id=12,sensor_type=gfroerli,sf=9 "+
			"airtime_ms=205,max_rssi=-97,max_snr=7.25,receiving_gateway_count=2,sf=9,voltage=3.210,water_temp=13.14",
		line)
}

func TestFormatLine_OrderStable(t *testing.T) {
	build := func() string {
		tags := map[string]string{}
		fields := map[string]any{}
		for i := 0; i < 20; i++ {
			tags["t"+strconv.Itoa(i)] = strconv.Itoa(i)
			fields["f"+strconv.Itoa(i)] = float64(i)
		}
		return mustFormatLine(t, "m", tags, fields)
	}

	first := build()
	for i := 0; i < 50; i++ {
		require.Equal(t, first, build())
	}
}

func TestFormatLine_FieldTypes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"decimal two places", Decimal{26.1, 2}, "26.10"},
		{"decimal rounds", Decimal{-19.299999237060547, 2}, "-19.30"},
		{"decimal three places", Decimal{2.885, 3}, "2.885"},
		{"float64", 0.041, "0.041"},
		{"float64 integral", 3.0, "3"},
		{"float32", float32(13.14), "13.14"},
		{"int", 42, "42i"},
		{"int8", int8(-8), "-8i"},
		{"int16", int16(-300), "-300i"},
		{"int32", int32(70000), "70000i"},
		{"int64", int64(-7), "-7i"},
		{"uint", uint(5), "5i"},
		{"uint8", uint8(255), "255i"},
		{"uint16", uint16(9), "9i"},
		{"uint32", uint32(205), "205i"},
		{"uint64", uint64(1) << 40, "1099511627776i"},
		{"bool", true, "true"},
		{"string", `say "hi"`, `"say \"hi\""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "m v="+tt.want, mustFormatLine(t, "m", nil, map[string]any{"v": tt.value}))
		})
	}
}

func TestFormatLine_Escaping(t *testing.T) {
	line := mustFormatLine(t, "water temp,lake",
		map[string]string{"site name": "Lake Zurich,north=1", "empty": ""},
		map[string]any{"v": 1.5})

	assert.Equal(t, `water\ temp\,lake,site\ name=Lake\ Zurich\,north\=1 v=1.5`, line)
	assert.NotContains(t, mustFormatLine(t, "m\ninjected", nil, map[string]any{"v": 1.0}), "\n")
}

func TestFormatLine_UnsupportedField(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"slice", []byte{1}},
		{"pointer", new(float64)},
		{"struct", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := FormatLine("m", nil, map[string]any{"ok": 1.0, "bad": tt.value})
			require.ErrorIs(t, err, ErrUnsupportedField)
			assert.Contains(t, err.Error(), `field "bad"`)
			assert.Empty(t, line)
		})
	}
}

func TestFormatLine_ParseBack(t *testing.T) {
	tags := map[string]string{
		"sensor_id":   "7",
		"dev_eui":     "0004A30B001F1A2B",
		"sensor_type": "dragino",
		"note":        "a b,c=d",
	}
	fields := map[string]any{
		"water_temp": Decimal{26.1, 2},
		"voltage":    Decimal{2.885, 3},
		"airtime_ms": 41.0,
	}

	p := parseLine(t, mustFormatLine(t, "temperature", tags, fields))

	assert.Equal(t, "temperature", p.measurement)
	assert.Equal(t, tags, p.tags)
	assert.Equal(t, map[string]string{
		"water_temp": "26.10",
		"voltage":    "2.885",
		"airtime_ms": "41",
	}, p.fields)

	water, err := strconv.ParseFloat(p.fields["water_temp"], 64)
	require.NoError(t, err)
	assert.InDelta(t, 26.1, water, 0.005)
}

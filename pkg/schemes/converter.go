package schemes

import (
	"encoding/json"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/keypath"
)

// Representation names understood by DefaultConverter.
const (
	ReprString = "string"
	ReprInt    = "int"
	ReprFloat  = "float"
	ReprBool   = "bool"
	ReprJSON   = "json"
	ReprYAML   = "yaml"
	ReprURI    = "uri"
)

// DefaultConverter converts scalars and serializes trees.
type DefaultConverter struct{}

// AsRepresentation implements engine.TypeConverter.
func (DefaultConverter) AsRepresentation(value any, repr string) (any, bool) {
	switch repr {
	case ReprString:
		s, ok := keypath.AsString(value)
		return s, ok
	case ReprInt:
		i, err := keypath.AsInt(value)
		if err != nil {
			return nil, false
		}
		return i, true
	case ReprFloat:
		return asFloat(value)
	case ReprBool:
		if value == nil {
			return nil, false
		}
		return keypath.AsBoolean(value), true
	case ReprJSON:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, false
		}
		return string(data), true
	case ReprYAML:
		data, err := yaml.Marshal(value)
		if err != nil {
			return nil, false
		}
		return strings.TrimSuffix(string(data), "\n"), true
	case ReprURI:
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		u, err := curi.Parse(s)
		if err != nil {
			return nil, false
		}
		return u, true
	}
	return nil, false
}

func asFloat(v any) (any, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

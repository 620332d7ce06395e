package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/satishbabariya/coconutdal/runtime/param"
)

// parseInputs turns CLI arguments into command inputs. "name=value" and
// "name:type=value" become *param.Parameter; other arguments are raw values.
func parseInputs(args []string) ([]any, error) {
	inputs := make([]any, 0, len(args))
	for _, arg := range args {
		spec, raw, ok := strings.Cut(arg, "=")
		if !ok || spec == "" {
			inputs = append(inputs, arg)
			continue
		}
		name, typeName, typed := strings.Cut(spec, ":")
		t := param.Unspecified
		if typed {
			if t, ok = param.ParseDbType(typeName); !ok {
				return nil, fmt.Errorf("parameter %s: unknown type %q", name, typeName)
			}
		}
		value, err := convertValue(raw, t)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		inputs = append(inputs, param.New(name, value, param.WithType(t)))
	}
	return inputs, nil
}

func convertValue(raw string, t param.DbType) (any, error) {
	switch t {
	case param.Int16:
		return strconv.ParseInt(raw, 10, 16)
	case param.Int32:
		return strconv.ParseInt(raw, 10, 32)
	case param.Int64:
		return strconv.ParseInt(raw, 10, 64)
	case param.Float, param.Decimal:
		return strconv.ParseFloat(raw, 64)
	case param.Bool:
		return strconv.ParseBool(raw)
	case param.Guid:
		return uuid.Parse(raw)
	case param.DateTime:
		return time.Parse(time.RFC3339, raw)
	case param.Binary:
		return []byte(raw), nil
	default:
		return raw, nil
	}
}

package cli

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Alp4ka/sqlpager"
)

// parseParams turns "key=value" flags into query parameters. Values are YAML
// scalars or flow sequences: "30" is an int, "[1, 2]" a list, "'007'" a
// string.
func parseParams(raw []string) (map[string]any, error) {
	ret := make(map[string]any, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter '%s', expected key=value", item)
		}

		if err := sqlpager.ValidateParamKey(key); err != nil {
			return nil, err
		}

		var decoded any
		if err := yaml.Unmarshal([]byte(value), &decoded); err != nil {
			return nil, fmt.Errorf("invalid value of parameter '%s': %w", key, err)
		}

		ret[key] = decoded
	}

	return ret, nil
}

// parseOrderings reads "column direction" items. Columns are taken as is.
func parseOrderings(raw []string) (sqlpager.Orderings, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	mapping := make(sqlpager.ColumnMapping, len(raw))
	for _, item := range raw {
		if fields := strings.Fields(item); len(fields) > 0 {
			mapping[fields[0]] = fields[0]
		}
	}

	return sqlpager.ParseSort(raw, mapping)
}

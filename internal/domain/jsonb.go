package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONBMap is an opaque JSON object stored in a PostgreSQL JSONB column,
// used for free-form configuration such as crawl filters. It implements
// sql.Scanner and driver.Valuer.
type JSONBMap map[string]any

// Scan implements the sql.Scanner interface.
func (j *JSONBMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	data, err := coerceJSONBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*j = JSONBMap{}
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements the driver.Valuer interface.
func (j JSONBMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// coerceJSONBytes normalizes the driver value for a JSONB column to a byte
// slice. lib/pq returns []byte; some drivers hand back string.
func coerceJSONBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported driver type %T for JSONB column", value)
	}
}

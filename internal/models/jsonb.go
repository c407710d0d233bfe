package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Value implements driver.Valuer for the profile JSONB column
func (p Profile) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for the profile JSONB column
func (p *Profile) Scan(value any) error {
	return scanJSONB(value, p)
}

// Value implements driver.Valuer for the preferences JSONB column
func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for the preferences JSONB column
func (p *Preferences) Scan(value any) error {
	return scanJSONB(value, p)
}

func scanJSONB(value any, dst any) error {
	if value == nil {
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, dst)
}

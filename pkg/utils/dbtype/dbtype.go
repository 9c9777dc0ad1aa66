// Package dbtype holds JSON-in-a-text-column types shared by gorm models.
package dbtype

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray is a JSON array of strings stored in a text column
type StringArray []string

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	return string(b), err
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	b, err := scanBytes(value)
	if err != nil || len(b) == 0 {
		*a = StringArray{}
		return err
	}
	return json.Unmarshal(b, a)
}

// IntArray is a JSON array of ints stored in a text column
type IntArray []int

func (a IntArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	return string(b), err
}

func (a *IntArray) Scan(value interface{}) error {
	b, err := scanBytes(value)
	if err != nil || len(b) == 0 {
		*a = IntArray{}
		return err
	}
	return json.Unmarshal(b, a)
}

// FloatArray stores an embedding vector
type FloatArray []float32

func (a FloatArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	return string(b), err
}

func (a *FloatArray) Scan(value interface{}) error {
	b, err := scanBytes(value)
	if err != nil || len(b) == 0 {
		*a = FloatArray{}
		return err
	}
	return json.Unmarshal(b, a)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}

// JSONList is a JSON array of records stored in a text column
type JSONList[T any] []T

func (a JSONList[T]) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]T(a))
	return string(b), err
}

func (a *JSONList[T]) Scan(value interface{}) error {
	b, err := scanBytes(value)
	if err != nil || len(b) == 0 {
		*a = JSONList[T]{}
		return err
	}
	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*a = items
	return nil
}

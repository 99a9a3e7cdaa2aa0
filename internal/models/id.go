package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is the canonical string form of an entity identifier. The backend
// emits some identifiers as numbers and others as strings; both decode
// to the same ID so map lookups never miss on a type mismatch.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts `"art_2"`, `2` and `2.0` alike.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid identifier %s: %w", string(data), err)
	}
	*id = NormalizeID(n)
	return nil
}

// NormalizeID converts any identifier representation the backend or a
// caller may hand us into its canonical ID.
func NormalizeID(v interface{}) ID {
	switch x := v.(type) {
	case nil:
		return ""
	case ID:
		return ID(strings.TrimSpace(string(x)))
	case string:
		return ID(strings.TrimSpace(x))
	case int:
		return ID(strconv.Itoa(x))
	case int64:
		return ID(strconv.FormatInt(x, 10))
	case uint:
		return ID(strconv.FormatUint(uint64(x), 10))
	case uint64:
		return ID(strconv.FormatUint(x, 10))
	case float64:
		return formatFloatID(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return ID(strconv.FormatInt(i, 10))
		}
		if f, err := x.Float64(); err == nil {
			return formatFloatID(f)
		}
		return ID(x.String())
	case fmt.Stringer:
		return ID(strings.TrimSpace(x.String()))
	default:
		return ID(fmt.Sprint(x))
	}
}

func formatFloatID(f float64) ID {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64))
}

// IDs converts a list of raw identifiers into canonical form.
func IDs(values ...interface{}) []ID {
	out := make([]ID, 0, len(values))
	for _, v := range values {
		out = append(out, NormalizeID(v))
	}
	return out
}

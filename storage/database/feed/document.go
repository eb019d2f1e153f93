package feed

import (
	"encoding/json"
	"fmt"

	"github.com/trezcool/ebd/core"
)

// Document is a JSON encoded document.
type Document struct {
	DocID string
	Data  []byte
}

var _ core.Document = Document{}

func (d Document) ID() string { return d.DocID }

func (d Document) DataTo(v interface{}) error { return json.Unmarshal(d.Data, v) }

// Merge sets fields on the JSON object raw (which may be nil) and returns the new encoding.
func Merge(raw []byte, fields map[string]interface{}) ([]byte, error) {
	obj := make(map[string]interface{})
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		obj[k] = v
	}
	return json.Marshal(obj)
}

// AddToSet appends the values missing from the array field of the JSON object raw
// (which may be nil) and returns the new encoding.
func AddToSet(raw []byte, field string, values ...string) ([]byte, error) {
	obj := make(map[string]interface{})
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
	}
	var set []interface{}
	switch cur := obj[field].(type) {
	case nil:
	case []interface{}:
		set = cur
	default:
		return nil, fmt.Errorf("field %s is not an array", field)
	}
	for _, v := range values {
		if !contains(set, v) {
			set = append(set, v)
		}
	}
	obj[field] = set
	return json.Marshal(obj)
}

func contains(set []interface{}, v string) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}

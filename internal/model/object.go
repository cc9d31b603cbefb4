package model

import (
	"encoding/json"
	"sort"
)

// Object is a read-only view over a decoded JSON object. Numbers are kept
// as [json.Number].
type Object map[string]interface{}

func (o Object) Get(key string) (interface{}, bool) {
	v, ok := o[key]
	return v, ok
}

func (o Object) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string stored at key, or "" when it is missing or not a
// string.
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

func (o Object) Int(key string) (int64, bool) {
	n, ok := o[key].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	return i, err == nil
}

func (o Object) Float(key string) (float64, bool) {
	n, ok := o[key].(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	return f, err == nil
}

func (o Object) Bool(key string) (bool, bool) {
	b, ok := o[key].(bool)
	return b, ok
}

// Object returns the nested object at key, nil when there is none.
func (o Object) Object(key string) Object {
	m, _ := o[key].(map[string]interface{})
	return Object(m)
}

func (o Object) Array(key string) []interface{} {
	a, _ := o[key].([]interface{})
	return a
}

// Path walks nested objects along keys.
func (o Object) Path(keys ...string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(o)
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package goshape

import (
	"reflect"
	"strings"
)

// ResolveStructKey resolves the key under which a struct field appears when a
// struct is validated as a keyed structure.
// Priority: goshape:"name" > json tag name > field name; "-" hides the field.
func ResolveStructKey(sf reflect.StructField) string {
	name, _ := structKey(sf)
	return name
}

// structKey is ResolveStructKey plus whether the name came from a tag.
func structKey(sf reflect.StructField) (string, bool) {
	if gt, ok := sf.Tag.Lookup("goshape"); ok {
		if name, _, _ := strings.Cut(gt, ","); name != "" {
			return name, true
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-", true
		}
		if name, _, _ := strings.Cut(jt, ","); name != "" {
			return name, true
		}
	}
	return sf.Name, false
}

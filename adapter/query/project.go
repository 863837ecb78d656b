package query

import (
	"strings"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
)

// modelFields lists the document field names a struct type is decoded from.
// Fields of untagged embedded structs are promoted, as in [data.NewDocument].
func modelFields(typ reflect.Type) []string {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}
	var res []string
	for n := range typ.NumField() {
		field := typ.Field(n)
		tag, tagged := field.Tag.Lookup(data.TagName)
		if field.Anonymous && !tagged && field.PkgPath == "" {
			res = append(res, modelFields(field.Type)...)
			continue
		}
		if field.PkgPath != "" || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		res = append(res, name)
	}
	return res
}

// Package decoder fills records from documents.
package decoder

import (
	"fmt"
	"iter"
	"maps"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var documentType = reflect.TypeOf((*domain.Document)(nil)).Elem()

// Decoder implements [domain.Decoder] on top of mapstructure, reading the
// godm struct tag. Untagged embedded structs are squashed into their parent
// the same way [data.NewDocument] flattens them, and RFC 3339 strings are
// accepted for [time.Time] fields.
type Decoder struct{}

// NewDecoder returns a [Decoder].
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements [domain.Decoder].
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}
	ptr := reflect.ValueNoEscapeOf(target)
	switch {
	case ptr.Kind() != reflect.Ptr:
		return domain.ErrNonPointer
	case ptr.IsNil():
		return domain.ErrTargetNil
	}

	// Targets that are documents themselves keep the source types.
	if !ptr.Type().Elem().Implements(documentType) {
		source = plain(source)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		TagName:    data.TagName,
		Squash:     true,
		Result:     target,
	})
	if err != nil {
		return err
	}
	if err = dec.Decode(source); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDecode{Source: source, Target: target}, err)
	}
	return nil
}

// plain replaces documents with map[string]any, recursively, since
// mapstructure only walks builtin maps.
func plain(value any) any {
	switch v := value.(type) {
	case data.M:
		return plainMap(len(v), maps.All(v))
	case map[string]any:
		return plainMap(len(v), maps.All(v))
	case domain.Document:
		return plainMap(v.Len(), v.Iter())
	case []any:
		out := make([]any, len(v))
		for n, e := range v {
			out[n] = plain(e)
		}
		return out
	}
	return value
}

func plainMap(size int, fields iter.Seq2[string, any]) map[string]any {
	out := make(map[string]any, size)
	for k, v := range fields {
		out[k] = plain(v)
	}
	return out
}

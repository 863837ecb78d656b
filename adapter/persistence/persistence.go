// Package persistence reads and writes documents as JSON lines.
//
// Dates are written as {"$$date": <unix milliseconds>} and read back as UTC
// [time.Time] values. Integers are read back as int64. A line holding an _id
// and "$$deleted": true removes the document previously read with that id.
package persistence

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"
	"time"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// ErrCorruptFiles is returned by [Persistence.Read] when the share of
// unreadable lines is above the configured threshold.
type ErrCorruptFiles struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

// Error implements [error].
func (e ErrCorruptFiles) Error() string {
	return fmt.Sprintf(
		"%.1f%% of the data is corrupt (%d of %d lines), more than the %.1f%% threshold",
		e.CorruptionRate*100, e.CorruptItems, e.DataLength, e.CorruptAlertThreshold*100,
	)
}

// Persistence converts documents to and from JSON lines.
type Persistence struct {
	corruptAlertThreshold float64
	comparer              domain.Comparer
	log                   *zap.Logger
}

// NewPersistence returns a new Persistence. By default up to 10% of the lines
// may be corrupt.
func NewPersistence(options ...Option) *Persistence {
	p := Persistence{
		corruptAlertThreshold: 0.1,
	}
	for _, option := range options {
		option(&p)
	}
	if p.comparer == nil {
		p.comparer = comparer.NewComparer()
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return &p
}

// Write writes one line per document to w.
func (p *Persistence) Write(ctx context.Context, w io.Writer, docs iter.Seq[domain.Document]) error {
	buf := bufio.NewWriter(contextio.NewWriter(ctx, w))
	for doc := range docs {
		b, err := json.Marshal(encode(doc))
		if err != nil {
			return fmt.Errorf("serializing document %v: %w", doc.ID(), err)
		}
		if _, err := buf.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// Read reads documents written by [Persistence.Write], ordered by id. Blank
// lines are ignored; corrupt lines are skipped with a warning.
func (p *Persistence) Read(ctx context.Context, r io.Reader) ([]domain.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	byID := make(map[any]domain.Document)
	var ids []any
	corruptItems, dataLength := 0, 0

	lineStream := bufio.NewScanner(contextio.NewReader(ctx, r))
	lineStream.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for lineStream.Scan() {
		line := bytes.TrimSpace(lineStream.Bytes())
		if len(line) == 0 {
			continue
		}
		dataLength++
		doc, err := p.parseLine(line)
		if err != nil {
			corruptItems++
			p.log.Warn("skipping corrupt line", zap.Int("line", dataLength), zap.Error(err))
			continue
		}
		id := doc.ID()
		if doc.Get("$$deleted") == true {
			delete(byID, id)
			continue
		}
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = doc
	}
	if err := lineStream.Err(); err != nil {
		return nil, err
	}

	if dataLength > 0 {
		corruptionRate := float64(corruptItems) / float64(dataLength)
		if corruptionRate > p.corruptAlertThreshold {
			return nil, ErrCorruptFiles{
				CorruptionRate:        corruptionRate,
				CorruptItems:          corruptItems,
				DataLength:            dataLength,
				CorruptAlertThreshold: p.corruptAlertThreshold,
			}
		}
	}

	docs := make([]domain.Document, 0, len(byID))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
			delete(byID, id)
		}
	}
	slices.SortStableFunc(docs, func(a, b domain.Document) int {
		c, _ := p.comparer.Compare(a.ID(), b.ID())
		return c
	})
	return docs, nil
}

func (p *Persistence) parseLine(line []byte) (data.M, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	doc, ok := decode(raw).(data.M)
	if !ok {
		return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", raw)}
	}
	id := doc.ID()
	if id == nil {
		return nil, domain.ErrNoID
	}
	switch id.(type) {
	case data.M, []any:
		return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", id)}
	}
	return doc, nil
}

func encode(v any) any {
	switch t := v.(type) {
	case time.Time:
		return map[string]any{"$$date": t.UnixMilli()}
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = encode(item)
		}
		return res
	}
	if d, ok := data.AsDocument(v); ok {
		res := make(map[string]any, d.Len())
		for k, item := range d.Iter() {
			res[k] = encode(item)
		}
		return res
	}
	return v
}

func decode(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = decode(item)
		}
		return res
	case map[string]any:
		if date, ok := t["$$date"].(json.Number); ok && len(t) == 1 {
			if ms, err := date.Int64(); err == nil {
				return time.UnixMilli(ms).UTC()
			}
		}
		res := make(data.M, len(t))
		for k, item := range t {
			res[k] = decode(item)
		}
		return res
	}
	return v
}

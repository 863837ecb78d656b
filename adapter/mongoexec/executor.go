// Package mongoexec contains a [domain.Executor] that runs queries against a
// MongoDB collection.
package mongoexec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/godm/config"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrMultiReplace is returned when a replacement document is used to
	// update more than one document.
	ErrMultiReplace = errors.New("replacement documents can only update a single document")
	// ErrMissingNamespace is returned by [Open] when the settings do not
	// name a database and a collection.
	ErrMissingNamespace = errors.New("database and collection are required")
)

// Collection is the subset of *mongo.Collection used by [Executor].
type Collection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter any, opts ...options.Lister[options.CountOptions]) (int64, error)
	InsertMany(ctx context.Context, documents any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error)
	UpdateOne(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateManyOptions]) (*mongo.UpdateResult, error)
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...options.Lister[options.ReplaceOptions]) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter any, opts ...options.Lister[options.DeleteManyOptions]) (*mongo.DeleteResult, error)
	Aggregate(ctx context.Context, pipeline any, opts ...options.Lister[options.AggregateOptions]) (*mongo.Cursor, error)
}

// Executor implements [domain.Executor] over a MongoDB collection.
type Executor struct {
	coll   Collection
	client *mongo.Client
	dec    domain.Decoder
	idGen  domain.IDGenerator
	log    *zap.Logger
}

// NewExecutor returns an Executor running its calls on coll.
func NewExecutor(coll Collection, opts ...Option) *Executor {
	e := &Executor{coll: coll}
	for _, option := range opts {
		option(e)
	}
	if e.dec == nil {
		e.dec = decoder.NewDecoder()
	}
	if e.idGen == nil {
		e.idGen = idgenerator.NewIDGenerator()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Open connects to the server in s.MongoURI and returns an Executor for the
// configured collection. The connection is released by [Executor.Close].
func Open(ctx context.Context, s config.Settings, opts ...Option) (*Executor, error) {
	if s.Database == "" || s.Collection == "" {
		return nil, ErrMissingNamespace
	}
	client, err := mongo.Connect(options.Client().ApplyURI(s.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	e := NewExecutor(client.Database(s.Database).Collection(s.Collection), opts...)
	e.client = client
	return e, nil
}

// Close disconnects the client created by [Open]. Executors built with
// [NewExecutor] have nothing to release.
func (e *Executor) Close(ctx context.Context) error {
	if e.client == nil {
		return nil
	}
	return e.client.Disconnect(ctx)
}

// Find implements [domain.Executor].
func (e *Executor) Find(ctx context.Context, filter domain.Document, opts ...domain.FindOption) (domain.Cursor, error) {
	o := domain.NewFindOptions(opts...)

	fo := options.Find()
	if len(o.Sort) > 0 {
		fo.SetSort(sortToBSON(o.Sort))
	}
	if o.Skip > 0 {
		fo.SetSkip(o.Skip)
	}
	if o.Limit > 0 {
		fo.SetLimit(o.Limit)
	}
	if o.Projection != nil && o.Projection.Len() > 0 {
		fo.SetProjection(docToBSON(o.Projection))
	}

	f := filterToBSON(filter)
	e.log.Debug("find", zap.Any("filter", f), zap.Int64("skip", o.Skip), zap.Int64("limit", o.Limit))
	mcur, err := e.coll.Find(ctx, f, fo)
	if err != nil {
		return nil, err
	}
	return e.cursor(ctx, mcur)
}

func (e *Executor) cursor(ctx context.Context, mcur *mongo.Cursor) (domain.Cursor, error) {
	seq := func(yield func(domain.Document, error) bool) {
		defer mcur.Close(context.WithoutCancel(ctx))
		for mcur.Next(ctx) {
			var doc bson.D
			if err := mcur.Decode(&doc); err != nil {
				yield(nil, err)
				return
			}
			if !yield(docFromBSON(doc), nil) {
				return
			}
		}
		if err := mcur.Err(); err != nil {
			yield(nil, err)
		}
	}
	cur, err := cursor.NewSeqCursor(ctx, seq, domain.WithCursorDecoder(e.dec))
	if err != nil {
		_ = mcur.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return cur, nil
}

// Count implements [domain.Executor].
func (e *Executor) Count(ctx context.Context, filter domain.Document) (int64, error) {
	return e.coll.CountDocuments(ctx, filterToBSON(filter))
}

// Insert implements [domain.Executor]. Documents without _id get one from
// the id generator.
func (e *Executor) Insert(ctx context.Context, docs ...domain.Document) ([]any, error) {
	if len(docs) == 0 {
		return []any{}, nil
	}
	batch := make([]any, len(docs))
	for n, doc := range docs {
		d := bson.M{}
		if doc != nil {
			d = docToBSON(doc)
		}
		if d["_id"] == nil {
			id, err := e.idGen.GenerateID()
			if err != nil {
				return nil, fmt.Errorf("generating id: %w", err)
			}
			d["_id"] = id
		}
		batch[n] = d
	}

	res, err := e.coll.InsertMany(ctx, batch)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrConstraintViolated, err)
		}
		return nil, err
	}
	e.log.Debug("insert", zap.Any("ids", res.InsertedIDs))

	ids := make([]any, len(res.InsertedIDs))
	for n, id := range res.InsertedIDs {
		ids[n] = fromBSON(id)
	}
	return ids, nil
}

// Update implements [domain.Executor]. Documents without operators replace
// the matched document and cannot be used with Multi.
func (e *Executor) Update(ctx context.Context, filter domain.Document, update domain.Document, opts ...domain.UpdateOption) (domain.UpdateResult, error) {
	o := domain.NewUpdateOptions(opts...)
	if update == nil || update.Len() == 0 {
		return domain.UpdateResult{}, domain.ErrEmptyExpression{Operator: "update"}
	}

	f, u := filterToBSON(filter), docToBSON(update)
	replace := !isOperatorDoc(u)
	if o.Upsert {
		if err := e.upsertID(f, u, replace); err != nil {
			return domain.UpdateResult{}, err
		}
	}
	e.log.Debug("update", zap.Any("filter", f), zap.Any("update", u), zap.Bool("multi", o.Multi), zap.Bool("upsert", o.Upsert))

	var (
		res *mongo.UpdateResult
		err error
	)
	switch {
	case replace && o.Multi:
		return domain.UpdateResult{}, ErrMultiReplace
	case replace:
		res, err = e.coll.ReplaceOne(ctx, f, u, options.Replace().SetUpsert(o.Upsert))
	case o.Multi:
		res, err = e.coll.UpdateMany(ctx, f, u, options.UpdateMany().SetUpsert(o.Upsert))
	default:
		res, err = e.coll.UpdateOne(ctx, f, u, options.UpdateOne().SetUpsert(o.Upsert))
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.UpdateResult{}, fmt.Errorf("%w: %w", domain.ErrConstraintViolated, err)
		}
		return domain.UpdateResult{}, err
	}
	return domain.UpdateResult{
		Matched:    res.MatchedCount,
		Modified:   res.ModifiedCount,
		UpsertedID: fromBSON(res.UpsertedID),
	}, nil
}

// upsertID makes upserted documents get an id from the id generator instead
// of a server generated object id.
func (e *Executor) upsertID(filter, update bson.M, replace bool) error {
	if _, ok := filter["_id"]; ok {
		return nil
	}
	if replace {
		if update["_id"] != nil {
			return nil
		}
	} else if set, ok := update["$set"].(bson.M); ok && set["_id"] != nil {
		return nil
	}
	id, err := e.idGen.GenerateID()
	if err != nil {
		return fmt.Errorf("generating id: %w", err)
	}
	if replace {
		update["_id"] = id
		return nil
	}
	onInsert, _ := update["$setOnInsert"].(bson.M)
	if onInsert == nil {
		onInsert = bson.M{}
	}
	if onInsert["_id"] == nil {
		onInsert["_id"] = id
	}
	update["$setOnInsert"] = onInsert
	return nil
}

func isOperatorDoc(d bson.M) bool {
	for key := range d {
		if !strings.HasPrefix(key, "$") {
			return false
		}
	}
	return true
}

// Delete implements [domain.Executor].
func (e *Executor) Delete(ctx context.Context, filter domain.Document, opts ...domain.DeleteOption) (int64, error) {
	o := domain.NewDeleteOptions(opts...)

	f := filterToBSON(filter)
	e.log.Debug("delete", zap.Any("filter", f), zap.Bool("multi", o.Multi))

	var (
		res *mongo.DeleteResult
		err error
	)
	if o.Multi {
		res, err = e.coll.DeleteMany(ctx, f)
	} else {
		res, err = e.coll.DeleteOne(ctx, f)
	}
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Aggregate implements [domain.Executor]. Every stage is run by the server.
func (e *Executor) Aggregate(ctx context.Context, pipeline []domain.Document) (domain.Cursor, error) {
	stages := make(bson.A, len(pipeline))
	for n, stage := range pipeline {
		if stage == nil {
			return nil, fmt.Errorf("stage %d: %w", n, domain.ErrDocumentType{Type: "nil"})
		}
		stages[n] = docToBSON(stage)
	}
	e.log.Debug("aggregate", zap.Any("pipeline", stages))

	mcur, err := e.coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, err
	}
	return e.cursor(ctx, mcur)
}

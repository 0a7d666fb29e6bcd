/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongodb

import (
	"context"
	"fmt"

	"github.com/suparena/docmodel/datastore"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
)

// DefaultDatabase is used when the connection string names no database.
const DefaultDatabase = "test"

// Database wraps a *mongo.Database
type Database struct {
	client     *mongo.Client
	db         *mongo.Database
	ownsClient bool
	logger     *zap.SugaredLogger
}

// Option configures a Database
type Option func(*config)

type config struct {
	database      string
	logger        *zap.Logger
	clientOptions []*options.ClientOptions
}

// WithDatabase overrides the database named in the connection string
func WithDatabase(name string) Option {
	return func(c *config) {
		c.database = name
	}
}

// WithLogger sets the logger used for connection lifecycle messages
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClientOptions merges extra driver options after the URI
func WithClientOptions(opts ...*options.ClientOptions) Option {
	return func(c *config) {
		c.clientOptions = append(c.clientOptions, opts...)
	}
}

// Connect dials uri and selects the database named in its path (or DefaultDatabase)
func Connect(ctx context.Context, uri string, opts ...Option) (*Database, error) {
	cfg := &config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.database == "" {
		cs, err := connstring.ParseAndValidate(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %w", err)
		}
		cfg.database = cs.Database
	}
	if cfg.database == "" {
		cfg.database = DefaultDatabase
	}

	clientOpts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, cfg.clientOptions...)
	client, err := mongo.Connect(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	d := &Database{
		client:     client,
		db:         client.Database(cfg.database),
		ownsClient: true,
		logger:     cfg.logger.Sugar(),
	}
	d.logger.Debugw("Connected to mongodb", "database", cfg.database)
	return d, nil
}

// New wraps an existing database handle; Close leaves the client open
func New(db *mongo.Database) *Database {
	return &Database{
		client: db.Client(),
		db:     db,
		logger: zap.NewNop().Sugar(),
	}
}

// Name returns the database name
func (d *Database) Name() string {
	return d.db.Name()
}

// Collection returns a handle to the named collection
func (d *Database) Collection(name string) datastore.Collection {
	return &Collection{coll: d.db.Collection(name)}
}

// Ping checks the primary is reachable
func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client if this Database created it
func (d *Database) Close(ctx context.Context) error {
	if !d.ownsClient {
		return nil
	}
	d.logger.Debugw("Disconnecting from mongodb", "database", d.db.Name())
	return d.client.Disconnect(ctx)
}

// Client exposes the underlying driver client
func (d *Database) Client() *mongo.Client {
	return d.client
}

// Collection wraps a *mongo.Collection
type Collection struct {
	coll *mongo.Collection
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.coll.Name()
}

// Find runs a query; *mongo.Cursor is returned as is
func (c *Collection) Find(ctx context.Context, filter any, params *storagemodels.FindParams) (datastore.Cursor, error) {
	cur, err := c.coll.Find(ctx, orEmpty(filter), FindOptions(params))
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// FindOne returns the first match or (nil, nil)
func (c *Collection) FindOne(ctx context.Context, filter any, params *storagemodels.FindParams) (bson.M, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, orEmpty(filter), FindOneOptions(params)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// InsertOne inserts doc and returns its id
func (c *Collection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

// InsertMany inserts docs in order
func (c *Collection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	in := make([]any, len(docs))
	for i := range docs {
		in[i] = docs[i]
	}
	res, err := c.coll.InsertMany(ctx, in)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

// UpdateOne updates the first matching document
func (c *Collection) UpdateOne(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error) {
	res, err := c.coll.UpdateOne(ctx, orEmpty(filter), update, UpdateOptions(params))
	return updateResult(res, err)
}

// UpdateMany updates every matching document
func (c *Collection) UpdateMany(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error) {
	res, err := c.coll.UpdateMany(ctx, orEmpty(filter), update, UpdateOptions(params))
	return updateResult(res, err)
}

// ReplaceOne overwrites the first matching document
func (c *Collection) ReplaceOne(ctx context.Context, filter any, doc bson.M) (*storagemodels.UpdateResult, error) {
	res, err := c.coll.ReplaceOne(ctx, orEmpty(filter), doc)
	return updateResult(res, err)
}

// DeleteOne deletes the first matching document
func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, orEmpty(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteMany deletes every matching document
func (c *Collection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, orEmpty(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountDocuments counts matching documents
func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	return c.coll.CountDocuments(ctx, orEmpty(filter))
}

// Distinct returns the distinct values of field
func (c *Collection) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	return c.coll.Distinct(ctx, field, orEmpty(filter))
}

// Aggregate runs an aggregation pipeline
func (c *Collection) Aggregate(ctx context.Context, pipeline any) (datastore.Cursor, error) {
	if pipeline == nil {
		pipeline = mongo.Pipeline{}
	}
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// CreateIndex creates an index and returns its name
func (c *Collection) CreateIndex(ctx context.Context, spec storagemodels.IndexSpec) (string, error) {
	return c.coll.Indexes().CreateOne(ctx, IndexModel(spec))
}

// Drop drops the collection
func (c *Collection) Drop(ctx context.Context) error {
	return c.coll.Drop(ctx)
}

// FindOptions converts FindParams to driver options
func FindOptions(params *storagemodels.FindParams) *options.FindOptions {
	opts := options.Find()
	if params == nil {
		return opts
	}
	if len(params.Sort) > 0 {
		opts.SetSort(params.Sort)
	}
	if params.Skip > 0 {
		opts.SetSkip(params.Skip)
	}
	if params.Limit > 0 {
		opts.SetLimit(params.Limit)
	}
	if len(params.Projection) > 0 {
		opts.SetProjection(params.Projection)
	}
	if params.MaxTime > 0 {
		opts.SetMaxTime(params.MaxTime)
	}
	if params.BatchSize > 0 {
		opts.SetBatchSize(params.BatchSize)
	}
	return opts
}

// FindOneOptions converts FindParams to driver options for a single-document read
func FindOneOptions(params *storagemodels.FindParams) *options.FindOneOptions {
	opts := options.FindOne()
	if params == nil {
		return opts
	}
	if len(params.Sort) > 0 {
		opts.SetSort(params.Sort)
	}
	if params.Skip > 0 {
		opts.SetSkip(params.Skip)
	}
	if len(params.Projection) > 0 {
		opts.SetProjection(params.Projection)
	}
	if params.MaxTime > 0 {
		opts.SetMaxTime(params.MaxTime)
	}
	return opts
}

// UpdateOptions converts UpdateParams to driver options
func UpdateOptions(params *storagemodels.UpdateParams) *options.UpdateOptions {
	opts := options.Update()
	if params != nil && params.Upsert {
		opts.SetUpsert(true)
	}
	return opts
}

// IndexModel converts an IndexSpec to a driver index model
func IndexModel(spec storagemodels.IndexSpec) mongo.IndexModel {
	opts := options.Index()
	if spec.Name != "" {
		opts.SetName(spec.Name)
	}
	if spec.Unique {
		opts.SetUnique(true)
	}
	if spec.Sparse {
		opts.SetSparse(true)
	}
	return mongo.IndexModel{Keys: spec.Keys, Options: opts}
}

func updateResult(res *mongo.UpdateResult, err error) (*storagemodels.UpdateResult, error) {
	if err != nil {
		return nil, err
	}
	return &storagemodels.UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

func orEmpty(filter any) any {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docmodel/datastore"
	"github.com/suparena/docmodel/datastore/docquery"
	dmerrors "github.com/suparena/docmodel/errors"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const storeName = "dynamodb"

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
}

// Database stores every collection of a docmodel database in one DynamoDB table.
// Items are keyed PK = collection name, SK = encoded document id.
type Database struct {
	client    API
	tableName string
	typeKey   string
	typeIndex *GSIConfig
	scan      storagemodels.ScanOptions
	logger    *zap.SugaredLogger
}

// Option configures a Database
type Option func(*settings)

type settings struct {
	accessKey string
	secretKey string
	endpoint  string
	typeKey   string
	typeIndex *GSIConfig
	scan      []storagemodels.ScanOption
	logger    *zap.Logger
}

// WithCredentials uses static credentials instead of the default provider chain
func WithCredentials(accessKey, secretKey string) Option {
	return func(s *settings) {
		s.accessKey = accessKey
		s.secretKey = secretKey
	}
}

// WithEndpoint points the client at a custom endpoint such as DynamoDB Local
func WithEndpoint(url string) Option {
	return func(s *settings) {
		s.endpoint = url
	}
}

// WithEntityType records the string value of field as the item's EntityType
// and, when index is non-nil, projects it into that GSI for server-side
// lookups by type.
func WithEntityType(field string, index *GSIConfig) Option {
	return func(s *settings) {
		s.typeKey = field
		s.typeIndex = index
	}
}

// WithScanOptions configures paging and retries
func WithScanOptions(opts ...storagemodels.ScanOption) Option {
	return func(s *settings) {
		s.scan = append(s.scan, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// NewDynamoDBClient initializes a DynamoDB client. Empty keys fall back to the
// default credential chain.
func NewDynamoDBClient(ctx context.Context, awsAccessKey, awsSecretKey, awsRegion, endpoint string) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(awsRegion)}
	if awsAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Connect creates a client for region and returns a Database over tableName
func Connect(ctx context.Context, region, tableName string, opts ...Option) (*Database, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	client, err := NewDynamoDBClient(ctx, s.accessKey, s.secretKey, region, s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	d := New(client, tableName, opts...)
	d.logger.Debugw("DynamoDB client initialized", "table", tableName, "region", region)
	return d, nil
}

// New returns a Database over an existing client
func New(client API, tableName string, opts ...Option) *Database {
	s := &settings{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	scan := storagemodels.DefaultScanOptions()
	for _, opt := range s.scan {
		opt(&scan)
	}
	return &Database{
		client:    client,
		tableName: tableName,
		typeKey:   s.typeKey,
		typeIndex: s.typeIndex,
		scan:      scan,
		logger:    s.logger.Sugar(),
	}
}

// Name returns the table name
func (d *Database) Name() string {
	return d.tableName
}

// Collection returns a handle scoped to one partition of the table
func (d *Database) Collection(name string) datastore.Collection {
	return &Collection{store: d, name: name}
}

// Ping describes the table
func (d *Database) Ping(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(d.tableName)})
	return err
}

// Close is a no-op; the SDK client holds no connections that need releasing
func (d *Database) Close(ctx context.Context) error {
	return nil
}

// Collection is one partition of the table
type Collection struct {
	store *Database
	name  string
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// Find loads the partition and evaluates filter, sort, window and projection client-side
func (c *Collection) Find(ctx context.Context, filter any, params *storagemodels.FindParams) (datastore.Cursor, error) {
	docs, err := c.find(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	return docquery.NewCursor(docs), nil
}

// FindOne returns the first match or (nil, nil)
func (c *Collection) FindOne(ctx context.Context, filter any, params *storagemodels.FindParams) (bson.M, error) {
	p := storagemodels.NewFindParams()
	if params != nil {
		p = params.Clone()
	}
	p.Limit = 1
	docs, err := c.find(ctx, filter, p)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docquery.Map(docs[0])
}

func (c *Collection) find(ctx context.Context, filter any, params *storagemodels.FindParams) (docquery.List, error) {
	matched, err := c.match(ctx, filter)
	if err != nil {
		return nil, err
	}
	docs := make(docquery.List, len(matched))
	for i := range matched {
		docs[i] = matched[i].ordered
	}
	if params == nil {
		return docs, nil
	}
	if docs, err = docquery.Sort(docs, params.Sort); err != nil {
		return nil, err
	}
	docs = docquery.Window(docs, params.Skip, params.Limit)
	if len(params.Projection) > 0 {
		return docquery.Project(docs, params.Projection)
	}
	return docs, nil
}

// match returns the stored documents matching filter. An equality filter on
// _id is served by GetItem, an equality filter on the entity type by the type index.
func (c *Collection) match(ctx context.Context, filter any) ([]storedDoc, error) {
	f, err := docquery.Convert(filter)
	if err != nil {
		return nil, err
	}

	var candidates []storedDoc
	if id, ok := docquery.Lookup(f, "_id"); ok && !docquery.IsOperatorValue(id) {
		sd, err := c.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sd != nil {
			candidates = []storedDoc{*sd}
		}
	} else {
		entityType := ""
		if c.store.typeKey != "" {
			v, _ := docquery.Lookup(f, c.store.typeKey)
			entityType, _ = v.(string)
		}
		if candidates, err = c.loadPartition(ctx, entityType); err != nil {
			return nil, err
		}
	}

	out := candidates[:0]
	for _, sd := range candidates {
		if sd.ordered, err = docquery.Convert(sd.doc); err != nil {
			return nil, err
		}
		ok, err := docquery.Match(sd.ordered, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sd)
		}
	}
	return out, nil
}

func (c *Collection) get(ctx context.Context, id any) (*storedDoc, error) {
	sk, err := keyString(id)
	if err != nil {
		return nil, err
	}
	out, err := c.store.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(c.store.tableName),
		Key:            itemKey(c.name, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	doc, rev, err := decodeItem(out.Item)
	if err != nil {
		return nil, err
	}
	return &storedDoc{doc: doc, rev: rev}, nil
}

// put writes doc at rev+1. A zero rev requires the item to be absent,
// otherwise the stored revision must still equal rev.
func (c *Collection) put(ctx context.Context, doc bson.M, rev int64) error {
	av, err := encodeItem(c.name, doc, rev+1, c.store.typeKey, c.store.typeIndex)
	if err != nil {
		return err
	}

	input := &sdk.PutItemInput{
		TableName: aws.String(c.store.tableName),
		Item:      av,
	}
	if rev == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		input.ConditionExpression = aws.String("Rev = :rev")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":rev": &types.AttributeValueMemberN{Value: strconv.FormatInt(rev, 10)},
		}
	}

	_, err = c.store.client.PutItem(ctx, input)
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return dmerrors.NewConditionFailedError("put", *input.ConditionExpression)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// InsertOne stores doc, assigning an ObjectID when _id is absent
func (c *Collection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	stored, err := docquery.Copy(doc)
	if err != nil {
		return nil, err
	}
	if _, ok := stored["_id"]; !ok {
		stored["_id"] = primitive.NewObjectID()
	}
	if err := c.put(ctx, stored, 0); err != nil {
		return nil, err
	}
	return stored["_id"], nil
}

// InsertMany inserts docs one by one, stopping at the first failure
func (c *Collection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		id, err := c.InsertOne(ctx, doc)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UpdateOne updates the first matching document
func (c *Collection) UpdateOne(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error) {
	return c.update(ctx, filter, update, params, false)
}

// UpdateMany updates every matching document; each write is conditional on its revision
func (c *Collection) UpdateMany(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error) {
	return c.update(ctx, filter, update, params, true)
}

// ReplaceOne overwrites the first matching document, keeping its _id
func (c *Collection) ReplaceOne(ctx context.Context, filter any, doc bson.M) (*storagemodels.UpdateResult, error) {
	replacement, err := docquery.Convert(doc)
	if err != nil {
		return nil, err
	}
	if docquery.IsOperatorUpdate(replacement) {
		return nil, dmerrors.NewValidationError("replacement", "must not contain update operators")
	}
	return c.update(ctx, filter, replacement, nil, false)
}

func (c *Collection) update(ctx context.Context, filter, update any, params *storagemodels.UpdateParams, multi bool) (*storagemodels.UpdateResult, error) {
	f, err := docquery.Convert(filter)
	if err != nil {
		return nil, err
	}
	u, err := docquery.Convert(update)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = storagemodels.NewUpdateParams()
	}
	matched, err := c.match(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &storagemodels.UpdateResult{}
	for _, sd := range matched {
		result.MatchedCount++
		next, err := docquery.Apply(sd.ordered, f, u, false)
		if err != nil {
			return result, err
		}
		if !docquery.Same(sd.ordered, next) {
			m, err := docquery.Map(next)
			if err != nil {
				return result, err
			}
			if err := c.put(ctx, m, sd.rev); err != nil {
				return result, err
			}
			result.ModifiedCount++
		}
		if !multi {
			break
		}
	}

	if result.MatchedCount == 0 && params.Upsert {
		doc, err := docquery.Apply(docquery.Seed(f), f, u, true)
		if err != nil {
			return nil, err
		}
		m, err := docquery.Map(doc)
		if err != nil {
			return nil, err
		}
		id, err := c.InsertOne(ctx, m)
		if err != nil {
			return nil, err
		}
		result.UpsertedCount = 1
		result.UpsertedID = id
	}
	return result, nil
}

// DeleteOne deletes the first matching document
func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	return c.delete(ctx, filter, false)
}

// DeleteMany deletes every matching document
func (c *Collection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	return c.delete(ctx, filter, true)
}

func (c *Collection) delete(ctx context.Context, filter any, multi bool) (int64, error) {
	matched, err := c.match(ctx, filter)
	if err != nil {
		return 0, err
	}
	var deleted int64
	for _, sd := range matched {
		sk, err := keyString(sd.doc["_id"])
		if err != nil {
			return deleted, err
		}
		_, err = c.store.client.DeleteItem(ctx, &sdk.DeleteItemInput{
			TableName: aws.String(c.store.tableName),
			Key:       itemKey(c.name, sk),
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete item in DynamoDB: %w", err)
		}
		deleted++
		if !multi {
			break
		}
	}
	return deleted, nil
}

// CountDocuments counts matching documents
func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	matched, err := c.match(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Distinct returns the distinct values of field among matching documents
func (c *Collection) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	docs, err := c.find(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	return docquery.Distinct(docs, field), nil
}

// Aggregate runs pipeline client-side over the whole partition
func (c *Collection) Aggregate(ctx context.Context, pipeline any) (datastore.Cursor, error) {
	docs, err := c.find(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	out, err := docquery.Aggregate(docs, pipeline)
	if err != nil {
		return nil, err
	}
	return docquery.NewCursor(out), nil
}

// CreateIndex is not available; secondary indexes are part of the table definition
func (c *Collection) CreateIndex(ctx context.Context, spec storagemodels.IndexSpec) (string, error) {
	return "", dmerrors.NewUnsupportedError(storeName, "create index")
}

// Drop deletes every item of the partition
func (c *Collection) Drop(ctx context.Context) error {
	n, err := c.delete(ctx, nil, true)
	c.store.logger.Debugw("Dropped collection", "collection", c.name, "deleted", n)
	return err
}

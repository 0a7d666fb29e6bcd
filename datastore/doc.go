/*
Package datastore defines the storage interfaces the docmodel object layer talks to.

A Database is looked up by connection alias and hands out Collections.
A Collection exposes the document operations of a MongoDB-style driver:

	type Collection interface {
	    Find(ctx context.Context, filter any, params *storagemodels.FindParams) (Cursor, error)
	    FindOne(ctx context.Context, filter any, params *storagemodels.FindParams) (bson.M, error)
	    InsertOne(ctx context.Context, doc bson.M) (any, error)
	    UpdateOne(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error)
	    ReplaceOne(ctx context.Context, filter any, doc bson.M) (*storagemodels.UpdateResult, error)
	    DeleteMany(ctx context.Context, filter any) (int64, error)
	    ...
	}

Implementations:
  - mongodb: thin wrapper over go.mongodb.org/mongo-driver
  - ddb: single-table DynamoDB implementation, filters evaluated client-side
  - mock: in-memory implementation for tests and memory:// connections

Driver errors are returned unmodified. The only normalization is that FindOne
reports a miss as (nil, nil) instead of a sentinel error.
*/
package datastore

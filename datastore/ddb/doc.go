/*
Package ddb provides a DynamoDB implementation of the datastore interfaces.

All collections of a database share one table (single-table design):

	PK          collection name                 "ship"
	SK          encoded document id             "OID#64b7f0c2e13a5b0c9d1e2f30", "S#serenity", "N#42"
	Doc         canonical Extended JSON body    {"_id":{"$oid":"..."},"name":"Serenity"}
	Rev         revision for optimistic writes
	EntityType  discriminator value, when configured

Key Features:

Client-side queries:
DynamoDB has no document query language, so filters, sorts, skips, limits,
projections and aggregation pipelines are evaluated with docquery after the
partition has been paged in. Equality on _id is served by GetItem.

Optimistic writes:
Every update is a conditional PutItem on the revision it was read at. A lost
race surfaces as errors.ErrConditionFailed instead of silently overwriting.

Entity type index:
With WithEntityType the discriminator of polymorphic documents is copied into a
GSI partition ("<collection>#<type>") so lookups by type do not page the whole
collection:

	gsi, _ := ddb.GetGSIConfig("GSI1")
	db, err := ddb.Connect(ctx, "us-east-1", "docmodel",
	    ddb.WithEntityType("role", &gsi),
	    ddb.WithScanOptions(
	        storagemodels.WithPageSize(100),
	        storagemodels.WithMaxRetries(3),
	    ),
	)

Index creation is not supported and reports errors.ErrUnsupported.
*/
package ddb

/*
Package storagemodels defines the parameter and result types shared by every docmodel datastore.

Key Types:

FindParams:
Shaping options for a find, built with functional options:

	params := storagemodels.NewFindParams(
	    storagemodels.WithSort(bson.D{{Key: "up", Value: -1}, {Key: "mod", Value: 1}}),
	    storagemodels.WithSkip(20),
	    storagemodels.WithLimit(10),
	)

UpdateParams:
Selects between update_one and update_many for class-level updates:

	params := storagemodels.NewUpdateParams(storagemodels.WithMulti())

IndexSpec:
An index declaration; stores without secondary indexes report errors.ErrUnsupported:

	spec := storagemodels.IndexSpec{Keys: bson.D{{Key: "email", Value: 1}}, Unique: true}

ScanOptions:
Paging and retry behavior for stores that evaluate queries client-side:

	opts := []storagemodels.ScanOption{
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(progressFunc),
	}

These types provide a consistent interface across different storage implementations.
*/
package storagemodels

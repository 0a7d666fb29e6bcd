/*
Package mongodb adapts go.mongodb.org/mongo-driver to the datastore interfaces.

The wrapper is deliberately thin: filters, updates and pipelines are handed to
the driver unchanged and driver errors are returned unmodified. The only
translations are:

  - storagemodels.FindParams become *options.FindOptions
  - mongo.ErrNoDocuments from FindOne becomes (nil, nil)
  - a nil filter becomes an empty document

Usage:

	db, err := mongodb.Connect(ctx, "mongodb://localhost:27017/fleet")
	if err != nil {
	    return err
	}
	defer db.Close(ctx)

	ships := db.Collection("ship")
*/
package mongodb

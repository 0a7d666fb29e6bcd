// Package mock provides an in-memory implementation of the datastore interfaces.
//
// It backs memory:// connections and the package tests. Documents are stored
// after a bson round trip, so values come back with driver-native types
// (a Go int is read back as int32, embedded documents as bson.M), the same as
// from a real server.
//
//	db := mock.NewDatabase("test")
//	ships := db.Collection("ship")
//	id, _ := ships.InsertOne(ctx, bson.M{"name": "Serenity"})
//
// Error injection is available per collection for failure-path tests:
//
//	db.MockCollection("ship").WithInsertError(errors.New("disk full"))
package mock

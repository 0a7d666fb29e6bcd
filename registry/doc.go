/*
Package registry manages discriminator registration and index declarations for docmodel.

The registry system enables:
  - Polymorphic documents sharing one collection
  - Dynamic variant resolution based on a discriminator field
  - Index declarations that can be applied to any connected datastore

Variants:
Maps discriminator values to factories. Each PolyModel owns one:

	variants := registry.NewVariants[func() *Villain]("person variant")
	err := variants.Register("villain", newVillain)
	// registering "villain" again returns errors.ErrAlreadyExists

Index Registry:
Associates collection names with index specifications:

	registry.RegisterIndexes("user",
	    storagemodels.IndexSpec{Keys: bson.D{{Key: "email", Value: 1}}, Unique: true},
	)
	specs, ok := registry.GetIndexes("user")

Both registries are thread-safe and are usually populated during initialization,
when models are declared.
*/
package registry

/*
Package docmodel maps documents of a MongoDB-style store to Go values with
behavior, without imposing a schema.

A model binds a collection to an application type that embeds *Record:

	type Ship struct{ *docmodel.Record }

	func (s *Ship) Name(ctx context.Context) string {
	    v, _ := docmodel.GetAs[string](ctx, s.Record, "name")
	    return v
	}

	var Ships = docmodel.NewModel("Ship", func(r *docmodel.Record) *Ship { return &Ship{r} },
	    docmodel.WithFields(
	        docmodel.Typed[string]("name").Required(),
	        docmodel.Typed[int]("age").Default(10),
	    ))

	docmodel.Connect(ctx, docmodel.DefaultAlias, "mongodb://localhost:27017/fleet")
	ship, err := Ships.Create(ctx, bson.M{"name": "Serenity"})

Record.Get applies field transforms and resolves references; Record.Raw
returns the stored value untouched. Save overwrites the whole document,
Update writes only the named fields.

Polymorphic families share a collection and dispatch on a discriminator:

	People := docmodel.NewPolyModel[Person]("Person", "role", wrapPerson,
	    docmodel.WithFields(docmodel.Typed[string]("role").Default("person")))
	Villains := People.Extend("Villain", wrapVillain,
	    docmodel.WithFields(docmodel.Typed[string]("role").Default("villain")))
	People.MustRegister(Villains)

Cursors are lazy and accumulate sort keys with Order. Connections are kept per
alias in a Connections registry; Scoped and WithAlias redirect an alias for a
block of code or a context.

Stores live under datastore: mongodb (the official driver), ddb (one DynamoDB
table) and mock (in memory).
*/
package docmodel

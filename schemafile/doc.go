/*
Package schemafile declares docmodel models in YAML.

Models built from a file hold bare *docmodel.Record instances; they suit
tooling and services that handle documents generically. Every model is added
to a docmodel.Catalog, so references may name models declared later in the
file or in another file loaded into the same catalog.

	models:
	  - name: Company
	    fields:
	      - {name: name, type: string, required: true}
	  - name: Person
	    collection: people
	    discriminator: role
	    indexes:
	      - {keys: [name, -age], unique: true}
	    fields:
	      - {name: role, type: string, default: person}
	      - {name: email, type: string, format: email}
	      - {name: age, type: int, range: [0, 150]}
	      - {name: company, ref: Company}
	    variants:
	      - name: Villain
	        value: villain

Field types: string, int, int64, float, bool, time, objectid, list, document
and any (the default). A field with ref, enum or constant: true takes no type;
ref wins over enum, enum over constant.
*/
package schemafile

/*
Package docquery evaluates MongoDB filters, updates, sorts and pipelines
against in-memory documents.

It backs the datastores that have no server-side query language (the in-memory
mock and the DynamoDB single-table store). Matching, update operators,
projection and distinct come from lungo's mongokit, so they follow the server's
semantics, including key-ordered comparison of embedded documents. Documents
are held as ordered bson.D values (Doc); Convert and Map move between them and
the bson.M the datastore interfaces speak.

A DBRef used as a filter value ({"$ref": .., "$id": ..}) is matched on its
parts, so stores that lose key order still find it.

Pipelines support $match $sort $skip $limit $project $count.

Example:

	filter, _ := docquery.Convert(bson.M{"age": bson.M{"$gte": 10}})
	ok, err := docquery.Match(doc, filter)
*/
package docquery

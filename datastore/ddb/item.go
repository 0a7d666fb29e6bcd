/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// item is the stored shape of one document. The document body is kept as
// canonical Extended JSON so bson types survive the round trip.
type item struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Doc        string `dynamodbav:"Doc"`
	Rev        int64  `dynamodbav:"Rev"`
	EntityType string `dynamodbav:"EntityType,omitempty"`
	PK1        string `dynamodbav:"PK1,omitempty"`
	SK1        string `dynamodbav:"SK1,omitempty"`
}

// keyString renders a document id as a sort key, e.g. "OID#64b7f0c2e13a5b0c9d1e2f30".
// Integer ids of any width map to the same key.
func keyString(id any) (string, error) {
	switch v := id.(type) {
	case nil:
		return "", fmt.Errorf("document has no _id")
	case primitive.ObjectID:
		return "OID#" + v.Hex(), nil
	case string:
		return "S#" + v, nil
	case int:
		return "N#" + strconv.FormatInt(int64(v), 10), nil
	case int32:
		return "N#" + strconv.FormatInt(int64(v), 10), nil
	case int64:
		return "N#" + strconv.FormatInt(v, 10), nil
	}
	data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: id}}, true, false)
	if err != nil {
		return "", fmt.Errorf("unsupported _id type %T: %w", id, err)
	}
	return "X#" + string(data), nil
}

func encodeItem(collection string, doc bson.M, rev int64, typeKey string, gsi *GSIConfig) (map[string]types.AttributeValue, error) {
	sk, err := keyString(doc["_id"])
	if err != nil {
		return nil, err
	}
	body, err := bson.MarshalExtJSON(doc, true, false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	it := item{PK: collection, SK: sk, Doc: string(body), Rev: rev}
	if typeKey != "" {
		if et, ok := doc[typeKey].(string); ok {
			it.EntityType = et
			if gsi != nil {
				it.PK1 = typePartition(collection, et)
				it.SK1 = sk
			}
		}
	}

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	if gsi != nil && it.PK1 != "" && gsi.PartitionKeyName != "PK1" {
		av[gsi.PartitionKeyName] = av["PK1"]
		av[gsi.SortKeyName] = av["SK1"]
		delete(av, "PK1")
		delete(av, "SK1")
	}
	return av, nil
}

func decodeItem(av map[string]types.AttributeValue) (bson.M, int64, error) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	// decoded as bson.D so embedded documents keep their key order
	var ordered bson.D
	if err := bson.UnmarshalExtJSON([]byte(it.Doc), true, &ordered); err != nil {
		return nil, 0, fmt.Errorf("failed to decode document %s/%s: %w", it.PK, it.SK, err)
	}
	doc := make(bson.M, len(ordered))
	for _, e := range ordered {
		doc[e.Key] = e.Value
	}
	return doc, it.Rev, nil
}

func itemKey(collection, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: collection},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

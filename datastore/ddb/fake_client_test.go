/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is an in-memory table understanding the expressions the store emits
type fakeClient struct {
	mu          sync.Mutex
	items       map[string]map[string]types.AttributeValue
	queryCalls  int
	indexCalls  int
	failQueries int
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func attrS(av map[string]types.AttributeValue, name string) string {
	if s, ok := av[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeClient) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &sdk.GetItemOutput{Item: f.items[attrS(in.Key, "PK")+"|"+attrS(in.Key, "SK")]}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attrS(in.Item, "PK") + "|" + attrS(in.Item, "SK")
	existing, exists := f.items[key]
	switch aws.ToString(in.ConditionExpression) {
	case "attribute_not_exists(PK)":
		if exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	case "Rev = :rev":
		want := in.ExpressionAttributeValues[":rev"].(*types.AttributeValueMemberN).Value
		got, _ := existing["Rev"].(*types.AttributeValueMemberN)
		if !exists || got == nil || got.Value != want {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("rev")}
		}
	}
	f.items[key] = in.Item
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, attrS(in.Key, "PK")+"|"+attrS(in.Key, "SK"))
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(ctx context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.failQueries > 0 {
		f.failQueries--
		return nil, &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
	}

	pkName := "PK"
	if in.IndexName != nil {
		f.indexCalls++
		pkName = in.ExpressionAttributeNames["#tpk"]
	}
	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value

	var keys []string
	for k, it := range f.items {
		if attrS(it, pkName) == pk {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := attrS(in.ExclusiveStartKey, "PK") + "|" + attrS(in.ExclusiveStartKey, "SK")
		for start < len(keys) && keys[start] <= after {
			start++
		}
	}
	end := len(keys)
	if in.Limit != nil && start+int(*in.Limit) < end {
		end = start + int(*in.Limit)
	}

	out := &sdk.QueryOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(keys) {
		last := f.items[keys[end-1]]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeClient) DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName, ItemCount: aws.Int64(int64(len(f.items)))}}, nil
}

func (f *fakeClient) rev(pk, sk string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := f.items[pk+"|"+sk]["Rev"].(*types.AttributeValueMemberN)
	if n == nil {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

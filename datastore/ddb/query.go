/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docmodel/datastore/docquery"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
)

// storedDoc is a decoded document plus the revision it was read at.
// ordered is filled in by match.
type storedDoc struct {
	doc     bson.M
	ordered docquery.Doc
	rev     int64
}

// loadPartition reads every document of a collection, or of one entity type
// when entityType is set and a type index is configured.
func (c *Collection) loadPartition(ctx context.Context, entityType string) ([]storedDoc, error) {
	s := c.store
	keyCond := "PK = :pk"
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: c.name},
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    &keyCond,
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(s.scan.PageSize),
	}
	if entityType != "" && s.typeIndex != nil {
		keyCond = "#tpk = :pk"
		values[":pk"] = &types.AttributeValueMemberS{Value: typePartition(c.name, entityType)}
		input.IndexName = aws.String(s.typeIndex.IndexName)
		input.ExpressionAttributeNames = map[string]string{"#tpk": s.typeIndex.PartitionKeyName}
	} else {
		input.ConsistentRead = aws.Bool(true)
	}

	progress := storagemodels.ScanProgress{StartTime: time.Now()}
	var docs []storedDoc
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, retries, err := s.queryWithRetry(ctx, input)
		progress.Retries += retries
		if err != nil {
			return nil, err
		}
		progress.PagesRead++

		for _, av := range out.Items {
			doc, rev, err := decodeItem(av)
			if err != nil {
				return nil, err
			}
			docs = append(docs, storedDoc{doc: doc, rev: rev})
			progress.ItemsRead++
		}

		if s.scan.ProgressHandler != nil {
			s.scan.ProgressHandler(progress)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	s.logger.Debugw("Loaded partition",
		"collection", c.name,
		"entityType", entityType,
		"items", progress.ItemsRead,
		"pages", progress.PagesRead)
	return docs, nil
}

// queryWithRetry executes a query with configurable retry logic
func (s *Database) queryWithRetry(ctx context.Context, input *dynamodb.QueryInput) (*dynamodb.QueryOutput, int, error) {
	var lastErr error

	for attempt := 0; attempt <= s.scan.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		default:
		}

		out, err := s.client.Query(ctx, input)
		if err == nil {
			return out, attempt, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, attempt, err
		}

		// Don't sleep after last attempt
		if attempt < s.scan.MaxRetries {
			backoff := time.Duration(attempt+1) * s.scan.RetryBackoff
			s.logger.Warnw("Retrying query", "attempt", attempt+1, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, s.scan.MaxRetries, fmt.Errorf("query failed after %d retries: %w", s.scan.MaxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	switch err.(type) {
	case *types.ProvisionedThroughputExceededException:
		return true
	case *types.RequestLimitExceeded:
		return true
	case *types.InternalServerError:
		return true
	}

	// Check for AWS SDK retryable errors
	if awsErr, ok := err.(interface{ IsRetryable() bool }); ok {
		return awsErr.IsRetryable()
	}

	return false
}

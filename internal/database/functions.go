package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrItemNotFound is returned by GetItem when the key has no item and by the
// conditional writes when their existence condition fails.
var ErrItemNotFound = errors.New("item not found")

// ErrItemExists is returned by PutItemIfAbsent when the key is already taken.
var ErrItemExists = errors.New("item already exists")

const (
	batchGetLimit       = 100
	maxBatchGetAttempts = 5
)

// batchGetBackoff is the wait before the first retry of unprocessed keys. It
// doubles on every further attempt.
var batchGetBackoff = 50 * time.Millisecond

func attrString(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

// StringKey builds a single-attribute string key.
func StringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: attrString(value)}
}

func (c *DynamoDBClient) PutItem(
	ctx context.Context,
	tableName string,
	item interface{},
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

// PutItemIfAbsent writes item only when no item with the same hash key exists.
func (c *DynamoDBClient) PutItemIfAbsent(
	ctx context.Context,
	tableName string,
	hashKey string,
	item interface{},
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(tableName),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": hashKey},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("put item %s: %w", tableName, ErrItemExists)
		}
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

func (c *DynamoDBClient) GetItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	out interface{},
) error {
	res, err := c.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return fmt.Errorf("get item %s: %w", tableName, ErrItemNotFound)
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

// UpdateExistingItem applies updateExpr to an item that must already exist and
// unmarshals the new image into out when out is non-nil.
func (c *DynamoDBClient) UpdateExistingItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	updateExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	out interface{},
) error {
	hashKey := ""
	for name := range key {
		hashKey = name
		break
	}

	names := map[string]string{"#pk": hashKey}
	for k, v := range exprAttrNames {
		names[k] = v
	}

	res, err := c.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(tableName),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeValues: exprAttrValues,
		ExpressionAttributeNames:  names,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("update item %s: %w", tableName, ErrItemNotFound)
		}
		return fmt.Errorf("update item %s: %w", tableName, err)
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
			return fmt.Errorf("unmarshal updated item: %w", err)
		}
	}
	return nil
}

// PutItemWithParentUpdate writes item and applies updateExpr to the parent row
// in one transaction. When the parent does not exist neither write happens and
// the error wraps ErrItemNotFound.
func (c *DynamoDBClient) PutItemWithParentUpdate(
	ctx context.Context,
	tableName string,
	item interface{},
	parentTable string,
	parentKey map[string]types.AttributeValue,
	updateExpr string,
	exprAttrValues map[string]types.AttributeValue,
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	hashKey := ""
	for name := range parentKey {
		hashKey = name
		break
	}

	_, err = c.svc.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(tableName),
				Item:      av,
			}},
			{Update: &types.Update{
				TableName:                 aws.String(parentTable),
				Key:                       parentKey,
				UpdateExpression:          aws.String(updateExpr),
				ConditionExpression:       aws.String("attribute_exists(#pk)"),
				ExpressionAttributeNames:  map[string]string{"#pk": hashKey},
				ExpressionAttributeValues: exprAttrValues,
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return fmt.Errorf("put item %s: parent %s: %w", tableName, parentTable, ErrItemNotFound)
				}
			}
		}
		return fmt.Errorf("put item %s with parent %s: %w", tableName, parentTable, err)
	}
	return nil
}

func (c *DynamoDBClient) DeleteItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
) error {
	_, err := c.svc.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", tableName, err)
	}
	return nil
}

// QueryIndex queries a single page of an index. limit <= 0 leaves the page
// size to DynamoDB.
func (c *DynamoDBClient) QueryIndex(
	ctx context.Context,
	tableName string,
	indexName string,
	keyCondExpr string,
	exprAttrValues map[string]types.AttributeValue,
	scanIndexForward bool,
	limit int,
) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(tableName),
		IndexName:                 aws.String(indexName),
		KeyConditionExpression:    aws.String(keyCondExpr),
		ExpressionAttributeValues: exprAttrValues,
		ScanIndexForward:          aws.Bool(scanIndexForward),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	out, err := c.svc.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query %s[%s]: %w", tableName, indexName, err)
	}

	return out.Items, nil
}

// QueryAll performs a complete query, handling pagination internally.
func (c *DynamoDBClient) QueryAll(
	ctx context.Context,
	tableName string,
	indexName string,
	keyCondExpr string,
	exprAttrValues map[string]types.AttributeValue,
	scanIndexForward bool,
) ([]map[string]types.AttributeValue, error) {
	var allItems []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(tableName),
			KeyConditionExpression:    aws.String(keyCondExpr),
			ExpressionAttributeValues: exprAttrValues,
			ScanIndexForward:          aws.Bool(scanIndexForward),
		}
		if indexName != "" {
			input.IndexName = aws.String(indexName)
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := c.svc.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query all %s[%s]: %w", tableName, indexName, err)
		}

		allItems = append(allItems, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return allItems, nil
}

// ScanAll performs a complete scan of the table, handling pagination internally.
func (c *DynamoDBClient) ScanAll(
	ctx context.Context,
	tableName string,
) ([]map[string]types.AttributeValue, error) {
	var allItems []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(tableName),
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := c.svc.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan all %s: %w", tableName, err)
		}

		allItems = append(allItems, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return allItems, nil
}

// BatchGetByKeys fetches items by a single string hash key, chunked to the
// BatchGetItem limit. Keys the service reports as unprocessed are requested
// again within the same call, with backoff, up to maxBatchGetAttempts times.
func (c *DynamoDBClient) BatchGetByKeys(
	ctx context.Context,
	tableName string,
	keyField string,
	keyValues []string,
) ([]map[string]types.AttributeValue, error) {
	if len(keyValues) == 0 {
		return []map[string]types.AttributeValue{}, nil
	}

	var allItems []map[string]types.AttributeValue
	for i := 0; i < len(keyValues); i += batchGetLimit {
		end := i + batchGetLimit
		if end > len(keyValues) {
			end = len(keyValues)
		}

		items, err := c.batchGetChunk(ctx, tableName, keyField, keyValues[i:end])
		if err != nil {
			return nil, err
		}
		allItems = append(allItems, items...)
	}

	return allItems, nil
}

func (c *DynamoDBClient) batchGetChunk(
	ctx context.Context,
	tableName string,
	keyField string,
	keyValues []string,
) ([]map[string]types.AttributeValue, error) {
	keys := make([]map[string]types.AttributeValue, len(keyValues))
	for i, value := range keyValues {
		keys[i] = StringKey(keyField, value)
	}

	request := map[string]types.KeysAndAttributes{
		tableName: {Keys: keys},
	}

	var items []map[string]types.AttributeValue
	delay := batchGetBackoff
	for attempt := 1; ; attempt++ {
		res, err := c.svc.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return nil, fmt.Errorf("batch get %s: %w", tableName, err)
		}
		items = append(items, res.Responses[tableName]...)
		request = res.UnprocessedKeys
		if len(request) == 0 {
			return items, nil
		}
		if attempt == maxBatchGetAttempts {
			return nil, fmt.Errorf("batch get %s: %d keys still unprocessed after %d attempts",
				tableName, len(request[tableName].Keys), attempt)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("batch get %s: %w", tableName, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
}

// IsNotFound reports whether err came from a missing item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) || (err != nil && strings.Contains(err.Error(), "item not found"))
}

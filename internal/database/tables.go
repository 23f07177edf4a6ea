package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"garment-portal-backend/internal/model"
)

// EnsureTables creates every table in defs that does not exist yet and
// returns the names it created.
func (c *DynamoDBClient) EnsureTables(ctx context.Context, defs []model.TableDefinition) ([]string, error) {
	created := make([]string, 0, len(defs))
	for _, def := range defs {
		ok, err := c.createTable(ctx, def)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, def.Name)
		}
	}
	return created, nil
}

func (c *DynamoDBClient) createTable(ctx context.Context, def model.TableDefinition) (bool, error) {
	_, err := c.svc.CreateTable(ctx, CreateTableInput(def))
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("create table %s: %w", def.Name, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(c.svc)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(def.Name)}, tableWaitTimeout); err != nil {
		return true, fmt.Errorf("wait for table %s: %w", def.Name, err)
	}
	return true, nil
}

// CreateTableInput translates a table definition into an on-demand
// CreateTable request with all-attribute projections on each index.
func CreateTableInput(def model.TableDefinition) *dynamodb.CreateTableInput {
	attrs := map[string]struct{}{}
	var attrDefs []types.AttributeDefinition
	addAttr := func(name string) {
		if name == "" {
			return
		}
		if _, seen := attrs[name]; seen {
			return
		}
		attrs[name] = struct{}{}
		attrDefs = append(attrDefs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	addAttr(def.Key.Hash)
	addAttr(def.Key.Range)

	input := &dynamodb.CreateTableInput{
		TableName:   aws.String(def.Name),
		KeySchema:   keySchema(def.Key),
		BillingMode: types.BillingModePayPerRequest,
	}

	for _, idx := range def.Indexes {
		addAttr(idx.Key.Hash)
		addAttr(idx.Key.Range)
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchema(idx.Key),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	input.AttributeDefinitions = attrDefs
	return input
}

func keySchema(key model.KeySchema) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{
		{AttributeName: aws.String(key.Hash), KeyType: types.KeyTypeHash},
	}
	if key.Range != "" {
		schema = append(schema, types.KeySchemaElement{AttributeName: aws.String(key.Range), KeyType: types.KeyTypeRange})
	}
	return schema
}

const tableWaitTimeout = 2 * time.Minute

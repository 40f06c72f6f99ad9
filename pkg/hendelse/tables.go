package hendelse

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableNames are the DynamoDB tables used by EventStoreOnDynamoDB.
type TableNames struct {
	Journal string
	Head    string
	Audit   string
	Index   string
}

func provisionedThroughput() *types.ProvisionedThroughput {
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(10),
		WriteCapacityUnits: aws.Int64(5),
	}
}

// CreateJournalTable creates the journal table keyed by shard (pkey) and aggregate + version (skey).
func CreateJournalTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("pkey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("skey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("pkey"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("skey"),
				KeyType:       types.KeyTypeRange,
			},
		},
		ProvisionedThroughput: provisionedThroughput(),
	})
	return err
}

// CreateHeadTable creates the table holding one head item per aggregate.
func CreateHeadTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("aid"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("aid"),
				KeyType:       types.KeyTypeHash,
			},
		},
		ProvisionedThroughput: provisionedThroughput(),
	})
	return err
}

// CreateAuditTable creates the audit table keyed by aggregate and event id.
func CreateAuditTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("aid"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("skey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("aid"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("skey"),
				KeyType:       types.KeyTypeRange,
			},
		},
		ProvisionedThroughput: provisionedThroughput(),
	})
	return err
}

// CreateIndexTable creates the table filing aggregates under index entries (ikey = name#value).
func CreateIndexTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("ikey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("aid"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("ikey"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("aid"),
				KeyType:       types.KeyTypeRange,
			},
		},
		ProvisionedThroughput: provisionedThroughput(),
	})
	return err
}

// CreateTables creates all tables and waits until they are active. Tables that already exist are left alone.
func CreateTables(ctx context.Context, client *dynamodb.Client, names TableNames, maxWait time.Duration) error {
	creators := []struct {
		name   string
		create func(context.Context, *dynamodb.Client, string) error
	}{
		{names.Journal, CreateJournalTable},
		{names.Head, CreateHeadTable},
		{names.Audit, CreateAuditTable},
		{names.Index, CreateIndexTable},
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	for _, c := range creators {
		if err := c.create(ctx, client, c.name); err != nil {
			var inUse *types.ResourceInUseException
			if !errors.As(err, &inUse) {
				return NewIOError("Failed to create table "+c.name, err)
			}
		}
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.name)}, maxWait); err != nil {
			return NewIOError("Table "+c.name+" did not become active", err)
		}
	}
	return nil
}

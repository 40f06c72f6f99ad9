package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/j5ik2o/tilbakekreving-go/pkg/config"
	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

const localstackImage = "localstack/localstack:3.8"

var converter = hendelse.CombineConverters(kravgrunnlag.Converter, tilbakekreving.Converter)

// startDynamoDB runs localstack and returns the client config pointing at it.
func startDynamoDB(t *testing.T) config.DynamoDBConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping localstack test in short mode")
	}
	ctx := context.Background()

	container, err := localstack.Run(ctx, localstackImage,
		testcontainers.WithEnv(map[string]string{
			"SERVICES":              "dynamodb",
			"DEFAULT_REGION":        "us-east-1",
			"EAGER_SERVICE_LOADING": "1",
			"DYNAMODB_SHARED_DB":    "1",
			"DYNAMODB_IN_MEMORY":    "1",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("4566/tcp"))
	require.NoError(t, err)

	cfg := config.Default().Store.DynamoDB
	cfg.Region = "us-east-1"
	cfg.Endpoint = fmt.Sprintf("http://%s:%d", host, port.Int())
	cfg.AccessKeyID = "dummy"
	cfg.SecretAccessKey = "dummy"
	cfg.ShardCount = 4
	return cfg
}

// newDynamoDBStore creates the tables and opens a store on them.
func newDynamoDBStore(t *testing.T, cfg config.DynamoDBConfig) (*dynamodb.Client, hendelse.EventStore) {
	t.Helper()
	ctx := context.Background()
	client, err := config.NewDynamoDBClient(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, hendelse.CreateTables(ctx, client, cfg.TableNames(), time.Minute))

	es, err := hendelse.NewEventStoreOnDynamoDB(client, cfg.JournalTable, cfg.HeadTable, cfg.AuditTable, cfg.IndexTable, cfg.ShardCount, converter)
	require.NoError(t, err)
	return client, es
}

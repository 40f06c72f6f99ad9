package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
)

// NewDynamoDBClient builds a client for cfg. A non-empty Endpoint points it at a local emulator.
func NewDynamoDBClient(ctx context.Context, cfg DynamoDBConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// TableNames returns the DynamoDB tables named by cfg.
func (cfg DynamoDBConfig) TableNames() hendelse.TableNames {
	return hendelse.TableNames{Journal: cfg.JournalTable, Head: cfg.HeadTable, Audit: cfg.AuditTable, Index: cfg.IndexTable}
}

// File returns the journal file described by cfg.
func (cfg SqliteConfig) File() hendelse.SqliteFile {
	return hendelse.SqliteFile{Path: cfg.Path, BusyTimeout: cfg.BusyTimeout, MaxConns: cfg.MaxOpenConns}
}

// OpenEventStore opens the store selected by cfg.Backend. The returned close function releases it.
func OpenEventStore(ctx context.Context, cfg StoreConfig, converter hendelse.EventConverter) (hendelse.EventStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case BackendMemory:
		return hendelse.NewEventStoreOnMemory(), noop, nil
	case BackendSqlite:
		es, err := hendelse.OpenEventStoreOnSqlite(cfg.Sqlite.File(), converter)
		if err != nil {
			return nil, nil, err
		}
		return es, es.Close, nil
	case BackendDynamoDB:
		client, err := NewDynamoDBClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, nil, err
		}
		es, err := hendelse.NewEventStoreOnDynamoDB(client,
			cfg.DynamoDB.JournalTable, cfg.DynamoDB.HeadTable, cfg.DynamoDB.AuditTable, cfg.DynamoDB.IndexTable,
			cfg.DynamoDB.ShardCount, converter)
		if err != nil {
			return nil, nil, err
		}
		return es, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

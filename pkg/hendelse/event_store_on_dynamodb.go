package hendelse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EventStoreOnDynamoDB is EventStore for DynamoDB.
//
// The head table holds one item per aggregate with its latest version and event id.
// Every write puts the journal items, compares-and-swaps the head and puts the audit
// items in one TransactWriteItems call.
//
// The side effect of a write runs after the head has been read and before the
// transaction is sent. When two processes race on the same aggregate both may run
// their side effect; only one transaction commits.
type EventStoreOnDynamoDB struct {
	client           *dynamodb.Client
	journalTableName string
	headTableName    string
	auditTableName   string
	indexTableName   string
	shardCount       uint64
	eventConverter   EventConverter
	keyResolver      KeyResolver
	eventSerializer  EventSerializer
}

// EventStoreOption is an option for EventStoreOnDynamoDB.
type EventStoreOption func(*EventStoreOnDynamoDB) error

// WithKeyResolver sets a key resolver.
//
// - If you want to change the key resolver, specify a KeyResolver.
// - The default is DefaultKeyResolver.
//
// Returns an EventStoreOption.
func WithKeyResolver(keyResolver KeyResolver) EventStoreOption {
	return func(es *EventStoreOnDynamoDB) error {
		es.keyResolver = keyResolver
		return nil
	}
}

// WithEventSerializer sets an event serializer.
//
// - If you want to change the event serializer, specify an EventSerializer.
// - The default is DefaultEventSerializer.
//
// Returns an EventStoreOption.
func WithEventSerializer(eventSerializer EventSerializer) EventStoreOption {
	return func(es *EventStoreOnDynamoDB) error {
		es.eventSerializer = eventSerializer
		return nil
	}
}

// NewEventStoreOnDynamoDB returns a new EventStoreOnDynamoDB.
func NewEventStoreOnDynamoDB(
	client *dynamodb.Client,
	journalTableName string,
	headTableName string,
	auditTableName string,
	indexTableName string,
	shardCount uint64,
	eventConverter EventConverter,
	options ...EventStoreOption,
) (*EventStoreOnDynamoDB, error) {
	if client == nil {
		return nil, errors.New("client is nil")
	}
	if journalTableName == "" {
		return nil, errors.New("journalTableName is empty")
	}
	if headTableName == "" {
		return nil, errors.New("headTableName is empty")
	}
	if auditTableName == "" {
		return nil, errors.New("auditTableName is empty")
	}
	if indexTableName == "" {
		return nil, errors.New("indexTableName is empty")
	}
	if shardCount == 0 {
		return nil, errors.New("shardCount is zero")
	}
	if eventConverter == nil {
		return nil, errors.New("eventConverter is nil")
	}
	es := &EventStoreOnDynamoDB{
		client:           client,
		journalTableName: journalTableName,
		headTableName:    headTableName,
		auditTableName:   auditTableName,
		indexTableName:   indexTableName,
		shardCount:       shardCount,
		eventConverter:   eventConverter,
		keyResolver:      &DefaultKeyResolver{},
		eventSerializer:  &DefaultEventSerializer{},
	}
	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}
	return es, nil
}

// putJournal returns a Put for one journal item.
func (es *EventStoreOnDynamoDB) putJournal(event Event) (*types.Put, error) {
	aggregateId := event.GetAggregateId()
	pkey := es.keyResolver.ResolvePkey(aggregateId, es.shardCount)
	skey := es.keyResolver.ResolveSkey(aggregateId, event.GetSeqNr())
	payload, err := es.eventSerializer.Serialize(event)
	if err != nil {
		return nil, err
	}
	input := types.Put{
		TableName: aws.String(es.journalTableName),
		Item: map[string]types.AttributeValue{
			"pkey":        &types.AttributeValueMemberS{Value: pkey},
			"skey":        &types.AttributeValueMemberS{Value: skey},
			"aid":         &types.AttributeValueMemberS{Value: aggregateId.AsString()},
			"seq_nr":      &types.AttributeValueMemberN{Value: strconv.FormatUint(event.GetSeqNr(), 10)},
			"event_id":    &types.AttributeValueMemberS{Value: event.GetId()},
			"event_type":  &types.AttributeValueMemberS{Value: event.GetTypeName()},
			"payload":     &types.AttributeValueMemberB{Value: payload},
			"occurred_at": &types.AttributeValueMemberS{Value: event.GetOccurredAt().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(pkey) AND attribute_not_exists(skey)"),
	}
	return &input, nil
}

// putHead returns the Put creating the head item of a new aggregate.
func (es *EventStoreOnDynamoDB) putHead(aggregateId AggregateId, version uint64, lastId string) *types.Put {
	return &types.Put{
		TableName: aws.String(es.headTableName),
		Item: map[string]types.AttributeValue{
			"aid":       &types.AttributeValueMemberS{Value: aggregateId.AsString()},
			"type_name": &types.AttributeValueMemberS{Value: aggregateId.GetTypeName()},
			"agg_value": &types.AttributeValueMemberS{Value: aggregateId.GetValue()},
			"version":   &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
			"last_id":   &types.AttributeValueMemberS{Value: lastId},
		},
		ConditionExpression: aws.String("attribute_not_exists(aid)"),
	}
}

// updateHead returns the Update moving the head from beforeVersion to afterVersion.
func (es *EventStoreOnDynamoDB) updateHead(aggregateId AggregateId, beforeVersion uint64, beforeId string, afterVersion uint64, afterId string) *types.Update {
	return &types.Update{
		TableName: aws.String(es.headTableName),
		Key: map[string]types.AttributeValue{
			"aid": &types.AttributeValueMemberS{Value: aggregateId.AsString()},
		},
		UpdateExpression: aws.String("SET #version=:after_version, #last_id=:after_id"),
		ExpressionAttributeNames: map[string]string{
			"#version": "version",
			"#last_id": "last_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":before_version": &types.AttributeValueMemberN{Value: strconv.FormatUint(beforeVersion, 10)},
			":after_version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(afterVersion, 10)},
			":before_id":      &types.AttributeValueMemberS{Value: beforeId},
			":after_id":       &types.AttributeValueMemberS{Value: afterId},
		},
		ConditionExpression: aws.String("#version=:before_version AND #last_id=:before_id"),
	}
}

func indexKey(name, value string) string {
	return name + "#" + value
}

// putIndex returns the Put filing aggregateId under entry. It overwrites an earlier filing.
func (es *EventStoreOnDynamoDB) putIndex(aggregateId AggregateId, entry indexEntry) *types.Put {
	return &types.Put{
		TableName: aws.String(es.indexTableName),
		Item: map[string]types.AttributeValue{
			"ikey":      &types.AttributeValueMemberS{Value: indexKey(entry.name, entry.value)},
			"aid":       &types.AttributeValueMemberS{Value: aggregateId.AsString()},
			"type_name": &types.AttributeValueMemberS{Value: aggregateId.GetTypeName()},
			"agg_value": &types.AttributeValueMemberS{Value: aggregateId.GetValue()},
		},
	}
}

// checkHeadVersion returns a ConditionCheck requiring the head of aggregateId to be at version.
func (es *EventStoreOnDynamoDB) checkHeadVersion(aggregateId AggregateId, version uint64) *types.ConditionCheck {
	check := &types.ConditionCheck{
		TableName: aws.String(es.headTableName),
		Key: map[string]types.AttributeValue{
			"aid": &types.AttributeValueMemberS{Value: aggregateId.AsString()},
		},
	}
	if version == 0 {
		check.ConditionExpression = aws.String("attribute_not_exists(aid)")
		return check
	}
	check.ConditionExpression = aws.String("#version=:version")
	check.ExpressionAttributeNames = map[string]string{"#version": "version"}
	check.ExpressionAttributeValues = map[string]types.AttributeValue{
		":version": &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
	}
	return check
}

// putAudit returns a Put for one audit item.
func (es *EventStoreOnDynamoDB) putAudit(aggregateId AggregateId, index int, record AuditRecord) (*types.Put, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, NewSerializationError("Failed to serialize the audit record", err)
	}
	return &types.Put{
		TableName: aws.String(es.auditTableName),
		Item: map[string]types.AttributeValue{
			"aid":     &types.AttributeValueMemberS{Value: aggregateId.AsString()},
			"skey":    &types.AttributeValueMemberS{Value: fmt.Sprintf("%s-%03d", record.EventId, index)},
			"action":  &types.AttributeValueMemberS{Value: record.Action},
			"actor":   &types.AttributeValueMemberS{Value: record.Actor},
			"payload": &types.AttributeValueMemberB{Value: payload},
		},
		ConditionExpression: aws.String("attribute_not_exists(aid) AND attribute_not_exists(skey)"),
	}, nil
}

func (es *EventStoreOnDynamoDB) head(ctx context.Context, aggregateId AggregateId) (uint64, string, error) {
	result, err := es.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(es.headTableName),
		Key: map[string]types.AttributeValue{
			"aid": &types.AttributeValueMemberS{Value: aggregateId.AsString()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, "", NewIOError("Failed to get the head item", err)
	}
	if result.Item == nil {
		return 0, "", nil
	}
	versionAttr, ok := result.Item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", NewDeserializationError("The head item has no version", nil)
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", NewDeserializationError("Failed to parse the version", err)
	}
	lastId := ""
	if attr, ok := result.Item["last_id"].(*types.AttributeValueMemberS); ok {
		lastId = attr.Value
	}
	return version, lastId, nil
}

func (es *EventStoreOnDynamoDB) GetLatestVersion(ctx context.Context, aggregateId AggregateId) (uint64, error) {
	version, _, err := es.head(ctx, aggregateId)
	return version, err
}

// GetEventsByIdSinceSeqNr queries the journal shard of aggregateId page by page with strongly consistent reads.
func (es *EventStoreOnDynamoDB) GetEventsByIdSinceSeqNr(ctx context.Context, aggregateId AggregateId, seqNr uint64) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		request := &dynamodb.QueryInput{
			TableName:              aws.String(es.journalTableName),
			KeyConditionExpression: aws.String("#pkey = :pkey AND #skey BETWEEN :from AND :to"),
			ExpressionAttributeNames: map[string]string{
				"#pkey": "pkey",
				"#skey": "skey",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pkey": &types.AttributeValueMemberS{Value: es.keyResolver.ResolvePkey(aggregateId, es.shardCount)},
				":from": &types.AttributeValueMemberS{Value: es.keyResolver.ResolveSkey(aggregateId, max(seqNr, 1))},
				":to":   &types.AttributeValueMemberS{Value: es.keyResolver.ResolveSkey(aggregateId, math.MaxUint64)},
			},
			ConsistentRead: aws.Bool(true),
		}
		paginator := dynamodb.NewQueryPaginator(es.client, request)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(nil, NewIOError("Failed to GetEventsByIdSinceSeqNr query", err))
				return
			}
			for _, item := range page.Items {
				event, err := es.convertItem(item)
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(event, nil) {
					return
				}
			}
		}
	}
}

func (es *EventStoreOnDynamoDB) convertItem(item map[string]types.AttributeValue) (Event, error) {
	typeName, ok := item["event_type"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, NewDeserializationError("The journal item has no event type", nil)
	}
	payload, ok := item["payload"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, NewDeserializationError("The journal item has no payload", nil)
	}
	return es.eventConverter(typeName.Value, payload.Value)
}

// GetAggregateIds scans the head table, which holds exactly one item per aggregate.
func (es *EventStoreOnDynamoDB) GetAggregateIds(ctx context.Context, typeName string) ([]string, error) {
	request := &dynamodb.ScanInput{
		TableName:        aws.String(es.headTableName),
		FilterExpression: aws.String("#type_name = :type_name"),
		ExpressionAttributeNames: map[string]string{
			"#type_name": "type_name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type_name": &types.AttributeValueMemberS{Value: typeName},
		},
		ConsistentRead: aws.Bool(true),
	}
	result := make([]string, 0)
	paginator := dynamodb.NewScanPaginator(es.client, request)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, NewIOError("Failed to GetAggregateIds scan", err)
		}
		for _, item := range page.Items {
			if value, ok := item["agg_value"].(*types.AttributeValueMemberS); ok {
				result = append(result, value.Value)
			}
		}
	}
	sort.Strings(result)
	return result, nil
}

func (es *EventStoreOnDynamoDB) GetAggregateIdsByIndex(ctx context.Context, typeName, name, value string) ([]string, error) {
	request := &dynamodb.QueryInput{
		TableName:              aws.String(es.indexTableName),
		KeyConditionExpression: aws.String("#ikey = :ikey"),
		FilterExpression:       aws.String("#type_name = :type_name"),
		ExpressionAttributeNames: map[string]string{
			"#ikey":      "ikey",
			"#type_name": "type_name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ikey":      &types.AttributeValueMemberS{Value: indexKey(name, value)},
			":type_name": &types.AttributeValueMemberS{Value: typeName},
		},
		ConsistentRead: aws.Bool(true),
	}
	result := make([]string, 0)
	paginator := dynamodb.NewQueryPaginator(es.client, request)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, NewIOError("Failed to GetAggregateIdsByIndex query", err)
		}
		for _, item := range page.Items {
			if v, ok := item["agg_value"].(*types.AttributeValueMemberS); ok {
				result = append(result, v.Value)
			}
		}
	}
	sort.Strings(result)
	return result, nil
}

func (es *EventStoreOnDynamoDB) GetAuditRecords(ctx context.Context, aggregateId AggregateId) ([]AuditRecord, error) {
	request := &dynamodb.QueryInput{
		TableName:              aws.String(es.auditTableName),
		KeyConditionExpression: aws.String("#aid = :aid"),
		ExpressionAttributeNames: map[string]string{
			"#aid": "aid",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateId.AsString()},
		},
		ConsistentRead: aws.Bool(true),
	}
	result := make([]AuditRecord, 0)
	paginator := dynamodb.NewQueryPaginator(es.client, request)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, NewIOError("Failed to GetAuditRecords query", err)
		}
		for _, item := range page.Items {
			payload, ok := item["payload"].(*types.AttributeValueMemberB)
			if !ok {
				return nil, NewDeserializationError("The audit item has no payload", nil)
			}
			var record AuditRecord
			if err := json.Unmarshal(payload.Value, &record); err != nil {
				return nil, NewDeserializationError("Failed to deserialize the audit record", err)
			}
			result = append(result, record)
		}
	}
	return result, nil
}

func (es *EventStoreOnDynamoDB) PersistEvents(ctx context.Context, events []Event, expectedVersion uint64, options ...PersistOption) error {
	if err := validateEvents(events, expectedVersion); err != nil {
		return err
	}
	opts := newPersistOptions(options)
	aggregateId := events[0].GetAggregateId()
	if err := opts.validateDependencies(aggregateId); err != nil {
		return err
	}

	latest, lastId, err := es.head(ctx, aggregateId)
	if err != nil {
		return err
	}
	if err := checkHead(events, expectedVersion, latest, lastId); err != nil {
		return err
	}
	if err := opts.checkDependencies(func(id AggregateId) (uint64, error) {
		return es.GetLatestVersion(ctx, id)
	}); err != nil {
		return err
	}
	events, err = opts.runSideEffect(ctx, events, expectedVersion)
	if err != nil {
		return err
	}

	transactItems := make([]types.TransactWriteItem, 0, len(events)+len(opts.auditRecords)+len(opts.indexes)+len(opts.dependencies)+1)
	last := events[len(events)-1]
	if expectedVersion == 0 {
		transactItems = append(transactItems, types.TransactWriteItem{Put: es.putHead(aggregateId, last.GetSeqNr(), last.GetId())})
	} else {
		transactItems = append(transactItems, types.TransactWriteItem{Update: es.updateHead(aggregateId, expectedVersion, lastId, last.GetSeqNr(), last.GetId())})
	}
	for _, event := range events {
		putJournal, err := es.putJournal(event)
		if err != nil {
			return err
		}
		transactItems = append(transactItems, types.TransactWriteItem{Put: putJournal})
	}
	for i, record := range opts.auditRecords {
		putAudit, err := es.putAudit(aggregateId, i, record)
		if err != nil {
			return err
		}
		transactItems = append(transactItems, types.TransactWriteItem{Put: putAudit})
	}

	for _, entry := range opts.indexes {
		transactItems = append(transactItems, types.TransactWriteItem{Put: es.putIndex(aggregateId, entry)})
	}
	firstDependency := len(transactItems)
	for _, d := range opts.dependencies {
		transactItems = append(transactItems, types.TransactWriteItem{ConditionCheck: es.checkHeadVersion(d.aggregateId, d.version)})
	}

	request := &dynamodb.TransactWriteItemsInput{TransactItems: transactItems}
	if _, err := es.client.TransactWriteItems(ctx, request); err != nil {
		var t *types.TransactionCanceledException
		switch {
		case errors.As(err, &t):
			for i, reason := range t.CancellationReasons {
				if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
					continue
				}
				if i >= firstDependency {
					d := opts.dependencies[i-firstDependency]
					return NewDependencyChangedError(d.aggregateId.AsString(), d.version, 0, err)
				}
			}
			for _, reason := range t.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return NewOptimisticLockError("Transaction write was canceled due to conditional check failure", err)
				}
			}
			return NewIOError("Failed to transact write items due to non-conditional check failure", err)
		default:
			return NewIOError("Failed to transact write items", err)
		}
	}
	return nil
}

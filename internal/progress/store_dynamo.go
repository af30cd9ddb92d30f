package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"linkedin-optimizer/internal/shared/telemetry"
)

const hashKey = "optimization_id"

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// DynamoStore implements Store on a single DynamoDB table keyed by
// optimization_id.
type DynamoStore struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
	now    func() time.Time

	// Environment is written as a table tag on creation.
	Environment string
	// CreateWait bounds how long EnsureTable waits for a new table.
	CreateWait time.Duration
}

// NewDynamoClient builds a DynamoDB client with adaptive retries. Static
// credentials are used when both keys are set, otherwise the default chain.
func NewDynamoClient(ctx context.Context, region, accessKeyID, secretAccessKey string) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(3),
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// NewDynamoStore wraps a client. A zero ttl uses DefaultTTL.
func NewDynamoStore(client DynamoAPI, table string, ttl time.Duration) *DynamoStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DynamoStore{
		client:      client,
		table:       table,
		ttl:         ttl,
		now:         time.Now,
		Environment: "production",
		CreateWait:  2 * time.Minute,
	}
}

func (s *DynamoStore) Enabled() bool { return true }

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{hashKey: &types.AttributeValueMemberS{Value: id}}
}

func (s *DynamoStore) load(ctx context.Context, id string) (record, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return record{}, false, fmt.Errorf("dynamodb get item table=%s id=%s: %w", s.table, id, err)
	}
	if len(out.Item) == 0 {
		return record{}, false, nil
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return record{}, false, fmt.Errorf("decode item id=%s: %w", id, err)
	}
	// TTL deletion is lazy, so expired items can still be returned.
	if rec.expiredAt(s.now()) {
		return record{}, false, nil
	}
	return rec, true, nil
}

func (s *DynamoStore) put(ctx context.Context, rec record) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("encode item id=%s: %w", rec.OptimizationID, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb put item table=%s id=%s: %w", s.table, rec.OptimizationID, err)
	}
	return nil
}

// SaveStepProgress reads the item, merges the step and writes it back.
func (s *DynamoStore) SaveStepProgress(ctx context.Context, optimizationID, step string, data map[string]any, status string) error {
	rec, _, err := s.load(ctx, optimizationID)
	if err != nil {
		return err
	}
	if err := rec.applyStep(optimizationID, step, data, status, s.now(), s.ttl); err != nil {
		return err
	}
	return s.put(ctx, rec)
}

func (s *DynamoStore) GetProgress(ctx context.Context, optimizationID string) (Progress, error) {
	rec, ok, err := s.load(ctx, optimizationID)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, ErrNotFound
	}
	return rec.progress(), nil
}

func (s *DynamoStore) SaveResult(ctx context.Context, optimizationID string, result json.RawMessage, meta ResultMeta) error {
	rec, _, err := s.load(ctx, optimizationID)
	if err != nil {
		return err
	}
	if err := rec.applyResult(optimizationID, result, meta, s.now(), s.ttl); err != nil {
		return err
	}
	return s.put(ctx, rec)
}

func (s *DynamoStore) GetResult(ctx context.Context, optimizationID string) (StoredResult, error) {
	rec, ok, err := s.load(ctx, optimizationID)
	if err != nil {
		return StoredResult{}, err
	}
	if !ok {
		return StoredResult{}, ErrNotFound
	}
	return rec.stored()
}

// ListRecent scans the table and sorts client-side. The table has no
// created_at index.
func (s *DynamoStore) ListRecent(ctx context.Context, limit int) ([]ResultSummary, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		ProjectionExpression:     aws.String("optimization_id, created_at, #status, profile_score, completeness_score, #ttl"),
		ExpressionAttributeNames: map[string]string{"#status": "status", "#ttl": "ttl"},
	})
	var out []ResultSummary
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan table=%s: %w", s.table, err)
		}
		var recs []record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("decode scan page: %w", err)
		}
		now := s.now()
		for _, rec := range recs {
			if rec.expiredAt(now) {
				continue
			}
			out = append(out, rec.summary())
		}
	}
	if out == nil {
		out = []ResultSummary{}
	}
	return newestFirst(out, limit), nil
}

func (s *DynamoStore) Delete(ctx context.Context, optimizationID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(optimizationID),
	}); err != nil {
		return fmt.Errorf("dynamodb delete item table=%s id=%s: %w", s.table, optimizationID, err)
	}
	return nil
}

// EnsureTable creates the table when it does not exist and enables TTL
// expiry on the ttl attribute. It reports whether the table was created.
func (s *DynamoStore) EnsureTable(ctx context.Context) (bool, error) {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		telemetry.Info("dynamodb.table_exists", map[string]any{"table": s.table})
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("describe table %s: %w", s.table, err)
	}

	telemetry.Info("dynamodb.table_create", map[string]any{"table": s.table})
	env := strings.TrimSpace(s.Environment)
	if env == "" {
		env = "production"
	}
	if _, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(hashKey), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{Key: aws.String("Application"), Value: aws.String("LinkedIn-Profile-Optimizer")},
			{Key: aws.String("Environment"), Value: aws.String(env)},
		},
	}); err != nil {
		return false, fmt.Errorf("create table %s: %w", s.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, s.CreateWait); err != nil {
		return true, fmt.Errorf("wait for table %s: %w", s.table, err)
	}

	if _, err := s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.table),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String("ttl"),
			Enabled:       aws.Bool(true),
		},
	}); err != nil {
		telemetry.Warn("dynamodb.ttl_enable_failed", map[string]any{"table": s.table, "error": err})
	}
	telemetry.Info("dynamodb.table_created", map[string]any{"table": s.table})
	return true, nil
}

var _ Store = (*DynamoStore)(nil)

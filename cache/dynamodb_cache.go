package cache

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/models"
)

// DynamoDBAPI defines the interface for DynamoDB operations
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDBCache implements CacheProvider using DynamoDB.
// All resolutions live in a single item so that invalidation is one delete.
type DynamoDBCache struct {
	mu       sync.Mutex
	client   DynamoDBAPI
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDynamoDBCache creates a new DynamoDB cache provider
func NewDynamoDBCache(logger *zap.Logger) (*DynamoDBCache, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, err
	}

	return NewDynamoDBCacheWithClient(dynamodb.NewFromConfig(cfg), logger), nil
}

// NewDynamoDBCacheWithClient creates a new DynamoDB cache provider with a custom client
func NewDynamoDBCacheWithClient(client DynamoDBAPI, logger *zap.Logger) *DynamoDBCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoDBCache{
		client:   client,
		cacheTTL: DefaultTTL,
		logger:   logger,
	}
}

// Initialize creates the DynamoDB table if it doesn't exist
func (c *DynamoDBCache) Initialize() error {
	ctx := context.TODO()

	// Check if table exists
	_, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err == nil {
		// Table exists
		return nil
	}

	// Create table
	_, err = c.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("key"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

// load reads the cache item, deleting it once expired
func (c *DynamoDBCache) load(ctx context.Context) (*CacheItem, bool) {
	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       itemKey(),
	})
	if err != nil {
		c.logger.Warn("error reading cache item", zap.Error(err))
		return nil, false
	}

	if result.Item == nil {
		return nil, false
	}

	var item CacheItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false
	}

	// Check if cache is still valid
	if time.Now().Unix() > item.TTL {
		if err := c.deleteItem(ctx); err != nil {
			// Log error but continue
			c.logger.Warn("error deleting expired cache item", zap.Error(err))
		}
		return nil, false
	}

	return &item, true
}

// GetResolution retrieves a resolution from DynamoDB cache if available
func (c *DynamoDBCache) GetResolution(scope, path string) (*models.Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.load(context.TODO())
	if !ok {
		return nil, false
	}
	resolution, ok := item.Data[getCacheKey(scope, path)]
	if !ok || resolution == nil {
		return nil, false
	}
	return resolution, true
}

// SetResolution stores a resolution in DynamoDB cache
func (c *DynamoDBCache) SetResolution(scope, path string, resolution *models.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.TODO()
	now := time.Now()

	item, ok := c.load(ctx)
	if !ok {
		item = &CacheItem{
			Key:  cacheKey,
			Data: make(map[string]*models.Resolution),
			TTL:  now.Add(c.cacheTTL).Unix(),
		}
	}
	item.Data[getCacheKey(scope, path)] = resolution
	item.Timestamp = now.Unix()

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		// If we can't marshal the item, invalidate the cache
		if err := c.deleteItem(ctx); err != nil {
			c.logger.Warn("error invalidating cache after marshal failure", zap.Error(err))
		}
		return
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	})
	if err != nil {
		// If we can't store the item, invalidate the cache
		if err := c.deleteItem(ctx); err != nil {
			c.logger.Warn("error invalidating cache after put failure", zap.Error(err))
		}
	}
}

// InvalidateCache removes every resolution from DynamoDB cache
func (c *DynamoDBCache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.deleteItem(context.Background()); err != nil {
		c.logger.Warn("error invalidating cache", zap.Error(err))
	}
}

func (c *DynamoDBCache) deleteItem(ctx context.Context) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       itemKey(),
	})
	return err
}

// SetCacheTTL sets the cache time-to-live duration
func (c *DynamoDBCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheTTL = ttl
}

const (
	tableName = "ResourceLocatorCache"
	cacheKey  = "resolutions"
)

func itemKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: cacheKey},
	}
}

// CacheItem is the DynamoDB item holding all cached resolutions
type CacheItem struct {
	Key       string                        `dynamodbav:"key"`
	Data      map[string]*models.Resolution `dynamodbav:"data"`
	Timestamp int64                         `dynamodbav:"timestamp"`
	TTL       int64                         `dynamodbav:"ttl"`
}

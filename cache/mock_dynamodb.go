package cache

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MockDynamoDBClient implements DynamoDBAPI for testing
type MockDynamoDBClient struct {
	mu          sync.RWMutex
	tables      map[string]map[string]map[string]types.AttributeValue
	CreateCalls int
	PutCalls    int
	DeleteCalls int
}

// NewMockDynamoDBClient creates a new mock DynamoDB client
func NewMockDynamoDBClient() *MockDynamoDBClient {
	return &MockDynamoDBClient{
		tables: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

// CreateTable mocks the CreateTable operation
func (m *MockDynamoDBClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls++
	tableName := *params.TableName
	if _, ok := m.tables[tableName]; !ok {
		m.tables[tableName] = make(map[string]map[string]types.AttributeValue)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

// DescribeTable mocks the DescribeTable operation; unknown tables are reported missing
func (m *MockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.tables[*params.TableName]; !ok {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

// GetItem mocks the GetItem operation
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if items, ok := m.tables[*params.TableName]; ok {
		key := params.Key["key"].(*types.AttributeValueMemberS).Value
		if item, ok := items[key]; ok {
			return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
		}
	}
	// Return empty response when item doesn't exist
	return &dynamodb.GetItemOutput{
		Item: nil,
	}, nil
}

// PutItem mocks the PutItem operation
func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls++
	tableName := *params.TableName
	if _, ok := m.tables[tableName]; !ok {
		m.tables[tableName] = make(map[string]map[string]types.AttributeValue)
	}

	key := params.Item["key"].(*types.AttributeValueMemberS).Value
	m.tables[tableName][key] = copyItem(params.Item)

	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem mocks the DeleteItem operation
func (m *MockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	key := params.Key["key"].(*types.AttributeValueMemberS).Value
	if items, ok := m.tables[*params.TableName]; ok {
		delete(items, key)
	}

	return &dynamodb.DeleteItemOutput{}, nil
}

// ItemCount returns the number of items stored in a table
func (m *MockDynamoDBClient) ItemCount(tableName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[tableName])
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	copied := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		copied[k] = v
	}
	return copied
}

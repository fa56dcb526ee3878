package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoKV.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// kvItem is one row of the sessions table. TTL is the attribute configured
// for DynamoDB Time To Live.
type kvItem struct {
	PK        string    `dynamodbav:"pk"`
	Value     []byte    `dynamodbav:"value"`
	TTL       int64     `dynamodbav:"ttl,omitempty"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// DynamoKV stores values in a DynamoDB table keyed by "pk".
type DynamoKV struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

func NewDynamoKV(client DynamoAPI, tableName string) *DynamoKV {
	return &DynamoKV{client: client, tableName: tableName, now: time.Now}
}

func (d *DynamoKV) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key},
	}
}

// live unmarshals an item and applies expiry; TTL deletion in DynamoDB is lazy.
func (d *DynamoKV) live(raw map[string]types.AttributeValue) ([]byte, error) {
	if raw == nil {
		return nil, ErrNotFound
	}
	var item kvItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	if item.TTL != 0 && item.TTL <= d.now().Unix() {
		return nil, ErrNotFound
	}
	return item.Value, nil
}

func (d *DynamoKV) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	return d.live(out.Item)
}

func (d *DynamoKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := kvItem{
		PK:        key,
		Value:     value,
		UpdatedAt: d.now(),
	}
	if ttl > 0 {
		item.TTL = d.now().Add(ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save item to DynamoDB: %w", err)
	}
	return nil
}

func (d *DynamoKV) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.key(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from DynamoDB: %w", err)
	}
	return nil
}

func (d *DynamoKV) Take(ctx context.Context, key string) ([]byte, error) {
	out, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.tableName),
		Key:          d.key(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take item from DynamoDB: %w", err)
	}
	return d.live(out.Attributes)
}

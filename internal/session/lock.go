package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Gardusio/coach-client/internal/model"
)

// LockAPI is the subset of *dynamodb.Client used by LockManager.
type LockAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// LockManager handles refresh locks using DynamoDB conditional writes and TTL.
type LockManager struct {
	client      LockAPI
	tableName   string
	ttlDuration time.Duration
	now         func() time.Time
}

// NewLockManager creates a new LockManager. A non-positive ttl selects DefaultTTL.
func NewLockManager(client LockAPI, tableName string, ttl time.Duration) *LockManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LockManager{
		client:      client,
		tableName:   tableName,
		ttlDuration: ttl,
		now:         time.Now,
	}
}

// AcquireLock attempts to acquire the refresh lock of a session.
// It succeeds if:
// 1. No lock exists for the session.
// 2. The existing lock has expired (TTL < now).
// 3. The existing lock belongs to the same owner.
func (m *LockManager) AcquireLock(ctx context.Context, sessionID, owner string) (*model.RefreshLock, error) {
	now := m.now().Unix()

	lock := model.RefreshLock{
		SessionID: sessionID,
		Owner:     owner,
		ExpiresAt: now + int64(m.ttlDuration.Seconds()),
	}

	item, err := attributevalue.MarshalMap(lock)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	_, err = m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(m.tableName),
		Item:      item,
		ConditionExpression: aws.String(
			"attribute_not_exists(session_id) OR expires_at < :now OR #owner = :owner",
		),
		ExpressionAttributeNames: map[string]string{"#owner": "owner"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return &lock, nil
}

// ReleaseLock removes the lock if the owner holds it.
func (m *LockManager) ReleaseLock(ctx context.Context, sessionID, owner string) error {
	_, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(m.tableName),
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: sessionID},
		},
		ConditionExpression:      aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{"#owner": "owner"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotOwner
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBStore.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBStore keeps records in a table with promptId as hash key and
// version as range key, both strings.
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoDBStore creates a store over the named table.
func NewDynamoDBStore(client DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table}
}

// Table returns the table name.
func (s *DynamoDBStore) Table() string {
	return s.table
}

// Put writes the full item unconditionally.
func (s *DynamoDBStore) Put(ctx context.Context, r *Record) error {
	if r == nil || !validKey(r.Key()) {
		return ErrInvalidKey
	}
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentStore, "MarshalRecord", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return pkgerrors.FromAWS(pkgerrors.ComponentStore, "PutItem", err)
	}
	return nil
}

// Get reads the item with a strongly consistent read, so a Put is visible
// immediately.
func (s *DynamoDBStore) Get(ctx context.Context, key Key) (*Record, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	k, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentStore, "MarshalKey", err)
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            k,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentStore, "GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var r Record
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentStore, "UnmarshalRecord", err)
	}
	return &r, nil
}

// SetStatus updates status and updatedAt, conditional on the item existing.
func (s *DynamoDBStore) SetStatus(ctx context.Context, key Key, status string, now time.Time) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	k, err := attributevalue.MarshalMap(key)
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentStore, "MarshalKey", err)
	}
	values, err := attributevalue.MarshalMap(map[string]any{
		":status":    status,
		":updatedAt": now.UTC(),
	})
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentStore, "MarshalUpdate", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       k,
		UpdateExpression:          aws.String("SET #status = :status, updatedAt = :updatedAt"),
		ConditionExpression:       aws.String("attribute_exists(promptId)"),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, key.PromptID, key.Version)
		}
		return pkgerrors.FromAWS(pkgerrors.ComponentStore, "UpdateItem", err)
	}
	return nil
}

package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoItem struct {
	Username  string         `dynamodbav:"username"`
	Skills    map[string]int `dynamodbav:"skills"`
	CreatedAt time.Time      `dynamodbav:"createdAt"`
	UpdatedAt time.Time      `dynamodbav:"updatedAt"`
}

type DynamoStore struct {
	client DynamoAPI
	table  string
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// OpenDynamo builds a client from the default AWS credential chain.
func OpenDynamo(ctx context.Context, table string) (*DynamoStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewDynamoStore(dynamodb.NewFromConfig(cfg), table), nil
}

func (d *DynamoStore) Load(ctx context.Context, username string) (Profile, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"username": &types.AttributeValueMemberS{Value: username},
		},
	})
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", username, err)
	}
	if len(out.Item) == 0 {
		return Profile{}, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", username, err)
	}
	if item.Skills == nil {
		item.Skills = map[string]int{}
	}
	item.Username = username
	return Profile(item), nil
}

func (d *DynamoStore) Save(ctx context.Context, p Profile) error {
	var prev *Profile
	if old, err := d.Load(ctx, p.Username); err == nil {
		prev = &old
	}
	p = stamp(p, prev, time.Now())

	av, err := attributevalue.MarshalMap(dynamoItem(p))
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.Username, err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put profile %s: %w", p.Username, err)
	}
	return nil
}

func (d *DynamoStore) Close() error { return nil }

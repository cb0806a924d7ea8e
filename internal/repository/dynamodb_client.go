package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"say-something/internal/domain"
)

const (
	attrChannelID = "channelId"
	attrUUID      = "uuid"
	attrCompleted = "completed"
)

// ErrNotFound is returned when no suggestion exists for the key.
var ErrNotFound = errors.New("repository: suggestion not found")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ReadWriter defines the suggestion operations consumed by the use case.
type ReadWriter interface {
	ListByChannel(ctx context.Context, channelID string) ([]domain.Suggestion, error)
	Create(ctx context.Context, channelID, userID, displayName, phrase string) (domain.Suggestion, error)
	MarkCompleted(ctx context.Context, channelID, id string) (domain.Suggestion, error)
}

var _ ReadWriter = (*Client)(nil)

// Client wraps the suggestions DynamoDB table, keyed by (channelId, uuid).
type Client struct {
	api       dynamodbAPI
	tableName string
}

// suggestionItem is the stored shape of a suggestion.
type suggestionItem struct {
	ChannelID   string `dynamodbav:"channelId"`
	UUID        string `dynamodbav:"uuid"`
	Phrase      string `dynamodbav:"phrase"`
	UserID      string `dynamodbav:"userId"`
	DisplayName string `dynamodbav:"displayName"`
	Completed   bool   `dynamodbav:"completed"`
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// ListByChannel returns every suggestion for the channel, completed or not.
func (c *Client) ListByChannel(ctx context.Context, channelID string) ([]domain.Suggestion, error) {
	if channelID == "" {
		return nil, errors.New("repository: ListByChannel: channel id is required")
	}

	p := dynamodb.NewQueryPaginator(c.api, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("#channelId = :channelId"),
		ExpressionAttributeNames: map[string]string{
			"#channelId": attrChannelID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":channelId": &types.AttributeValueMemberS{Value: channelID},
		},
	})

	out := make([]domain.Suggestion, 0)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("repository: ListByChannel query: %w", err)
		}
		for _, item := range page.Items {
			s, err := itemToSuggestion(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListByChannel unmarshal: %w", err)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// Create persists a new open suggestion under a freshly generated uuid.
// Retried calls create distinct records.
func (c *Client) Create(ctx context.Context, channelID, userID, displayName, phrase string) (domain.Suggestion, error) {
	if channelID == "" {
		return domain.Suggestion{}, errors.New("repository: Create: channel id is required")
	}
	s := domain.Suggestion{
		ChannelID:   channelID,
		UUID:        newUUID(),
		Phrase:      phrase,
		UserID:      userID,
		DisplayName: displayName,
		Completed:   false,
	}

	item, err := attributevalue.MarshalMap(suggestionItem(s))
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("repository: Create marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#channelId) AND attribute_not_exists(#uuid)"),
		ExpressionAttributeNames: map[string]string{
			"#channelId": attrChannelID,
			"#uuid":      attrUUID,
		},
	})
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("repository: Create: %w", err)
	}
	return s, nil
}

// MarkCompleted sets completed=true on an existing suggestion and returns the
// updated record. Completing twice is harmless.
func (c *Client) MarkCompleted(ctx context.Context, channelID, id string) (domain.Suggestion, error) {
	if channelID == "" || id == "" {
		return domain.Suggestion{}, errors.New("repository: MarkCompleted: channel id and uuid are required")
	}

	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			attrChannelID: &types.AttributeValueMemberS{Value: channelID},
			attrUUID:      &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET #completed = :completed"),
		ConditionExpression: aws.String("attribute_exists(#channelId) AND attribute_exists(#uuid)"),
		ExpressionAttributeNames: map[string]string{
			"#completed": attrCompleted,
			"#channelId": attrChannelID,
			"#uuid":      attrUUID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberBOOL{Value: true},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.Suggestion{}, fmt.Errorf("repository: MarkCompleted %s/%s: %w", channelID, id, ErrNotFound)
		}
		return domain.Suggestion{}, fmt.Errorf("repository: MarkCompleted: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return domain.Suggestion{}, fmt.Errorf("repository: MarkCompleted %s/%s: %w", channelID, id, ErrNotFound)
	}

	s, err := itemToSuggestion(out.Attributes)
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("repository: MarkCompleted unmarshal: %w", err)
	}
	return s, nil
}

// itemToSuggestion converts a DynamoDB attribute map to a Suggestion.
func itemToSuggestion(item map[string]types.AttributeValue) (domain.Suggestion, error) {
	var si suggestionItem
	if err := attributevalue.UnmarshalMap(item, &si); err != nil {
		return domain.Suggestion{}, err
	}
	if si.ChannelID == "" || si.UUID == "" {
		return domain.Suggestion{}, fmt.Errorf("repository: item missing %q or %q", attrChannelID, attrUUID)
	}
	return domain.Suggestion(si), nil
}

var newUUID = func() string {
	return uuid.NewString()
}

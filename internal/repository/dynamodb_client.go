package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"genapp-chat/internal/domain"
)

// retention is how long a turn survives before the store expires it.
const retention = 7 * 24 * time.Hour

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client wraps the DynamoDB conversation table. The table is keyed by
// session_id (partition) and timestamp in milliseconds (sort); TTL expiry is
// delegated to DynamoDB.
type Client struct {
	api       dynamodbAPI
	tableName string
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

// RecentTurns returns the newest limit turns of a session in chronological
// order. The store is queried newest-first so the bound favors the most
// recent context, then reversed in memory for prompt assembly.
func (c *Client) RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	in := c.queryInput(sessionID)
	// Read newest first so LIMIT keeps the most recent turns.
	in.ScanIndexForward = aws.Bool(false)
	in.Limit = aws.Int32(int32(limit))

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: RecentTurns query: %w", err)
	}
	turns, err := itemsToTurns(out.Items)
	if err != nil {
		return nil, fmt.Errorf("repository: RecentTurns unmarshal: %w", err)
	}
	// Reverse to chronological order before returning to prompt assembly.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// AllTurns returns every stored turn of a session, oldest first.
func (c *Client) AllTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	out, err := c.api.Query(ctx, c.queryInput(sessionID))
	if err != nil {
		return nil, fmt.Errorf("repository: AllTurns query: %w", err)
	}
	turns, err := itemsToTurns(out.Items)
	if err != nil {
		return nil, fmt.Errorf("repository: AllTurns unmarshal: %w", err)
	}
	return turns, nil
}

// SaveExchange persists the user and assistant turns of one completed chat
// exchange. Both turns share a millisecond timestamp base; the assistant turn
// gets base+1 so ordering holds even when the clock does not advance between
// the two writes.
func (c *Client) SaveExchange(ctx context.Context, sessionID, query, answer string, sources []string) error {
	now := time.Now()
	base := now.UnixMilli()
	ttl := now.Add(retention).Unix()

	turns := []domain.Turn{
		{SessionID: sessionID, Timestamp: base, Role: domain.RoleUser, Content: query, TTL: ttl},
		{SessionID: sessionID, Timestamp: base + 1, Role: domain.RoleAssistant, Content: answer, Sources: sources, TTL: ttl},
	}
	for _, t := range turns {
		_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(c.tableName),
			Item:      turnItem(t),
		})
		if err != nil {
			return fmt.Errorf("repository: SaveExchange put %s turn: %w", t.Role, err)
		}
	}
	return nil
}

func (c *Client) queryInput(sessionID string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	}
}

func turnItem(t domain.Turn) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: t.SessionID},
		"timestamp":  &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Timestamp, 10)},
		"role":       &types.AttributeValueMemberS{Value: t.Role},
		"content":    &types.AttributeValueMemberS{Value: t.Content},
		"ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(t.TTL, 10)},
	}
	if t.Role == domain.RoleAssistant {
		members := make([]types.AttributeValue, 0, len(t.Sources))
		for _, s := range t.Sources {
			members = append(members, &types.AttributeValueMemberS{Value: s})
		}
		item["sources"] = &types.AttributeValueMemberL{Value: members}
	}
	return item
}

func itemsToTurns(items []map[string]types.AttributeValue) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, len(items))
	for _, item := range items {
		t, err := itemToTurn(item)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	sessionID, err := strAttr(item, "session_id")
	if err != nil {
		return domain.Turn{}, err
	}
	ts, err := int64Attr(item, "timestamp")
	if err != nil {
		return domain.Turn{}, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Turn{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.Turn{}, err
	}
	ttl, _ := int64Attr(item, "ttl") // absent on legacy items

	t := domain.Turn{
		SessionID: sessionID,
		Timestamp: ts,
		Role:      role,
		Content:   content,
		TTL:       ttl,
	}
	if raw, ok := item["sources"]; ok {
		list, ok := raw.(*types.AttributeValueMemberL)
		if !ok {
			return domain.Turn{}, errors.New(`attribute "sources" is not a list`)
		}
		for _, member := range list.Value {
			s, ok := member.(*types.AttributeValueMemberS)
			if !ok {
				return domain.Turn{}, errors.New(`attribute "sources" has a non-string member`)
			}
			t.Sources = append(t.Sources, s.Value)
		}
	}
	return t, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

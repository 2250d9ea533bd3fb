// Package dynamo implements the document store contract on DynamoDB.
//
// All collections share one table keyed by (pk=collection, sk=document id).
// String-slice fields are stored as native string sets so that union and
// remove updates map onto ADD/DELETE expressions and stay idempotent on the
// server side.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"moodboard/internal/storage"
)

const (
	attrPK      = "pk"
	attrSK      = "sk"
	attrVersion = "doc_version"

	txAttempts   = 3
	maxBatchSize = 25
)

// Store is a DynamoDB-backed DocumentStore.
type Store struct {
	client *dynamodb.Client
	table  string
	feed   storage.ChangeFeed
}

// NewClient builds a DynamoDB client from the ambient AWS configuration.
func NewClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// New wraps a DynamoDB client as a document store over the given table.
func New(client *dynamodb.Client, table string, feed storage.ChangeFeed) *Store {
	if feed == nil {
		feed = storage.NewLocalChangeFeed()
	}
	return &Store{client: client, table: table, feed: feed}
}

func key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: collection},
		attrSK: &types.AttributeValueMemberS{Value: id},
	}
}

// Get performs a point read.
func (s *Store) Get(ctx context.Context, collection, id string) (storage.Doc, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(collection, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", s.table, err)
	}
	if out.Item == nil {
		return nil, storage.ErrNotFound
	}
	return decodeItem(out.Item)
}

// Set writes the full document, replacing any previous version.
func (s *Store) Set(ctx context.Context, collection, id string, doc storage.Doc) error {
	item, err := encodeItem(collection, id, doc, 1)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", s.table, err)
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// Add creates a document under a generated id.
func (s *Store) Add(ctx context.Context, collection string, doc storage.Doc) (string, error) {
	id := uuid.NewString()
	return id, s.Set(ctx, collection, id, doc)
}

// Update applies field updates to an existing document. Set and increment
// become SET clauses, union becomes ADD on a string set and remove becomes
// DELETE, so repeated membership updates never duplicate elements.
func (s *Store) Update(ctx context.Context, collection, id string, updates ...storage.Update) error {
	var setParts, addParts, delParts []string
	names := map[string]string{attrPK: attrPK}
	values := map[string]types.AttributeValue{}

	for i, u := range updates {
		name := fmt.Sprintf("#f%d", i)
		value := fmt.Sprintf(":v%d", i)
		names[name] = u.Field
		switch u.Op {
		case storage.OpSet:
			av, err := attributevalue.Marshal(u.Value)
			if err != nil {
				return fmt.Errorf("failed to marshal update for field '%s': %w", u.Field, err)
			}
			values[value] = av
			setParts = append(setParts, fmt.Sprintf("%s = %s", name, value))
		case storage.OpIncrement:
			values[value] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%v", u.Value)}
			values[":zero"] = &types.AttributeValueMemberN{Value: "0"}
			setParts = append(setParts, fmt.Sprintf("%s = if_not_exists(%s, :zero) + %s", name, name, value))
		case storage.OpUnion:
			members := stringMembers(u.Value)
			if len(members) == 0 {
				continue
			}
			values[value] = &types.AttributeValueMemberSS{Value: members}
			addParts = append(addParts, fmt.Sprintf("%s %s", name, value))
		case storage.OpRemove:
			members := stringMembers(u.Value)
			if len(members) == 0 {
				continue
			}
			values[value] = &types.AttributeValueMemberSS{Value: members}
			delParts = append(delParts, fmt.Sprintf("%s %s", name, value))
		}
	}

	var expr []string
	if len(setParts) > 0 {
		expr = append(expr, "SET "+strings.Join(setParts, ", "))
	}
	if len(addParts) > 0 {
		expr = append(expr, "ADD "+strings.Join(addParts, ", "))
	}
	if len(delParts) > 0 {
		expr = append(expr, "DELETE "+strings.Join(delParts, ", "))
	}
	if len(expr) == 0 {
		return nil
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(collection, id),
		UpdateExpression:          aws.String(strings.Join(expr, " ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String(fmt.Sprintf("attribute_exists(#%s)", attrPK)),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to update item in table '%s': %w", s.table, err)
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// Delete removes a document; deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(collection, id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", s.table, err)
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// Query scans the collection partition and applies filters, ordering and
// limit in Go. Collections here stay small (a user's vibes, notifications),
// so a partition scan per query is acceptable.
func (s *Store) Query(ctx context.Context, collection string, q storage.Query) ([]storage.Doc, error) {
	docs, err := s.loadCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, doc := range docs {
		if storage.Matches(doc, q.Filters) {
			out = append(out, doc)
		}
	}
	storage.SortDocs(out, q.OrderBy, q.Desc)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns the number of matching documents.
func (s *Store) Count(ctx context.Context, collection string, filters ...storage.Filter) (int, error) {
	docs, err := s.Query(ctx, collection, storage.Query{Filters: filters})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// DeleteWhere removes every matching document with batched writes.
func (s *Store) DeleteWhere(ctx context.Context, collection string, filters ...storage.Filter) error {
	docs, err := s.Query(ctx, collection, storage.Query{Filters: filters})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(docs))
	for _, doc := range docs {
		id, _ := doc["id"].(string)
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: key(collection, id)},
		})
	}
	for i := 0; i < len(requests); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(requests) {
			end = len(requests)
		}
		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: requests[i:end]},
		})
		if err != nil {
			return fmt.Errorf("failed to batch delete from table '%s': %w", s.table, err)
		}
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// RunTransaction performs a read-modify-write guarded by a version condition
// and retries a bounded number of times when a concurrent writer wins.
func (s *Store) RunTransaction(ctx context.Context, collection, id string, fn func(storage.Doc) (storage.Doc, error)) error {
	for attempt := 0; attempt < txAttempts; attempt++ {
		out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key:       key(collection, id),
		})
		if err != nil {
			return fmt.Errorf("failed to get item from table '%s': %w", s.table, err)
		}
		if out.Item == nil {
			return storage.ErrNotFound
		}
		version := itemVersion(out.Item)
		doc, err := decodeItem(out.Item)
		if err != nil {
			return err
		}

		next, err := fn(doc)
		if err != nil {
			return err
		}
		item, err := encodeItem(collection, id, next, version+1)
		if err != nil {
			return err
		}
		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 aws.String(s.table),
			Item:                      item,
			ConditionExpression:       aws.String(fmt.Sprintf("%s = :version", attrVersion)),
			ExpressionAttributeValues: map[string]types.AttributeValue{":version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)}},
		})
		if err == nil {
			s.feed.Changed(ctx, collection)
			return nil
		}
		var cond *types.ConditionalCheckFailedException
		if !errors.As(err, &cond) {
			return fmt.Errorf("failed to commit transaction on table '%s': %w", s.table, err)
		}
	}
	return storage.ErrConflict
}

// Subscribe establishes a live query driven by the change feed.
func (s *Store) Subscribe(ctx context.Context, collection string, q storage.Query, fn func([]storage.Doc)) (func(), error) {
	run := func() {
		docs, err := s.Query(ctx, collection, q)
		if err != nil {
			return
		}
		fn(docs)
	}
	cancel, err := s.feed.Watch(ctx, collection, run)
	if err != nil {
		return nil, err
	}
	run()
	return cancel, nil
}

func (s *Store) loadCollection(ctx context.Context, collection string) ([]storage.Doc, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String(fmt.Sprintf("%s = :pk", attrPK)),
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": &types.AttributeValueMemberS{Value: collection}},
	}
	var docs []storage.Doc
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query table '%s': %w", s.table, err)
		}
		for _, item := range out.Items {
			doc, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		if out.LastEvaluatedKey == nil {
			return docs, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// encodeItem marshals a document into native attributes. String slices become
// string sets; DynamoDB rejects empty sets, so empty slices are dropped and
// reappear as absent fields, which decodes back to an empty membership.
func encodeItem(collection, id string, doc storage.Doc, version int64) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{
		attrPK:      &types.AttributeValueMemberS{Value: collection},
		attrSK:      &types.AttributeValueMemberS{Value: id},
		attrVersion: &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
	}
	for field, v := range doc {
		if field == "id" || field == attrPK || field == attrSK || field == attrVersion {
			continue
		}
		if members := stringMembers(v); members != nil {
			if len(members) > 0 {
				item[field] = &types.AttributeValueMemberSS{Value: members}
			}
			continue
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field '%s': %w", field, err)
		}
		item[field] = av
	}
	return item, nil
}

func decodeItem(item map[string]types.AttributeValue) (storage.Doc, error) {
	doc := storage.Doc{}
	for field, av := range item {
		switch field {
		case attrPK, attrVersion:
			continue
		case attrSK:
			if s, ok := av.(*types.AttributeValueMemberS); ok {
				doc["id"] = s.Value
			}
			continue
		}
		if ss, ok := av.(*types.AttributeValueMemberSS); ok {
			members := make([]any, len(ss.Value))
			for i, m := range ss.Value {
				members[i] = m
			}
			doc[field] = members
			continue
		}
		var v any
		if err := attributevalue.Unmarshal(av, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal field '%s': %w", field, err)
		}
		doc[field] = v
	}
	return doc, nil
}

func itemVersion(item map[string]types.AttributeValue) int64 {
	n, ok := item[attrVersion].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	var v int64
	fmt.Sscanf(n.Value, "%d", &v)
	return v
}

// stringMembers reports whether v is a string slice and returns its members.
// A non-slice value returns nil, which callers treat as "not a set".
func stringMembers(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string{}, vv...)
	case []any:
		members := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			members = append(members, s)
		}
		return members
	default:
		return nil
	}
}

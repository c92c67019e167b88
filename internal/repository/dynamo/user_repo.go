package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	"github.com/and161185/item-keeper/internal/repository"
)

// UserRepo implements UserRepository on the users table.
type UserRepo struct{ db *DB }

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create puts a new user document; an existing id is rejected.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	item, err := attributevalue.MarshalMap(toUserRecord(*u))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.db.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.tables.Users),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetByID reads a user with strong consistency.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	out, err := r.db.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.db.tables.Users),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, errs.ErrNotFound
	}
	var rec userRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	u, err := rec.model()
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Save stages a full rewrite of the user document in tx. The put only applies
// if the stored document still carries u.Version, so a concurrent writer
// holding the same copy cancels its own transaction. u.Version is advanced
// to the staged value; discard u if the transaction does not commit.
func (r *UserRepo) Save(_ context.Context, tx repository.Tx, u *model.User) error {
	t, err := txFrom(tx)
	if err != nil {
		return err
	}
	rec := toUserRecord(*u)
	rec.Version = u.Version + 1
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	expected := map[string]types.AttributeValue{
		":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(u.Version, 10)},
	}
	err = t.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:                 aws.String(r.db.tables.Users),
			Item:                      item,
			ConditionExpression:       aws.String("attribute_exists(id) AND #version = :expected_version"),
			ExpressionAttributeNames:  map[string]string{"#version": "version"},
			ExpressionAttributeValues: expected,
		},
	})
	if err != nil {
		return err
	}
	u.Version = rec.Version
	return nil
}

// Package dynamo contains DynamoDB implementations of repository interfaces.
//
// Writes that belong to one protocol are buffered in a Tx and sent as a single
// TransactWriteItems call on commit, so either every document changes or none does.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/repository"
)

// maxTransactItems is the DynamoDB limit for one TransactWriteItems call.
const maxTransactItems = 100

// API is the subset of *dynamodb.Client used by the repositories.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Tables names the two collections.
type Tables struct {
	Items string
	Users string
}

// DefaultTables returns the default table names.
func DefaultTables() Tables {
	return Tables{Items: "items", Users: "users"}
}

func (t *Tables) applyDefaults() {
	d := DefaultTables()
	if t.Items == "" {
		t.Items = d.Items
	}
	if t.Users == "" {
		t.Users = d.Users
	}
}

// DB binds a DynamoDB client to the table layout and opens transaction scopes.
type DB struct {
	api    API
	tables Tables
}

var _ repository.Store = (*DB)(nil)

// New constructs a DB; empty table names fall back to DefaultTables.
func New(api API, tables Tables) *DB {
	tables.applyDefaults()
	return &DB{api: api, tables: tables}
}

// Begin opens a buffered write transaction.
func (db *DB) Begin(context.Context) (repository.Tx, error) {
	return &Tx{db: db}, nil
}

// Tx collects writes until Commit sends them as one TransactWriteItems call.
type Tx struct {
	db     *DB
	writes []types.TransactWriteItem
	done   bool
}

var errTxDone = errors.New("dynamo: transaction already finished")

func (t *Tx) add(w types.TransactWriteItem) error {
	if t.done {
		return errTxDone
	}
	if len(t.writes) >= maxTransactItems {
		return fmt.Errorf("dynamo: more than %d writes in one transaction", maxTransactItems)
	}
	t.writes = append(t.writes, w)
	return nil
}

// Commit applies all buffered writes atomically.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	if len(t.writes) == 0 {
		return nil
	}
	_, err := t.db.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: t.writes,
	})
	return mapTransactError(err, t.writes)
}

// Rollback discards the buffered writes. Nothing has reached the table yet.
func (t *Tx) Rollback(context.Context) error {
	t.done = true
	t.writes = nil
	return nil
}

func txFrom(tx repository.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, errs.ErrForeignTx
	}
	return t, nil
}

// mapTransactError names the write whose condition cancelled the transaction.
func mapTransactError(err error, writes []types.TransactWriteItem) error {
	if err == nil {
		return nil
	}
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" || i >= len(writes) {
				continue
			}
			return fmt.Errorf("transact write: condition failed on %s: %w", writeTable(writes[i]), err)
		}
	}
	return fmt.Errorf("transact write: %w", err)
}

func writeTable(w types.TransactWriteItem) string {
	switch {
	case w.Put != nil:
		return aws.ToString(w.Put.TableName)
	case w.Delete != nil:
		return aws.ToString(w.Delete.TableName)
	case w.Update != nil:
		return aws.ToString(w.Update.TableName)
	case w.ConditionCheck != nil:
		return aws.ToString(w.ConditionCheck.TableName)
	}
	return "?"
}

func key(id uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id.String()},
	}
}

func isConditionFailed(err error) bool {
	var cf *types.ConditionalCheckFailedException
	return errors.As(err, &cf)
}

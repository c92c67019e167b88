package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	"github.com/and161185/item-keeper/internal/repository"
)

// maxBatchGet is the DynamoDB limit of keys per BatchGetItem request.
const maxBatchGet = 100

// ItemRepo implements ItemRepository on the items table.
type ItemRepo struct{ db *DB }

var _ repository.ItemRepository = (*ItemRepo)(nil)

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

func decodeItems(raw []map[string]types.AttributeValue) ([]model.Item, error) {
	var recs []itemRecord
	if err := attributevalue.UnmarshalListOfMaps(raw, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	out := make([]model.Item, 0, len(recs))
	for _, rec := range recs {
		it, err := rec.model()
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// List scans the whole items table.
func (r *ItemRepo) List(ctx context.Context) ([]model.Item, error) {
	var out []model.Item
	p := dynamodb.NewScanPaginator(r.db.api, &dynamodb.ScanInput{
		TableName: aws.String(r.db.tables.Items),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan items: %w", err)
		}
		items, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// GetByID reads a single item with strong consistency.
func (r *ItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	out, err := r.db.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.db.tables.Items),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if out.Item == nil {
		return nil, errs.ErrNotFound
	}
	var rec itemRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	it, err := rec.model()
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListByOwner loads the user document and batch-reads its references.
// References to missing items are skipped; the result follows the list order.
func (r *ItemRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Item, error) {
	u, err := NewUserRepo(r.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrOwnerItemsNotFound
		}
		return nil, err
	}
	if len(u.Items) == 0 {
		return nil, errs.ErrOwnerItemsNotFound
	}

	found, err := r.batchGet(ctx, u.Items)
	if err != nil {
		return nil, err
	}
	out := make([]model.Item, 0, len(u.Items))
	for _, id := range u.Items {
		if it, ok := found[id]; ok {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, errs.ErrOwnerItemsNotFound
	}
	return out, nil
}

func (r *ItemRepo) batchGet(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Item, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	var pending []map[string]types.AttributeValue
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			pending = append(pending, key(id))
		}
	}

	found := make(map[uuid.UUID]model.Item, len(pending))
	for len(pending) > 0 {
		n := min(len(pending), maxBatchGet)
		chunk := pending[:n]
		pending = pending[n:]

		out, err := r.db.api.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				r.db.tables.Items: {Keys: chunk, ConsistentRead: aws.Bool(true)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("batch get items: %w", err)
		}
		items, err := decodeItems(out.Responses[r.db.tables.Items])
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			found[it.ID] = it
		}
		if left, ok := out.UnprocessedKeys[r.db.tables.Items]; ok {
			pending = append(pending, left.Keys...)
		}
	}
	return found, nil
}

// Create assigns a new id and stages the item put in tx.
func (r *ItemRepo) Create(_ context.Context, tx repository.Tx, in model.NewItem) (*model.Item, error) {
	t, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	it := model.Item{ID: id, ItemFields: in.ItemFields, Creator: in.Creator}
	item, err := attributevalue.MarshalMap(toItemRecord(it))
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	err = t.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.db.tables.Items),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Update overwrites title, category, cost and date in place.
func (r *ItemRepo) Update(ctx context.Context, id uuid.UUID, f model.ItemFields) (*model.Item, error) {
	vals, err := attributevalue.MarshalMap(map[string]any{
		":title":    f.Title,
		":category": f.Category,
		":cost":     f.Cost,
		":date":     f.Date,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	out, err := r.db.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.tables.Items),
		Key:              key(id),
		UpdateExpression: aws.String("SET #title = :title, #category = :category, #cost = :cost, #date = :date"),
		ExpressionAttributeNames: map[string]string{
			"#title":    "title",
			"#category": "category",
			"#cost":     "cost",
			"#date":     "date",
		},
		ExpressionAttributeValues: vals,
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	var rec itemRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	it, err := rec.model()
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Delete stages a conditional delete of the item in tx.
func (r *ItemRepo) Delete(_ context.Context, tx repository.Tx, id uuid.UUID) error {
	t, err := txFrom(tx)
	if err != nil {
		return err
	}
	return t.add(types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:           aws.String(r.db.tables.Items),
			Key:                 key(id),
			ConditionExpression: aws.String("attribute_exists(id)"),
		},
	})
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	"github.com/and161185/item-keeper/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

var _ repository.ItemRepository = (*ItemRepo)(nil)

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

const itemColumns = `id, title, category, cost, date, creator_id`

func scanItem(row pgx.Row) (model.Item, error) {
	var it model.Item
	err := row.Scan(&it.ID, &it.Title, &it.Category, &it.Cost, &it.Date, &it.Creator)
	return it, err
}

func (r *ItemRepo) query(ctx context.Context, q string, args ...any) ([]model.Item, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// List returns all items in insertion order.
func (r *ItemRepo) List(ctx context.Context) ([]model.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items ORDER BY created_at, id`
	out, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

// GetByID returns a single item by id.
func (r *ItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE id=$1`
	it, err := scanItem(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select item: %w", err)
	}
	return &it, nil
}

// ListByOwner loads the user's reference list and populates it from items.
// References to rows that no longer exist are skipped.
func (r *ItemRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Item, error) {
	const sel = `SELECT item_ids::text[] FROM users WHERE id=$1`
	var raw []string
	if err := r.db.Pool.QueryRow(ctx, sel, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrOwnerItemsNotFound
		}
		return nil, fmt.Errorf("select user items: %w", err)
	}
	if len(raw) == 0 {
		return nil, errs.ErrOwnerItemsNotFound
	}
	refs, err := parseIDs(raw)
	if err != nil {
		return nil, err
	}

	const q = `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1::uuid[])`
	found, err := r.query(ctx, q, raw)
	if err != nil {
		return nil, fmt.Errorf("populate user items: %w", err)
	}
	byID := make(map[uuid.UUID]model.Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}

	out := make([]model.Item, 0, len(refs))
	for _, id := range refs {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, errs.ErrOwnerItemsNotFound
	}
	return out, nil
}

// Create inserts the item inside tx; the id is assigned by the database.
func (r *ItemRepo) Create(ctx context.Context, tx repository.Tx, in model.NewItem) (*model.Item, error) {
	t, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO items (title, category, cost, date, creator_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	it := model.Item{ItemFields: in.ItemFields, Creator: in.Creator}
	if err := t.QueryRow(ctx, q, in.Title, in.Category, in.Cost, in.Date, in.Creator).Scan(&it.ID); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return &it, nil
}

// Update overwrites title, category, cost and date. The creator is left as is.
func (r *ItemRepo) Update(ctx context.Context, id uuid.UUID, f model.ItemFields) (*model.Item, error) {
	const q = `
UPDATE items
SET title=$2, category=$3, cost=$4, date=$5
WHERE id=$1
RETURNING ` + itemColumns
	it, err := scanItem(r.db.Pool.QueryRow(ctx, q, id, f.Title, f.Category, f.Cost, f.Date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return &it, nil
}

// Delete removes the item row inside tx.
func (r *ItemRepo) Delete(ctx context.Context, tx repository.Tx, id uuid.UUID) error {
	t, err := pgxTx(tx)
	if err != nil {
		return err
	}
	tag, err := t.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

package dynamo

import (
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/item-keeper/internal/model"
)

type itemRecord struct {
	ID       string  `dynamodbav:"id"`
	Title    string  `dynamodbav:"title"`
	Category string  `dynamodbav:"category"`
	Cost     float64 `dynamodbav:"cost"`
	Date     string  `dynamodbav:"date"`
	Creator  string  `dynamodbav:"creator"`
}

type userRecord struct {
	ID      string   `dynamodbav:"id"`
	Name    string   `dynamodbav:"name"`
	Items   []string `dynamodbav:"items"`
	Version int64    `dynamodbav:"version"`
}

func toItemRecord(it model.Item) itemRecord {
	return itemRecord{
		ID:       it.ID.String(),
		Title:    it.Title,
		Category: it.Category,
		Cost:     it.Cost,
		Date:     it.Date,
		Creator:  it.Creator.String(),
	}
}

func (r itemRecord) model() (model.Item, error) {
	id, err := uuid.FromString(r.ID)
	if err != nil {
		return model.Item{}, fmt.Errorf("bad item id %q: %w", r.ID, err)
	}
	creator, err := uuid.FromString(r.Creator)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %s: bad creator %q: %w", r.ID, r.Creator, err)
	}
	return model.Item{
		ID: id,
		ItemFields: model.ItemFields{
			Title:    r.Title,
			Category: r.Category,
			Cost:     r.Cost,
			Date:     r.Date,
		},
		Creator: creator,
	}, nil
}

func toUserRecord(u model.User) userRecord {
	items := make([]string, len(u.Items))
	for i, id := range u.Items {
		items[i] = id.String()
	}
	return userRecord{ID: u.ID.String(), Name: u.Name, Items: items, Version: u.Version}
}

func (r userRecord) model() (model.User, error) {
	id, err := uuid.FromString(r.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("bad user id %q: %w", r.ID, err)
	}
	items := make([]uuid.UUID, 0, len(r.Items))
	for _, s := range r.Items {
		ref, err := uuid.FromString(s)
		if err != nil {
			return model.User{}, fmt.Errorf("user %s: bad item reference %q: %w", r.ID, s, err)
		}
		items = append(items, ref)
	}
	return model.User{ID: id, Name: r.Name, Items: items, Version: r.Version}, nil
}

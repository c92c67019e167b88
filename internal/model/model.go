// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/item-keeper/internal/errs"
)

// ItemFields are the mutable attributes of an item.
type ItemFields struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Cost     float64 `json:"cost"`
	Date     string  `json:"date"` // text-encoded, stored verbatim
}

// Validate reports missing required fields as errs.ErrValidation.
func (f ItemFields) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(f.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(f.Date) == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: empty %s", errs.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// NewItem is the create intent: item fields plus the owning user.
type NewItem struct {
	ItemFields
	Creator uuid.UUID
}

// Item is a single stored record owned by exactly one user.
type Item struct {
	ID uuid.UUID `json:"id"` // store-assigned
	ItemFields
	Creator uuid.UUID `json:"creator"` // reference to users.id, immutable after create
}

// User owns an ordered list of item references.
type User struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Items []uuid.UUID `json:"items"` // duplicates are not prevented here

	// Version is the optimistic-lock counter of the stored document.
	// Save writes only if the stored value still equals it.
	Version int64 `json:"-"`
}

// AppendItem adds an item reference to the user's list.
// The change is in memory only until the user is saved.
func (u *User) AppendItem(id uuid.UUID) {
	u.Items = append(u.Items, id)
}

// RemoveItem drops every occurrence of id from the user's list.
// The change is in memory only until the user is saved.
func (u *User) RemoveItem(id uuid.UUID) {
	kept := make([]uuid.UUID, 0, len(u.Items))
	for _, it := range u.Items {
		if it != id {
			kept = append(kept, it)
		}
	}
	u.Items = kept
}

// HasItem reports whether the user references the item.
func (u *User) HasItem(id uuid.UUID) bool {
	for _, it := range u.Items {
		if it == id {
			return true
		}
	}
	return false
}

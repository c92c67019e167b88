// Package convert maps domain entities to and from the google.protobuf.Struct
// documents carried by the gRPC API.
package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	u "github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/item-keeper/internal/errs"
	model "github.com/and161185/item-keeper/internal/model"
)

// --- helpers ---

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrValidation, fmt.Sprintf(format, args...))
}

func str(fields map[string]*structpb.Value, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return s.StringValue
	}
	return ""
}

// --- requests (client -> server) ---

// ID reads a uuid field from a request document.
func ID(in *structpb.Struct, name string) (u.UUID, error) {
	raw := strings.TrimSpace(str(in.GetFields(), name))
	if raw == "" {
		return u.Nil, invalid("empty %s", name)
	}
	id, err := u.FromString(raw)
	if err != nil {
		return u.Nil, invalid("bad %s", name)
	}
	return id, nil
}

// ItemFields reads and validates title, category, cost and date.
// Cost may be sent as a number or a numeric string.
func ItemFields(in *structpb.Struct) (model.ItemFields, error) {
	fields := in.GetFields()
	f := model.ItemFields{
		Title:    strings.TrimSpace(str(fields, "title")),
		Category: strings.TrimSpace(str(fields, "category")),
		Date:     strings.TrimSpace(str(fields, "date")),
	}

	cost, ok := fields["cost"]
	if !ok {
		return model.ItemFields{}, invalid("empty cost")
	}
	switch k := cost.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f.Cost = k.NumberValue
	case *structpb.Value_StringValue:
		c, err := strconv.ParseFloat(strings.TrimSpace(k.StringValue), 64)
		if err != nil {
			return model.ItemFields{}, invalid("bad cost")
		}
		f.Cost = c
	default:
		return model.ItemFields{}, invalid("bad cost")
	}
	if math.IsNaN(f.Cost) || math.IsInf(f.Cost, 0) {
		return model.ItemFields{}, invalid("bad cost")
	}

	if err := f.Validate(); err != nil {
		return model.ItemFields{}, err
	}
	return f, nil
}

// NewItem reads a create request: item fields plus the creator id.
func NewItem(in *structpb.Struct) (model.NewItem, error) {
	f, err := ItemFields(in)
	if err != nil {
		return model.NewItem{}, err
	}
	creator, err := ID(in, "creator")
	if err != nil {
		return model.NewItem{}, err
	}
	return model.NewItem{ItemFields: f, Creator: creator}, nil
}

// ItemFieldsRequest builds the document read by ItemFields.
func ItemFieldsRequest(f model.ItemFields) map[string]any {
	return map[string]any{
		"title":    f.Title,
		"category": f.Category,
		"cost":     f.Cost,
		"date":     f.Date,
	}
}

// --- responses (server -> client) ---

func itemDoc(it model.Item) map[string]any {
	d := ItemFieldsRequest(it.ItemFields)
	d["id"] = it.ID.String()
	d["creator"] = it.Creator.String()
	return d
}

func userDoc(usr model.User) map[string]any {
	items := make([]any, len(usr.Items))
	for i, id := range usr.Items {
		items[i] = id.String()
	}
	return map[string]any{"id": usr.ID.String(), "name": usr.Name, "items": items}
}

// ItemResponse wraps a single item as {"item": {...}}.
func ItemResponse(it model.Item) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"item": itemDoc(it)})
}

// ItemsResponse wraps items as {"items": [...]}.
func ItemsResponse(items []model.Item) (*structpb.Struct, error) {
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = itemDoc(it)
	}
	return structpb.NewStruct(map[string]any{"items": list})
}

// UserResponse wraps a user as {"user": {...}}.
func UserResponse(usr model.User) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"user": userDoc(usr)})
}

// MessageResponse wraps an acknowledgment text as {"message": "..."}.
func MessageResponse(msg string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"message": msg})
}

// --- decoding responses (client side) ---

func itemFromDoc(s *structpb.Struct) (model.Item, error) {
	fields := s.GetFields()
	id, err := u.FromString(str(fields, "id"))
	if err != nil {
		return model.Item{}, fmt.Errorf("item id: %w", err)
	}
	creator, err := u.FromString(str(fields, "creator"))
	if err != nil {
		return model.Item{}, fmt.Errorf("item creator: %w", err)
	}
	return model.Item{
		ID: id,
		ItemFields: model.ItemFields{
			Title:    str(fields, "title"),
			Category: str(fields, "category"),
			Cost:     fields["cost"].GetNumberValue(),
			Date:     str(fields, "date"),
		},
		Creator: creator,
	}, nil
}

// ItemFromResponse decodes {"item": {...}}.
func ItemFromResponse(s *structpb.Struct) (model.Item, error) {
	doc := s.GetFields()["item"].GetStructValue()
	if doc == nil {
		return model.Item{}, fmt.Errorf("response has no item")
	}
	return itemFromDoc(doc)
}

// ItemsFromResponse decodes {"items": [...]}.
func ItemsFromResponse(s *structpb.Struct) ([]model.Item, error) {
	vals := s.GetFields()["items"].GetListValue().GetValues()
	out := make([]model.Item, 0, len(vals))
	for i, v := range vals {
		it, err := itemFromDoc(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

// UserFromResponse decodes {"user": {...}}.
func UserFromResponse(s *structpb.Struct) (model.User, error) {
	doc := s.GetFields()["user"].GetStructValue()
	if doc == nil {
		return model.User{}, fmt.Errorf("response has no user")
	}
	fields := doc.GetFields()
	id, err := u.FromString(str(fields, "id"))
	if err != nil {
		return model.User{}, fmt.Errorf("user id: %w", err)
	}
	usr := model.User{ID: id, Name: str(fields, "name"), Items: []u.UUID{}}
	for i, v := range fields["items"].GetListValue().GetValues() {
		ref, err := u.FromString(v.GetStringValue())
		if err != nil {
			return model.User{}, fmt.Errorf("user items[%d]: %w", i, err)
		}
		usr.Items = append(usr.Items, ref)
	}
	return usr, nil
}

package service

import (
	"context"
	"errors"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	"github.com/and161185/item-keeper/internal/repository"
)

// memStore is a two-collection document store with staged transactions.
// Writes inside a tx only become visible on Commit.
type memStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]model.Item
	users map[uuid.UUID]model.User
	order []uuid.UUID

	beginErr      error
	commitErr     error
	readErr       error // returned by every read
	ownerReadErr  error // returned by users.GetByID only
	itemCreateErr error
	itemUpdateErr error
	itemDeleteErr error
	userSaveErr   error

	beginHook func() // runs before Begin takes the lock

	begun, commits, rollbacks int
}

func newMemStore() *memStore {
	return &memStore{items: map[uuid.UUID]model.Item{}, users: map[uuid.UUID]model.User{}}
}

func (m *memStore) seedUser(name string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{ID: uuid.Must(uuid.NewV4()), Name: name, Items: []uuid.UUID{}}
	m.users[u.ID] = u
	return u
}

func (m *memStore) user(id uuid.UUID) (model.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

func (m *memStore) item(id uuid.UUID) (model.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok
}

// memTx stages writes; checks run under the store lock on Commit and
// any failure discards every staged write.
type memTx struct {
	m      *memStore
	checks []func() error
	staged []func()
	done   bool
}

func (m *memStore) Begin(context.Context) (repository.Tx, error) {
	m.mu.Lock()
	hook := m.beginHook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.begun++
	return &memTx{m: m}, nil
}

func (t *memTx) Commit(context.Context) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return errors.New("tx finished")
	}
	t.done = true
	t.m.commits++
	if t.m.commitErr != nil {
		return t.m.commitErr
	}
	for _, check := range t.checks {
		if err := check(); err != nil {
			return err
		}
	}
	for _, op := range t.staged {
		op()
	}
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.m.rollbacks++
	t.staged = nil
	return nil
}

func copyIDs(ids []uuid.UUID) []uuid.UUID { return append([]uuid.UUID{}, ids...) }

// --- items ---

type memItems struct{ m *memStore }

var _ repository.ItemRepository = memItems{}

func (r memItems) List(context.Context) ([]model.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.readErr != nil {
		return nil, r.m.readErr
	}
	var out []model.Item
	for _, id := range r.m.order {
		if it, ok := r.m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r memItems) GetByID(_ context.Context, id uuid.UUID) (*model.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.readErr != nil {
		return nil, r.m.readErr
	}
	it, ok := r.m.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &it, nil
}

func (r memItems) ListByOwner(_ context.Context, userID uuid.UUID) ([]model.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.readErr != nil {
		return nil, r.m.readErr
	}
	u, ok := r.m.users[userID]
	if !ok || len(u.Items) == 0 {
		return nil, errs.ErrOwnerItemsNotFound
	}
	var out []model.Item
	for _, id := range u.Items {
		if it, ok := r.m.items[id]; ok {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, errs.ErrOwnerItemsNotFound
	}
	return out, nil
}

func (r memItems) Create(_ context.Context, tx repository.Tx, in model.NewItem) (*model.Item, error) {
	t := tx.(*memTx)
	if r.m.itemCreateErr != nil {
		return nil, r.m.itemCreateErr
	}
	it := model.Item{ID: uuid.Must(uuid.NewV4()), ItemFields: in.ItemFields, Creator: in.Creator}
	t.staged = append(t.staged, func() {
		r.m.items[it.ID] = it
		r.m.order = append(r.m.order, it.ID)
	})
	return &it, nil
}

func (r memItems) Update(_ context.Context, id uuid.UUID, f model.ItemFields) (*model.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.itemUpdateErr != nil {
		return nil, r.m.itemUpdateErr
	}
	it, ok := r.m.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	it.ItemFields = f
	r.m.items[id] = it
	return &it, nil
}

func (r memItems) Delete(_ context.Context, tx repository.Tx, id uuid.UUID) error {
	t := tx.(*memTx)
	if r.m.itemDeleteErr != nil {
		return r.m.itemDeleteErr
	}
	t.staged = append(t.staged, func() { delete(r.m.items, id) })
	return nil
}

// --- users ---

type memUsers struct{ m *memStore }

var _ repository.UserRepository = memUsers{}

func (r memUsers) Create(_ context.Context, u *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.userSaveErr != nil {
		return r.m.userSaveErr
	}
	cp := *u
	cp.Items = copyIDs(u.Items)
	r.m.users[u.ID] = cp
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.readErr != nil {
		return nil, r.m.readErr
	}
	if r.m.ownerReadErr != nil {
		return nil, r.m.ownerReadErr
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	u.Items = copyIDs(u.Items)
	return &u, nil
}

func (r memUsers) Save(_ context.Context, tx repository.Tx, u *model.User) error {
	t := tx.(*memTx)
	if r.m.userSaveErr != nil {
		return r.m.userSaveErr
	}
	expected := u.Version
	cp := *u
	cp.Items = copyIDs(u.Items)
	cp.Version = expected + 1
	t.checks = append(t.checks, func() error {
		cur, ok := r.m.users[cp.ID]
		if !ok {
			return errs.ErrNotFound
		}
		if cur.Version != expected {
			return errs.ErrVersionConflict
		}
		return nil
	})
	t.staged = append(t.staged, func() { r.m.users[cp.ID] = cp })
	u.Version = cp.Version
	return nil
}

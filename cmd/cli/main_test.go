package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	u "github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	grpcserver "github.com/and161185/item-keeper/internal/server/grpc"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "item-keeper")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	require.Equal(t, base, cfgDir())
	require.Equal(t, filepath.Join(base, "user_id"), userIDPath())
}

func Test_saveLoadUserID(t *testing.T) {
	base := withTmpConfig(t)

	_, err := loadUserID()
	require.Error(t, err)

	require.NoError(t, saveUserID("abc-123\n"))
	got, err := loadUserID()
	require.NoError(t, err)
	require.Equal(t, "abc-123", got)

	_, err = os.Stat(filepath.Join(base, "user_id"))
	require.NoError(t, err)
}

func Test_loadTLS_Variants(t *testing.T) {
	t.Parallel()

	creds, err := loadTLS("", true, false)
	require.NoError(t, err)
	require.Equal(t, "insecure", creds.Info().SecurityProtocol)

	creds, err = loadTLS("", false, true)
	require.NoError(t, err)
	require.Equal(t, "tls", creds.Info().SecurityProtocol)

	creds, err = loadTLS("", false, false)
	require.NoError(t, err)
	require.NotNil(t, creds)

	tmp := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(tmp, []byte("not pem"), 0o600))
	creds, err = loadTLS(tmp, false, false)
	require.Error(t, err)
	require.Nil(t, creds)
}

func Test_printUsage_ListsCommands(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printUsage(&buf)
	for name := range commands {
		require.Contains(t, buf.String(), name)
	}
}

// memService backs both service interfaces for round-trip tests.
type memService struct {
	items map[u.UUID]model.Item
	users map[u.UUID]*model.User
}

func (m *memService) List(context.Context) ([]model.Item, error) {
	out := []model.Item{}
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memService) Get(_ context.Context, id u.UUID) (*model.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &it, nil
}

func (m *memService) ListByOwner(_ context.Context, userID u.UUID) ([]model.Item, error) {
	usr, ok := m.users[userID]
	if !ok || len(usr.Items) == 0 {
		return nil, errs.ErrOwnerItemsNotFound
	}
	out := make([]model.Item, 0, len(usr.Items))
	for _, id := range usr.Items {
		out = append(out, m.items[id])
	}
	return out, nil
}

func (m *memService) Create(_ context.Context, in model.NewItem) (*model.Item, error) {
	usr, ok := m.users[in.Creator]
	if !ok {
		return nil, errs.ErrOwnerNotFound
	}
	it := model.Item{ID: u.Must(u.NewV4()), ItemFields: in.ItemFields, Creator: in.Creator}
	m.items[it.ID] = it
	usr.AppendItem(it.ID)
	return &it, nil
}

func (m *memService) Update(_ context.Context, id u.UUID, f model.ItemFields) (*model.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	it.ItemFields = f
	m.items[id] = it
	return &it, nil
}

func (m *memService) Delete(_ context.Context, id u.UUID) error {
	it, ok := m.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	delete(m.items, id)
	if usr, ok := m.users[it.Creator]; ok {
		usr.RemoveItem(id)
	}
	return nil
}

type memUsers struct{ *memService }

func (m memUsers) Create(_ context.Context, name string) (*model.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.ErrValidation
	}
	usr := &model.User{ID: u.Must(u.NewV4()), Name: name, Items: []u.UUID{}}
	m.users[usr.ID] = usr
	cp := *usr
	return &cp, nil
}

func (m memUsers) Get(_ context.Context, id u.UUID) (*model.User, error) {
	usr, ok := m.users[id]
	if !ok {
		return nil, errs.ErrOwnerNotFound
	}
	cp := *usr
	return &cp, nil
}

func startServer(t *testing.T) *grpcserver.Client {
	t.Helper()
	mem := &memService{items: map[u.UUID]model.Item{}, users: map[u.UUID]*model.User{}}
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	grpcserver.Register(gs, grpcserver.New(mem, memUsers{mem}, nil))
	go func() { _ = gs.Serve(lis) }()
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return grpcserver.NewClient(cc)
}

func runJSON(t *testing.T, cl *grpcserver.Client, v any, name string, args ...string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), cl, &buf, name, args))
	require.NoError(t, json.Unmarshal(buf.Bytes(), v), buf.String())
}

func Test_Commands_RoundTrip(t *testing.T) {
	withTmpConfig(t)
	cl := startServer(t)
	ctx := context.Background()

	var usr model.User
	runJSON(t, cl, &usr, "user-add", "-name", "u1")
	require.Equal(t, "u1", usr.Name)
	saved, err := loadUserID()
	require.NoError(t, err)
	require.Equal(t, usr.ID.String(), saved)

	var it model.Item
	runJSON(t, cl, &it, "add", "-title", "Coffee", "-category", "Food", "-cost", "4", "-date", "2024-01-01")
	require.Equal(t, usr.ID, it.Creator)
	require.Equal(t, 4.0, it.Cost)

	var got model.Item
	runJSON(t, cl, &got, "get", "-id", it.ID.String())
	require.Equal(t, it, got)

	var list []model.Item
	runJSON(t, cl, &list, "list")
	require.Equal(t, []model.Item{it}, list)

	runJSON(t, cl, &list, "by-user")
	require.Equal(t, []model.Item{it}, list)

	var fetched model.User
	runJSON(t, cl, &fetched, "user")
	require.Equal(t, []u.UUID{it.ID}, fetched.Items)

	var edited model.Item
	runJSON(t, cl, &edited, "edit", "-id", it.ID.String(), "-title", "Tea", "-category", "Food", "-cost", "3", "-date", "2024-01-02")
	require.Equal(t, "Tea", edited.Title)
	require.Equal(t, usr.ID, edited.Creator)

	var buf bytes.Buffer
	require.NoError(t, run(ctx, cl, &buf, "rm", []string{"-id", it.ID.String()}))
	require.Equal(t, "Deleted item.\n", buf.String())

	err = run(ctx, cl, &buf, "get", []string{"-id", it.ID.String()})
	require.Equal(t, codes.NotFound, status.Code(err))

	err = run(ctx, cl, &buf, "by-user", nil)
	require.Equal(t, codes.NotFound, status.Code(err))
}

func Test_Commands_BadArguments(t *testing.T) {
	withTmpConfig(t)
	cl := startServer(t)
	ctx := context.Background()
	var buf bytes.Buffer

	require.ErrorIs(t, run(ctx, cl, &buf, "nope", nil), errUsage)
	require.ErrorIs(t, run(ctx, cl, &buf, "get", nil), errUsage)
	require.ErrorIs(t, run(ctx, cl, &buf, "rm", []string{"-id", "not-a-uuid"}), errUsage)
	require.ErrorIs(t, run(ctx, cl, &buf, "add", []string{"-title", "x"}), errUsage)
	require.ErrorIs(t, run(ctx, cl, &buf, "edit", []string{"-bogus"}), errUsage)

	err := run(ctx, cl, &buf, "add", []string{"-creator", u.Must(u.NewV4()).String(), "-title", "x"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	err = run(ctx, cl, &buf, "user-add", nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

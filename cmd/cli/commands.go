package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	u "github.com/gofrs/uuid/v5"

	"github.com/and161185/item-keeper/internal/model"
	grpcserver "github.com/and161185/item-keeper/internal/server/grpc"
)

type command func(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error

var commands = map[string]command{
	"user-add": cmdUserAdd,
	"user":     cmdUser,
	"list":     cmdList,
	"get":      cmdGet,
	"by-user":  cmdByUser,
	"add":      cmdAdd,
	"edit":     cmdEdit,
	"rm":       cmdRemove,
}

var errUsage = errors.New("bad arguments")

func run(ctx context.Context, cl *grpcserver.Client, out io.Writer, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	return cmd(ctx, cl, out, args)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(raw, name string) (u.UUID, error) {
	if raw == "" {
		return u.Nil, fmt.Errorf("%w: need -%s", errUsage, name)
	}
	id, err := u.FromString(raw)
	if err != nil {
		return u.Nil, fmt.Errorf("%w: bad -%s: %v", errUsage, name, err)
	}
	return id, nil
}

// idOrDefault falls back to the user saved by user-add.
func idOrDefault(raw, name string) (u.UUID, error) {
	if raw == "" {
		saved, err := loadUserID()
		if err != nil {
			return u.Nil, fmt.Errorf("%w: need -%s (no default user; run user-add)", errUsage, name)
		}
		raw = saved
	}
	return parseID(raw, name)
}

type itemFlags struct {
	title, category, date string
	cost                  float64
}

func (f *itemFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "item title")
	fs.StringVar(&f.category, "category", "", "item category")
	fs.Float64Var(&f.cost, "cost", 0, "item cost")
	fs.StringVar(&f.date, "date", "", "item date")
}

func (f *itemFlags) fields() model.ItemFields {
	return model.ItemFields{Title: f.title, Category: f.category, Cost: f.cost, Date: f.date}
}

func cmdUserAdd(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error {
	fs := newFlagSet("user-add")
	name := fs.String("name", "", "user name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	usr, err := cl.CreateUser(ctx, *name)
	if err != nil {
		return err
	}
	if err := saveUserID(usr.ID.String()); err != nil {
		return fmt.Errorf("save default user: %w", err)
	}
	return printJSON(out, usr)
}

func cmdUser(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error {
	fs := newFlagSet("user")
	raw := fs.String("id", "", "user id (uuid)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := idOrDefault(*raw, "id")
	if err != nil {
		return err
	}
	usr, err := cl.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, usr)
}

func cmdList(ctx context.Context, cl *grpcserver.Client, out io.Writer, _ []string) error {
	items, err := cl.ListItems(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, items)
}

func cmdGet(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error {
	fs := newFlagSet("get")
	raw := fs.String("id", "", "item id (uuid)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := parseID(*raw, "id")
	if err != nil {
		return err
	}
	it, err := cl.GetItem(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, it)
}

func cmdByUser(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error {
	fs := newFlagSet("by-user")
	raw := fs.String("id", "", "user id (uuid)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := idOrDefault(*raw, "id")
	if err != nil {
		return err
	}
	items, err := cl.ListItemsByUser(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, items)
}

func cmdAdd(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error {
	fs := newFlagSet("add")
	var f itemFlags
	f.bind(fs)
	raw := fs.String("creator", "", "creator user id (uuid)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	creator, err := idOrDefault(*raw, "creator")
	if err != nil {
		return err
	}
	it, err := cl.CreateItem(ctx, model.NewItem{ItemFields: f.fields(), Creator: creator})
	if err != nil {
		return err
	}
	return printJSON(out, it)
}

func cmdEdit(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error {
	fs := newFlagSet("edit")
	var f itemFlags
	f.bind(fs)
	raw := fs.String("id", "", "item id (uuid)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := parseID(*raw, "id")
	if err != nil {
		return err
	}
	it, err := cl.UpdateItem(ctx, id, f.fields())
	if err != nil {
		return err
	}
	return printJSON(out, it)
}

func cmdRemove(ctx context.Context, cl *grpcserver.Client, out io.Writer, args []string) error {
	fs := newFlagSet("rm")
	raw := fs.String("id", "", "item id (uuid)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := parseID(*raw, "id")
	if err != nil {
		return err
	}
	msg, err := cl.DeleteItem(ctx, id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, msg)
	return err
}

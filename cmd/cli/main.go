// Command ik is a CLI client for the item-keeper service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	insecurecreds "google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	grpcserver "github.com/and161185/item-keeper/internal/server/grpc"
)

// ---- local state ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "item-keeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "item-keeper")
}

func userIDPath() string { return filepath.Join(cfgDir(), "user_id") }

// saveUserID remembers the default creator for add and by-user.
func saveUserID(uid string) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(userIDPath(), []byte(strings.TrimSpace(uid)), 0o600)
}

func loadUserID() (string, error) {
	b, err := os.ReadFile(userIDPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ---- grpc dial ----

func loadTLS(caPath string, plaintext, insecure bool) (credentials.TransportCredentials, error) {
	if plaintext {
		return insecurecreds.NewCredentials(), nil
	}
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(ctx context.Context, addr string, creds credentials.TransportCredentials) (*grpc.ClientConn, *grpcserver.Client, error) {
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, err
	}
	return cc, grpcserver.NewClient(cc), nil
}

func usage() {
	printUsage(os.Stderr)
	os.Exit(2)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `ik CLI
Usage:
  ik -addr HOST:PORT [-plaintext | -cacert file | -insecure] <cmd> [args]

Commands:
  version
  user-add  -name <name>                      (saves the id as default user)
  user      [-id <uuid>]
  list
  get       -id <uuid>
  by-user   [-id <uuid>]
  add       -title <t> -category <c> -cost <n> -date <d> [-creator <uuid>]
  edit      -id <uuid> -title <t> -category <c> -cost <n> -date <d>
  rm        -id <uuid>
`)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands over a single connection.
func main() {
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	plaintext := flag.Bool("plaintext", false, "no TLS")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-command timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	if cmd == "version" {
		fmt.Printf("ik %s (%s)\n", version, buildDate)
		return
	}
	if _, ok := commands[cmd]; !ok {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	creds, err := loadTLS(*caPath, *plaintext, *insecure)
	if err != nil {
		fail(err)
	}
	cc, cl, err := dial(ctx, *addr, creds)
	if err != nil {
		fail(err)
	}
	defer cc.Close()

	if err := run(ctx, cl, os.Stdout, cmd, flag.Args()[1:]); err != nil {
		_ = cc.Close()
		fail(err)
	}
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

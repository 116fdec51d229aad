//go:build integration

package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

var testPool *pgxpool.Pool

// findProjectRoot walks up until it finds go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root containing go.mod")
}

// startContainer runs a throwaway postgres and returns its DSN and a stop func.
func startContainer() (string, func(), error) {
	const (
		dbName = "paywall_test"
		dbUser = "paywall"
		dbPass = "paywall"
	)
	cmd := exec.Command("docker", "run", "-d", "--rm",
		"--network", "host",
		"-e", "POSTGRES_DB="+dbName,
		"-e", "POSTGRES_USER="+dbUser,
		"-e", "POSTGRES_PASSWORD="+dbPass,
		"postgres:16",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", nil, fmt.Errorf("start postgres container (is docker running?): %w", err)
	}
	id := strings.TrimSpace(out.String())
	if len(id) > 12 {
		id = id[:12]
	}
	stop := func() {
		if err := exec.Command("docker", "stop", id).Run(); err != nil {
			log.Printf("could not stop postgres container %s: %v", id, err)
		}
	}
	return fmt.Sprintf("postgres://%s:%s@localhost:5432/%s?sslmode=disable", dbUser, dbPass, dbName), stop, nil
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	// PAYWALL_TEST_DATABASE_URL points at an existing database and skips docker.
	dsn := os.Getenv("PAYWALL_TEST_DATABASE_URL")
	stop := func() {}
	if dsn == "" {
		var err error
		dsn, stop, err = startContainer()
		if err != nil {
			log.Fatal(err)
		}
	}

	var err error
	for i := 0; i < 15; i++ {
		testPool, err = Connect(ctx, dsn)
		if err == nil {
			break
		}
		log.Printf("waiting for database (attempt %d/15): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		stop()
		log.Fatalf("unable to connect to test database: %v", err)
	}

	root, err := findProjectRoot()
	if err != nil {
		stop()
		log.Fatal(err)
	}
	schema, err := os.ReadFile(filepath.Join(root, "deploy", "postgres", "init.sql"))
	if err != nil {
		stop()
		log.Fatalf("read init.sql: %v", err)
	}
	if _, err := testPool.Exec(ctx, string(schema)); err != nil {
		stop()
		log.Fatalf("apply schema: %v", err)
	}

	code := m.Run()

	testPool.Close()
	stop()
	os.Exit(code)
}

func cleanup(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `TRUNCATE payments, subscriptions`); err != nil {
		t.Fatalf("failed to clean up database: %v", err)
	}
}

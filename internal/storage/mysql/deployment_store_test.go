package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"Web3-Scaffold/internal/deployments"
	xerrors "Web3-Scaffold/internal/errors"
)

var recordColumns = []string{"network", "contract", "deployed_to", "deployer", "transaction_hash", "block_number"}

func TestDeploymentStoreLookup(t *testing.T) {
	t.Parallel()

	db, script := openScript(t,
		expectQuery(selectDeploymentSQL, recordColumns,
			[]driver.Value{"goerli", "ExampleNFT", "0x9A676e781A523b5d0C0e43731313A708CB607508", "", "", int64(9812345)}),
		expectQuery(selectDeploymentSQL, recordColumns),
	)

	store := &DeploymentStore{db: db}
	rec, err := store.Lookup(context.Background(), "goerli", "ExampleNFT")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rec.BlockNumber != 9812345 || rec.Network != "goerli" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if args := script.argsAt(0); len(args) != 2 || args[0] != "goerli" || args[1] != "ExampleNFT" {
		t.Fatalf("unexpected lookup args: %v", args)
	}

	_, err = store.Lookup(context.Background(), "sepolia", "ExampleNFT")
	if !errors.Is(err, deployments.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if xerrors.CodeOf(err) != xerrors.CodeNotFound {
		t.Fatalf("unexpected code %s", xerrors.CodeOf(err))
	}
}

func TestDeploymentStoreLookupRejectsBadAddress(t *testing.T) {
	t.Parallel()

	db, _ := openScript(t, expectQuery(selectDeploymentSQL, recordColumns,
		[]driver.Value{"goerli", "ExampleNFT", "0xdead", "", "", int64(0)}))

	_, err := (&DeploymentStore{db: db}).Lookup(context.Background(), "goerli", "ExampleNFT")
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestDeploymentStoreSave(t *testing.T) {
	t.Parallel()

	db, script := openScript(t,
		expectExec(upsertDeploymentSQL),
		expectExecErr(upsertDeploymentSQL, errors.New("connection reset")),
	)

	store := &DeploymentStore{db: db, now: func() time.Time { return time.Unix(1700000000, 0) }}
	rec := deployments.Record{
		Network:    "foundry",
		Contract:   "ExampleNFT",
		DeployedTo: "0x5fbdb2315678afecb367f032d93f642f64180aa3",
	}
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	args := script.argsAt(0)
	if len(args) != 8 || args[2] != "0x5FbDB2315678afecb367f032d93F642f64180aa3" || args[6] != int64(1700000000) {
		t.Fatalf("unexpected save args: %v", args)
	}
	if err := store.Save(context.Background(), rec); xerrors.CodeOf(err) != xerrors.CodeStorageFailure {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if err := store.Save(context.Background(), deployments.Record{Network: "foundry"}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestDeploymentStoreList(t *testing.T) {
	t.Parallel()

	db, _ := openScript(t, expectQuery(listDeploymentsSQL, recordColumns,
		[]driver.Value{"foundry", "ExampleNFT", "0x5FbDB2315678afecb367f032d93F642f64180aa3", "", "", int64(1)},
		[]driver.Value{"goerli", "ExampleNFT", "0x9A676e781A523b5d0C0e43731313A708CB607508", "", "", int64(2)},
	))

	list, err := (&DeploymentStore{db: db}).List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[1].Network != "goerli" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestDeploymentStoreRunMigrations(t *testing.T) {
	t.Parallel()

	db, _ := openScript(t,
		expectExec(createSchemaMigrations),
		expectQuery(`SELECT version FROM schema_migrations`, []string{"version"}),
		expectBegin(),
		expectExec(readMigrationStatement()),
		expectExec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
		expectCommit(),
	)

	if err := (&DeploymentStore{db: db}).runMigrations(context.Background()); err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
}

func TestDeploymentStoreSkipsAppliedMigrations(t *testing.T) {
	t.Parallel()

	db, _ := openScript(t,
		expectExec(createSchemaMigrations),
		expectQuery(`SELECT version FROM schema_migrations`, []string{"version"}, []driver.Value{"0001"}),
	)

	if err := (&DeploymentStore{db: db}).runMigrations(context.Background()); err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
}

func TestOpenDatabaseRejectsBadDSN(t *testing.T) {
	if _, err := openDatabase(context.Background(), Config{}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for empty dsn, got %v", err)
	}
	if _, err := openDatabase(context.Background(), Config{DSN: "not a dsn"}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for malformed dsn, got %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	cases := map[string]string{
		"0001_create_contract_deployments.sql": "0001",
		"0002.sql":                             "0002",
		"plain":                                "plain",
	}
	for name, want := range cases {
		if got := migrationVersion(name); got != want {
			t.Fatalf("migrationVersion(%q) = %q, want %q", name, got, want)
		}
	}
}

func readMigrationStatement() string {
	content, err := fs.ReadFile(embeddedMigrations, "0001_create_contract_deployments.sql")
	if err != nil {
		panic(fmt.Sprintf("failed to read migration: %v", err))
	}
	statements := splitStatements(string(content))
	if len(statements) != 1 {
		panic("expected exactly one statement in migration")
	}
	return statements[0]
}

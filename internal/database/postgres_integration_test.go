//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"nextfinance/internal/database"
	"nextfinance/internal/logger"
	"nextfinance/internal/models"
	"nextfinance/internal/services"
	"nextfinance/internal/testutil"
)

// startPostgres runs a throwaway Postgres and returns a migrated Manager.
func startPostgres(t *testing.T) *database.Manager {
	t.Helper()
	logger.Init("test")
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("nextfinance"),
		postgres.WithUsername("nextfinance"),
		postgres.WithPassword("nextfinance"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	manager, err := database.NewManager(&database.Config{
		Driver:        database.DriverPostgres,
		Host:          host,
		Port:          port.Port(),
		User:          "nextfinance",
		Password:      "nextfinance",
		DBName:        "nextfinance",
		SSLMode:       "disable",
		MigrationsURL: "file://../../migrations",
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })

	if err := manager.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return manager
}

func TestPostgres_Migrations(t *testing.T) {
	manager := startPostgres(t)

	version, dirty, err := manager.MigrationVersion()
	testutil.AssertNoError(t, err)
	if version != 1 || dirty {
		t.Fatalf("expected clean version 1, got %d (dirty=%v)", version, dirty)
	}

	// Re-running is a no-op.
	testutil.AssertNoError(t, manager.RunMigrations())

	testutil.AssertNoError(t, manager.RollbackMigrations(1))
	version, _, err = manager.MigrationVersion()
	testutil.AssertNoError(t, err)
	if version != 0 {
		t.Errorf("expected version 0 after rollback, got %d", version)
	}
	if manager.DB().Migrator().HasTable("transactions") {
		t.Error("expected transactions table to be dropped")
	}
}

func TestPostgres_UniqueViolations(t *testing.T) {
	db := startPostgres(t).DB()

	t.Run("duplicate_email", func(t *testing.T) {
		testutil.CreateTestUserWithEmail(t, db, "dup@test.com")
		err := db.Create(&models.User{Email: "dup@test.com", Password: "x"}).Error
		if !database.IsUniqueViolation(err) {
			t.Fatalf("expected unique violation, got %v", err)
		}
	})

	t.Run("second_default_account", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		first := testutil.CreateTestAccount(t, db, user.ID)
		if !first.IsDefault {
			t.Fatal("expected fixture account to be default")
		}
		err := db.Create(&models.Account{
			UserID:    user.ID,
			Name:      "Second",
			Type:      models.AccountTypeSavings,
			IsDefault: true,
		}).Error
		if !database.IsUniqueViolation(err) {
			t.Fatalf("expected partial unique index to reject a second default, got %v", err)
		}
	})
}

func TestPostgres_TransactionCommit(t *testing.T) {
	db := startPostgres(t).DB()
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccountWithBalance(t, db, user.ID, "100.00")
	svc := services.NewTransactionService(db, nil)

	created, err := svc.CreateTransaction(user.ID, services.TransactionInput{
		AccountID: account.ID,
		Type:      models.TransactionTypeExpense,
		Amount:    testutil.Dec("0.10"),
		Date:      time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Category:  "groceries",
	})
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "99.90")

	_, err = svc.UpdateTransaction(user.ID, created.ID, services.TransactionInput{
		AccountID: account.ID,
		Type:      models.TransactionTypeIncome,
		Amount:    testutil.Dec("0.20"),
		Date:      created.Date,
		Category:  "salary",
	})
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "100.20")

	testutil.AssertNoError(t, svc.DeleteTransaction(user.ID, created.ID))
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "100.00")

	_, err = svc.CreateTransaction(testutil.CreateTestUser(t, db).ID, services.TransactionInput{
		AccountID: account.ID,
		Type:      models.TransactionTypeExpense,
		Amount:    testutil.Dec("1.00"),
		Category:  "groceries",
	})
	testutil.AssertAppError(t, err, "UNAUTHORIZED")
	if n := testutil.CountTransactions(t, db, account.ID); n != 0 {
		t.Errorf("expected no live transactions, got %d", n)
	}
}

package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"nextfinance/internal/models"
	"nextfinance/internal/notify"
	"nextfinance/internal/testutil"
)

// recordingSender collects queued emails instead of sending them. Unless
// undeliverable is set, each email counts as delivered as soon as it is queued.
type recordingSender struct {
	mu            sync.Mutex
	sent          map[string][]notify.Email
	err           error
	undeliverable bool
}

func (r *recordingSender) Queue(to string, email notify.Email, onDelivered func()) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	if r.sent == nil {
		r.sent = make(map[string][]notify.Email)
	}
	r.sent[to] = append(r.sent[to], email)
	r.mu.Unlock()

	if !r.undeliverable && onDelivered != nil {
		onDelivered()
	}
	return nil
}

func TestGetBudgetProgress(t *testing.T) {
	t.Run("current_month_default_account_expenses_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		def := testutil.CreateTestAccount(t, db, user.ID)
		savings := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestBudget(t, db, user.ID, "1000.00")

		now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
		testutil.CreateTestTransactionAt(t, db, user.ID, def.ID, models.TransactionTypeExpense, "100.10", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
		testutil.CreateTestTransactionAt(t, db, user.ID, def.ID, models.TransactionTypeExpense, "200.20", time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC))
		// ignored: income, other account, previous and next month
		testutil.CreateTestTransactionAt(t, db, user.ID, def.ID, models.TransactionTypeIncome, "5000.00", now)
		testutil.CreateTestTransactionAt(t, db, user.ID, savings.ID, models.TransactionTypeExpense, "50.00", now)
		testutil.CreateTestTransactionAt(t, db, user.ID, def.ID, models.TransactionTypeExpense, "70.00", time.Date(2024, 4, 30, 23, 59, 0, 0, time.UTC))
		testutil.CreateTestTransactionAt(t, db, user.ID, def.ID, models.TransactionTypeExpense, "70.00", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

		svc := NewBudgetService(db, &recordingSender{}, 0, nil).(*budgetService)
		svc.now = func() time.Time { return now }

		progress, err := svc.GetBudgetProgress(user.ID)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, progress.CurrentExpenses, "300.30")
		testutil.AssertDecimal(t, *progress.Remaining, "699.70")
		if progress.PercentageUsed < 30.02 || progress.PercentageUsed > 30.04 {
			t.Errorf("expected ~30.03%%, got %f", progress.PercentageUsed)
		}
	})

	t.Run("no_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "12.00")

		progress, err := NewBudgetService(db, &recordingSender{}, 0, nil).GetBudgetProgress(user.ID)
		testutil.AssertNoError(t, err)

		if progress.Budget != nil || progress.Remaining != nil || progress.PercentageUsed != 0 {
			t.Errorf("expected empty progress, got %+v", progress)
		}
		testutil.AssertDecimal(t, progress.CurrentExpenses, "12.00")
	})

	t.Run("no_accounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudget(t, db, user.ID, "10.00")

		progress, err := NewBudgetService(db, &recordingSender{}, 0, nil).GetBudgetProgress(user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, progress.CurrentExpenses, "0")
		testutil.AssertDecimal(t, *progress.Remaining, "10.00")
	})
}

func TestUpsertBudget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db, &recordingSender{}, 0, nil)
	user := testutil.CreateTestUser(t, db)

	t.Run("creates_then_updates", func(t *testing.T) {
		created, err := svc.UpsertBudget(user.ID, testutil.Dec("500.00"))
		testutil.AssertNoError(t, err)
		updated, err := svc.UpsertBudget(user.ID, testutil.Dec("750.25"))
		testutil.AssertNoError(t, err)

		if created.ID != updated.ID {
			t.Error("expected the same budget row to be updated")
		}
		var budgets []models.Budget
		db.Where("user_id = ?", user.ID).Find(&budgets)
		if len(budgets) != 1 {
			t.Fatalf("expected one budget, got %d", len(budgets))
		}
		testutil.AssertDecimal(t, budgets[0].Amount, "750.25")
	})

	t.Run("rejects_non_positive", func(t *testing.T) {
		_, err := svc.UpsertBudget(user.ID, testutil.Dec("0"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		_, err = svc.UpsertBudget(user.ID, testutil.Dec("10.999"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestSendBudgetAlerts(t *testing.T) {
	now := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)

	setup := func(t *testing.T, budget, spent string) (*recordingSender, BudgetServicer, *models.User, *models.Budget) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		b := testutil.CreateTestBudget(t, db, user.ID, budget)
		testutil.CreateTestTransactionAt(t, db, user.ID, account.ID, models.TransactionTypeExpense, spent, now.AddDate(0, 0, -1))

		sender := &recordingSender{}
		return sender, NewBudgetService(db, sender, 80, nil), user, b
	}

	t.Run("alerts_over_threshold_once_per_month", func(t *testing.T) {
		sender, svc, user, _ := setup(t, "1000.00", "850.00")

		run, err := svc.SendBudgetAlerts(now)
		testutil.AssertNoError(t, err)
		if run.Checked != 1 || run.AlertsSent != 1 {
			t.Errorf("unexpected run %+v", run)
		}

		emails := sender.sent[user.Email]
		if len(emails) != 1 {
			t.Fatalf("expected one email, got %d", len(emails))
		}
		alert, ok := emails[0].(notify.BudgetAlert)
		if !ok {
			t.Fatalf("expected BudgetAlert, got %T", emails[0])
		}
		if alert.UserName != "Test User" || alert.Percentage() != "85.0" {
			t.Errorf("unexpected alert %+v", alert)
		}
		testutil.AssertDecimal(t, alert.Remaining(), "150.00")

		run, err = svc.SendBudgetAlerts(now.Add(time.Hour))
		testutil.AssertNoError(t, err)
		if run.AlertsSent != 0 || len(sender.sent[user.Email]) != 1 {
			t.Error("expected no second alert in the same month")
		}
	})

	t.Run("alerts_again_next_month", func(t *testing.T) {
		sender, svc, user, _ := setup(t, "100.00", "90.00")

		_, err := svc.SendBudgetAlerts(now)
		testutil.AssertNoError(t, err)

		// The May expense does not count in June.
		run, err := svc.SendBudgetAlerts(now.AddDate(0, 1, 0))
		testutil.AssertNoError(t, err)
		if run.AlertsSent != 0 {
			t.Errorf("expected no June alert without June spending, got %d", run.AlertsSent)
		}
		if len(sender.sent[user.Email]) != 1 {
			t.Errorf("expected one email total, got %d", len(sender.sent[user.Email]))
		}
	})

	t.Run("under_threshold", func(t *testing.T) {
		sender, svc, _, _ := setup(t, "1000.00", "799.99")

		run, err := svc.SendBudgetAlerts(now)
		testutil.AssertNoError(t, err)
		if run.AlertsSent != 0 || len(sender.sent) != 0 {
			t.Errorf("expected no alerts, got %+v", run)
		}
	})

	t.Run("queue_failure_does_not_mark_sent", func(t *testing.T) {
		sender, svc, _, _ := setup(t, "100.00", "100.00")
		sender.err = errors.New("queue full")

		run, err := svc.SendBudgetAlerts(now)
		testutil.AssertNoError(t, err)
		if run.AlertsSent != 0 {
			t.Errorf("expected 0 sent, got %d", run.AlertsSent)
		}

		sender.err = nil
		run, err = svc.SendBudgetAlerts(now)
		testutil.AssertNoError(t, err)
		if run.AlertsSent != 1 {
			t.Errorf("expected retry to send, got %d", run.AlertsSent)
		}
	})

	t.Run("undelivered_alert_is_retried", func(t *testing.T) {
		sender, svc, user, b := setup(t, "100.00", "100.00")
		sender.undeliverable = true
		db := svc.(*budgetService).db

		_, err := svc.SendBudgetAlerts(now)
		testutil.AssertNoError(t, err)
		if reloaded := testutil.ReloadBudget(t, db, b.ID); reloaded.LastAlertSent != nil {
			t.Fatalf("undelivered alert must not be recorded, got %v", reloaded.LastAlertSent)
		}

		sender.undeliverable = false
		run, err := svc.SendBudgetAlerts(now.Add(time.Hour))
		testutil.AssertNoError(t, err)
		if run.AlertsSent != 1 || len(sender.sent[user.Email]) != 2 {
			t.Errorf("expected the alert to be sent again, got run %+v and %d emails", run, len(sender.sent[user.Email]))
		}

		reloaded := testutil.ReloadBudget(t, db, b.ID)
		if reloaded.LastAlertSent == nil || !reloaded.LastAlertSent.Equal(now.Add(time.Hour)) {
			t.Errorf("expected delivery recorded at %s, got %v", now.Add(time.Hour), reloaded.LastAlertSent)
		}
	})
}

func TestAlertedThisMonth(t *testing.T) {
	now := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	sameMonth := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(2023, 5, 20, 0, 0, 0, 0, time.UTC)

	if alertedThisMonth(nil, now) {
		t.Error("nil must not count as alerted")
	}
	if !alertedThisMonth(&sameMonth, now) {
		t.Error("expected same month to count")
	}
	if alertedThisMonth(&lastYear, now) {
		t.Error("same month last year must not count")
	}
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func sampleAlert() BudgetAlert {
	return BudgetAlert{
		UserName:       "Jane Doe",
		PercentageUsed: 85.26,
		BudgetAmount:   decimal.RequireFromString("1000"),
		TotalExpenses:  decimal.RequireFromString("852.50"),
	}
}

func TestRender_BudgetAlert(t *testing.T) {
	msg, err := Render("jane@example.com", sampleAlert())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if msg.Subject != "Budget Alert" || msg.To != "jane@example.com" {
		t.Errorf("unexpected envelope: %+v", msg)
	}
	for _, want := range []string{"Hello Jane Doe", "85.3%", "$1000.00", "$852.50", "$147.50"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestRender_EscapesUserName(t *testing.T) {
	alert := sampleAlert()
	alert.UserName = "<script>x</script>"

	msg, err := Render("jane@example.com", alert)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("user name must be HTML-escaped")
	}
}

func TestResendMailer_Send(t *testing.T) {
	var got struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("re_key", "NextFinance App <onboarding@resend.dev>", srv.Client()).WithBaseURL(srv.URL)
	if err != nil {
		t.Fatalf("WithBaseURL: %v", err)
	}
	err = m.Send(context.Background(), Message{To: "jane@example.com", Subject: "Budget Alert", HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if path != "/emails" {
		t.Errorf("unexpected path %q", path)
	}
	if auth != "Bearer re_key" {
		t.Errorf("unexpected Authorization header %q", auth)
	}
	if got.From != "NextFinance App <onboarding@resend.dev>" || len(got.To) != 1 || got.To[0] != "jane@example.com" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestResendMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("re_key", "bad", srv.Client()).WithBaseURL(srv.URL)
	if err != nil {
		t.Fatalf("WithBaseURL: %v", err)
	}
	err = m.Send(context.Background(), Message{To: "jane@example.com"})
	if err == nil || !strings.Contains(err.Error(), "invalid from") {
		t.Fatalf("expected status error, got %v", err)
	}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotifier_QueueAndClose(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(mailer, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		if err := n.Queue("jane@example.com", sampleAlert(), nil); err != nil {
			t.Fatalf("Queue: %v", err)
		}
	}
	n.Close()

	if len(mailer.sent) != 3 {
		t.Errorf("expected 3 delivered messages after Close, got %d", len(mailer.sent))
	}
	if err := n.Queue("jane@example.com", sampleAlert(), nil); err != ErrClosed {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
	n.Close()
}

type failingMailer struct{}

func (failingMailer) Send(context.Context, Message) error {
	return errors.New("provider unavailable")
}

func TestNotifier_DeliveryCallback(t *testing.T) {
	var delivered atomic.Int32

	ok := NewNotifier(&recordingMailer{}, zap.NewNop().Sugar())
	if err := ok.Queue("jane@example.com", sampleAlert(), func() { delivered.Add(1) }); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	ok.Close()
	if delivered.Load() != 1 {
		t.Fatalf("expected callback after delivery, got %d", delivered.Load())
	}

	failing := NewNotifier(failingMailer{}, zap.NewNop().Sugar())
	if err := failing.Queue("jane@example.com", sampleAlert(), func() { delivered.Add(1) }); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	failing.Close()
	if delivered.Load() != 1 {
		t.Errorf("callback must not run when delivery fails, got %d", delivered.Load())
	}
}

func TestNotifier_RejectsMalformedAddress(t *testing.T) {
	n := NewNotifier(&recordingMailer{}, zap.NewNop().Sugar())
	defer n.Close()

	if err := n.Queue("not-an-email", sampleAlert(), nil); err == nil {
		t.Error("expected malformed address to be rejected")
	}
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(zap.NewNop().Sugar())
	if err := m.Send(context.Background(), Message{To: "jane@example.com"}); err != nil {
		t.Errorf("LogMailer should never fail, got %v", err)
	}
}

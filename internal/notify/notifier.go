package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/badoux/checkmail"
	"go.uber.org/zap"
)

const (
	queueSize   = 100
	sendTimeout = 10 * time.Second
)

// ErrClosed is returned when queueing on a closed Notifier.
var ErrClosed = errors.New("notifier is closed")

// Sender queues templated email for delivery. A non-nil onDelivered runs
// once the provider has accepted the message and never runs if delivery fails.
type Sender interface {
	Queue(to string, email Email, onDelivered func()) error
}

type envelope struct {
	msg         Message
	onDelivered func()
}

// Notifier renders email and hands it to a Mailer from a single background
// goroutine, so callers never wait on the provider.
type Notifier struct {
	mailer Mailer
	log    *zap.SugaredLogger
	queue  chan envelope

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewNotifier starts the delivery goroutine.
func NewNotifier(mailer Mailer, log *zap.SugaredLogger) *Notifier {
	n := &Notifier{
		mailer: mailer,
		log:    log,
		queue:  make(chan envelope, queueSize),
		done:   make(chan struct{}),
	}
	go n.worker()
	return n
}

// Queue renders email for to and schedules it for delivery. onDelivered runs
// on the delivery goroutine.
func (n *Notifier) Queue(to string, email Email, onDelivered func()) error {
	if err := checkmail.ValidateFormat(to); err != nil {
		return err
	}
	msg, err := Render(to, email)
	if err != nil {
		return err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrClosed
	}
	n.queue <- envelope{msg: msg, onDelivered: onDelivered}
	return nil
}

// Close stops accepting mail and waits for queued messages to be delivered.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) worker() {
	defer close(n.done)
	for env := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := n.mailer.Send(ctx, env.msg)
		cancel()
		if err != nil {
			n.log.Errorw("failed to send email", "to", env.msg.To, "subject", env.msg.Subject, "error", err)
			continue
		}
		if env.onDelivered != nil {
			env.onDelivered()
		}
	}
}

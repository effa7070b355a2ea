package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"wasteroute-backend/internal/models"
)

// ErrNotifierUnavailable is what a notifier returns when push messaging was never initialised
var ErrNotifierUnavailable = errors.New("push notifications unavailable: messaging client not initialised")

// Template names a push notification layout
type Template string

const (
	TemplateReportAssigned  Template = "report_assigned"  // to the reporter
	TemplatePickupAssigned  Template = "pickup_assigned"  // to the collector
	TemplateReportCollected Template = "report_collected" // to the reporter
	TemplateReportCancelled Template = "report_cancelled" // to the assigned collector
)

// Notifier delivers one push notification to one device token
type Notifier interface {
	Notify(ctx context.Context, token string, template Template, params map[string]string) error
}

// UnavailableNotifier stands in when no messaging credentials were loaded
type UnavailableNotifier struct{}

func (UnavailableNotifier) Notify(context.Context, string, Template, map[string]string) error {
	return ErrNotifierUnavailable
}

// LifecycleEvent is broadcast and published after a transition commits
type LifecycleEvent struct {
	Type        string              `json:"type"`
	ReportID    string              `json:"report_id"`
	Status      models.ReportStatus `json:"status"`
	ReporterID  string              `json:"reporter_id"`
	CollectorID string              `json:"collector_id,omitempty"`
	PickupLogID string              `json:"pickup_log_id,omitempty"`
	Timestamp   int64               `json:"timestamp"`
}

const (
	EventReportCreated   = "report.created"
	EventReportAssigned  = "report.assigned"
	EventPickupStarted   = "pickup.started"
	EventPickupCompleted = "pickup.completed"
	EventPickupFailed    = "pickup.failed"
	EventReportResolved  = "report.resolved"
	EventReportCancelled = "report.cancelled"
	EventReportReverted  = "report.reverted"
)

// Push is one templated notification addressed to a user's devices
type Push struct {
	UserID   string
	Template Template
	Params   map[string]string
}

type TokenSource interface {
	FCMTokensForUser(ctx context.Context, userID string) ([]string, error)
}

// Broadcaster pushes live updates to connected websocket clients
type Broadcaster interface {
	BroadcastToUser(userID string, data interface{})
	BroadcastToRole(role string, data interface{})
}

// EventPublisher forwards lifecycle events to a message broker
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, message interface{}) error
}

// Dispatcher fans lifecycle events out to push, websocket and broker
// consumers. Every delivery runs in the background: a failure is logged and
// never reaches the caller that triggered the transition.
type Dispatcher struct {
	notifier    Notifier
	tokens      TokenSource
	broadcaster Broadcaster
	publisher   EventPublisher
	timeout     time.Duration

	wg sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithBroadcaster(b Broadcaster) DispatcherOption {
	return func(d *Dispatcher) { d.broadcaster = b }
}

func WithEventPublisher(p EventPublisher) DispatcherOption {
	return func(d *Dispatcher) { d.publisher = p }
}

func WithDispatchTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func NewDispatcher(notifier Notifier, tokens TokenSource, opts ...DispatcherOption) *Dispatcher {
	if notifier == nil {
		notifier = UnavailableNotifier{}
	}
	d := &Dispatcher{
		notifier: notifier,
		tokens:   tokens,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Emit delivers the event and its pushes asynchronously
func (d *Dispatcher) Emit(event LifecycleEvent, pushes ...Push) {
	if d == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		d.broadcast(event)
		d.publish(ctx, event)
		for _, push := range pushes {
			d.push(ctx, push)
		}
	}()
}

// Wait blocks until every pending delivery has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) broadcast(event LifecycleEvent) {
	if d.broadcaster == nil {
		return
	}
	message := map[string]interface{}{
		"type": event.Type,
		"data": event,
	}
	d.broadcaster.BroadcastToUser(event.ReporterID, message)
	if event.CollectorID != "" {
		d.broadcaster.BroadcastToUser(event.CollectorID, message)
	}
	d.broadcaster.BroadcastToRole(string(models.RoleAdmin), message)
}

func (d *Dispatcher) publish(ctx context.Context, event LifecycleEvent) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishEvent(ctx, event.Type, event); err != nil {
		log.Printf("⚠️  Failed to publish %s for report %s: %v", event.Type, event.ReportID, err)
	}
}

func (d *Dispatcher) push(ctx context.Context, push Push) {
	if push.UserID == "" || d.tokens == nil {
		return
	}

	tokens, err := d.tokens.FCMTokensForUser(ctx, push.UserID)
	if err != nil {
		log.Printf("⚠️  Failed to load FCM tokens for user %s: %v", push.UserID, err)
		return
	}

	for _, token := range tokens {
		err := d.notifier.Notify(ctx, token, push.Template, push.Params)
		if errors.Is(err, ErrNotifierUnavailable) {
			log.Printf("⚠️  Skipping %s notification for user %s: %v", push.Template, push.UserID, err)
			return
		}
		if err != nil {
			log.Printf("❌ Failed to send %s notification to user %s: %v", push.Template, push.UserID, err)
		}
	}
}

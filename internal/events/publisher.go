package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reports-service/internal/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// Event subjects
const (
	ImportCompleted    = "report.import.completed"
	CategoryCreated    = "taxonomy.category.created"
	SubcategoryCreated = "taxonomy.subcategory.created"
)

const (
	StreamName     = "REPORT_EVENTS"
	publishTimeout = 5 * time.Second
)

// BaseEvent carries the envelope fields shared by every event
type BaseEvent struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func newBase(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Source:    "reports-service",
		Timestamp: time.Now().UTC(),
	}
}

// ImportCompletedEvent summarises a finished bulk import
type ImportCompletedEvent struct {
	BaseEvent
	RunID                string                   `json:"runId"`
	Strategy             models.DuplicateStrategy `json:"strategy"`
	FileName             string                   `json:"fileName"`
	Total                int                      `json:"total"`
	Inserted             int                      `json:"inserted"`
	Updated              int                      `json:"updated"`
	Skipped              int                      `json:"skipped"`
	Failed               int                      `json:"failed"`
	SuccessRate          float64                  `json:"successRate"`
	DurationSeconds      float64                  `json:"durationSeconds"`
	CategoriesCreated    int                      `json:"categoriesCreated"`
	SubcategoriesCreated int                      `json:"subcategoriesCreated"`
}

// TaxonomyEvent announces a category or subcategory created during an import
type TaxonomyEvent struct {
	BaseEvent
	CategoryID      string `json:"categoryId"`
	CategoryName    string `json:"categoryName"`
	CategorySlug    string `json:"categorySlug"`
	SubcategoryID   string `json:"subcategoryId,omitempty"`
	SubcategoryName string `json:"subcategoryName,omitempty"`
	SubcategorySlug string `json:"subcategorySlug,omitempty"`
}

// streamPublisher is the part of jetstream.JetStream the publisher needs
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends import and taxonomy events to JetStream. Publishing is
// best-effort: failures are logged and never reach the import.
type Publisher struct {
	nc     *nats.Conn
	js     streamPublisher
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the REPORT_EVENTS stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	log := logger.WithField("component", "events.publisher")

	nc, err := nats.Connect(natsURL,
		nats.Name("reports-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("Reconnected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("Disconnected from NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"report.>", "taxonomy.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to ensure REPORT_EVENTS stream")
	}

	return &Publisher{nc: nc, js: js, logger: log}, nil
}

func (p *Publisher) publish(ctx context.Context, subject, eventID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(eventID)); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
		return
	}
	p.logger.WithFields(logrus.Fields{"subject": subject, "event_id": eventID}).Debug("Published event")
}

// ImportCompleted publishes the run summary
func (p *Publisher) ImportCompleted(ctx context.Context, fileName string, result *models.ImportResult) {
	event := &ImportCompletedEvent{
		BaseEvent:            newBase(ImportCompleted),
		RunID:                result.RunID,
		Strategy:             result.Strategy,
		FileName:             fileName,
		Total:                result.Total,
		Inserted:             result.Inserted,
		Updated:              result.Updated,
		Skipped:              result.Skipped,
		Failed:               result.Failed,
		SuccessRate:          result.SuccessRate,
		DurationSeconds:      result.DurationSeconds,
		CategoriesCreated:    result.CategoriesCreated,
		SubcategoriesCreated: result.SubcategoriesCreated,
	}
	p.publish(ctx, ImportCompleted, event.EventID, event)
}

func (p *Publisher) CategoryCreated(ctx context.Context, category *models.Category) {
	event := &TaxonomyEvent{
		BaseEvent:    newBase(CategoryCreated),
		CategoryID:   category.ID.String(),
		CategoryName: category.Name,
		CategorySlug: category.Slug,
	}
	p.publish(ctx, CategoryCreated, event.EventID, event)
}

func (p *Publisher) SubcategoryCreated(ctx context.Context, category *models.Category, sub *models.Subcategory) {
	event := &TaxonomyEvent{
		BaseEvent:       newBase(SubcategoryCreated),
		CategoryID:      category.ID.String(),
		CategoryName:    category.Name,
		CategorySlug:    category.Slug,
		SubcategoryID:   sub.ID.String(),
		SubcategoryName: sub.Name,
		SubcategorySlug: sub.Slug,
	}
	p.publish(ctx, SubcategoryCreated, event.EventID, event)
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close drains pending publishes and closes the connection
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const batchSize = 50

// Dispatcher relays unpublished outbox rows to the Publisher in creation order.
type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	publisher Publisher
}

func NewDispatcher(db *gorm.DB, log *zap.Logger, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		db:        db,
		log:       log.Named("events.dispatcher"),
		publisher: publisher,
	}
}

type eventRow struct {
	ID      snowflake.ID   `gorm:"column:id"`
	OrgID   snowflake.ID   `gorm:"column:org_id"`
	Topic   string         `gorm:"column:topic"`
	Payload datatypes.JSON `gorm:"column:payload"`
}

// DispatchPending publishes one batch and returns how many rows were sent.
// A failed publish stops the batch so ordering is kept for the next run.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	var rows []eventRow
	err := d.db.WithContext(ctx).Raw(
		`SELECT id, org_id, topic, payload FROM outbox_events
		 WHERE published = false
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		batchSize,
	).Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		if err := d.publisher.Publish(ctx, row.Topic, []byte(row.Payload)); err != nil {
			d.log.Warn("publish outbox event failed",
				zap.Error(err),
				zap.String("event_id", row.ID.String()),
				zap.String("topic", row.Topic),
			)
			return sent, err
		}
		if err := d.markPublished(ctx, row.ID, time.Now().UTC()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) markPublished(ctx context.Context, id snowflake.ID, now time.Time) error {
	return d.db.WithContext(ctx).Exec(
		`UPDATE outbox_events SET published = true, published_at = ? WHERE id = ?`,
		now,
		id,
	).Error
}

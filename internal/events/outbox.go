// Package events records domain events in an outbox table and relays them to
// the message broker.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/events/domain"
	dbpkg "github.com/flowglad/flowglad-sub009/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Outbox struct {
	genID *snowflake.Node
}

func NewOutbox(genID *snowflake.Node) *Outbox {
	return &Outbox{genID: genID}
}

// Enqueue stores payload under topic inside tx. A non-empty dedupeKey makes
// the write idempotent per organization.
func (o *Outbox) Enqueue(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, topic string, payload any, dedupeKey string) error {
	topic = strings.TrimSpace(topic)
	if orgID == 0 || topic == "" {
		return domain.ErrInvalidEvent
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var key *string
	if dedupeKey = strings.TrimSpace(dedupeKey); dedupeKey != "" {
		key = &dedupeKey

		var existing int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM outbox_events WHERE org_id = ? AND dedupe_key = ?`,
			orgID,
			dedupeKey,
		).Scan(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
	}

	err = tx.WithContext(ctx).Exec(
		`INSERT INTO outbox_events (id, org_id, topic, payload, dedupe_key, published, created_at)
		 VALUES (?, ?, ?, ?, ?, false, ?)`,
		o.genID.Generate(),
		orgID,
		topic,
		datatypes.JSON(body),
		key,
		time.Now().UTC(),
	).Error
	if err != nil && key != nil && dbpkg.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestRedisQueue_Notify(t *testing.T) {
	alert := Alert{
		Kind:      "cash_payment",
		Title:     "Cash payment pending",
		Message:   "Collect 5000 XOF",
		Reference: "chk-1",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	payload, err := json.Marshal(alert)
	assert.NoError(t, err)

	t.Run("pushes onto the admin queue", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectRPush(AdminQueue, payload).SetVal(1)

		NewRedisQueue(db, logging.NewNoOpLogger()).Notify(context.Background(), alert)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure is swallowed", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectRPush(AdminQueue, payload).SetErr(errors.New("connection refused"))

		assert.NotPanics(t, func() {
			NewRedisQueue(db, logging.NewNoOpLogger()).Notify(context.Background(), alert)
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil client only logs", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewRedisQueue(nil, logging.NewNoOpLogger()).Notify(context.Background(), alert)
		})
	})
}

package gateway

import (
	"context"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/notify"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, alert notify.Alert) {
	m.Called(alert)
}

package ingest

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1/mock"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/metrics"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
)

func TestPlaceOrder(t *testing.T) {
	validReq := domain.NewOrderRequest{Symbol: "AAPL", Side: domain.SideBuy, Qty: 10, Price: 190.5}
	persisted := &domain.Order{ID: 1, Symbol: "AAPL", Side: domain.SideBuy, Qty: 10, Price: 190.5, Status: domain.StatusNew}

	testCases := []struct {
		name     string
		req      domain.NewOrderRequest
		mockFn   func(repository *mock.MockOrderRepository, publisher *mock.MockEventPublisher)
		assertFn func(t *testing.T, order *domain.Order, err error, m *metrics.Metrics)
	}{
		{
			name: "persists and publishes a valid order",
			req:  validReq,
			mockFn: func(repository *mock.MockOrderRepository, publisher *mock.MockEventPublisher) {
				repository.EXPECT().CreateOrder(gomock.Any(), validReq).Return(persisted, nil)
				publisher.EXPECT().
					PublishOrderSubmitted(gomock.Any(), domain.EventFromOrder(persisted)).
					Return("1-0", nil)
			},
			assertFn: func(t *testing.T, order *domain.Order, err error, m *metrics.Metrics) {
				require.NoError(t, err)
				assert.Equal(t, int64(1), order.ID)
				assert.Equal(t, float64(1), testutil.ToFloat64(m.OrdersCreated))
			},
		},
		{
			name:   "rejects an invalid request before persisting",
			req:    domain.NewOrderRequest{Symbol: "AAPL", Side: "HOLD", Qty: 10, Price: 190.5},
			mockFn: func(repository *mock.MockOrderRepository, publisher *mock.MockEventPublisher) {},
			assertFn: func(t *testing.T, order *domain.Order, err error, m *metrics.Metrics) {
				require.Error(t, err)
				assert.Nil(t, order)
				assert.True(t, errors.ErrorCodeEquals(err, errors.OrderValidationError))
				assert.Equal(t, float64(0), testutil.ToFloat64(m.OrdersCreated))
			},
		},
		{
			name: "propagates a persistence failure",
			req:  validReq,
			mockFn: func(repository *mock.MockOrderRepository, publisher *mock.MockEventPublisher) {
				repository.EXPECT().
					CreateOrder(gomock.Any(), validReq).
					Return(nil, errors.NewErrorDetails("connection reset", string(errors.PersistenceError), ""))
			},
			assertFn: func(t *testing.T, order *domain.Order, err error, m *metrics.Metrics) {
				require.Error(t, err)
				assert.True(t, errors.ErrorCodeEquals(err, errors.PersistenceError))
			},
		},
		{
			name: "surfaces a publish failure after the order row exists",
			req:  validReq,
			mockFn: func(repository *mock.MockOrderRepository, publisher *mock.MockEventPublisher) {
				repository.EXPECT().CreateOrder(gomock.Any(), validReq).Return(persisted, nil)
				publisher.EXPECT().
					PublishOrderSubmitted(gomock.Any(), domain.EventFromOrder(persisted)).
					Return("", errors.NewErrorDetails("stream unavailable", string(errors.RedisXAddError), ""))
			},
			assertFn: func(t *testing.T, order *domain.Order, err error, m *metrics.Metrics) {
				require.Error(t, err)
				assert.Nil(t, order)
				assert.Equal(t, float64(0), testutil.ToFloat64(m.OrdersCreated))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repository := mock.NewMockOrderRepository(ctrl)
			publisher := mock.NewMockEventPublisher(ctrl)
			tc.mockFn(repository, publisher)

			m := metrics.New(prometheus.NewRegistry())
			usecase := NewUsecase(repository, publisher, m, logger.NewNop())

			order, err := usecase.PlaceOrder(context.Background(), tc.req)
			tc.assertFn(t, order, err, m)
		})
	}
}

func TestReadOperations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repository := mock.NewMockOrderRepository(ctrl)
	publisher := mock.NewMockEventPublisher(ctrl)
	usecase := NewUsecase(repository, publisher, metrics.New(prometheus.NewRegistry()), logger.NewNop())

	ctx := context.Background()

	repository.EXPECT().GetOrder(ctx, int64(7)).Return(&domain.Order{ID: 7}, nil)
	order, err := usecase.GetOrder(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)

	repository.EXPECT().ListOrders(ctx).Return([]*domain.Order{{ID: 1}, {ID: 2}}, nil)
	orders, err := usecase.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	repository.EXPECT().ListPositions(ctx).Return([]*domain.Position{{Symbol: "AAPL", Qty: 10, AvgPrice: 190}}, nil)
	positions, err := usecase.ListPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, positions, 1)
}

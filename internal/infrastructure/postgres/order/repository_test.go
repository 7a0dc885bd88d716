package order

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/postgresql/mock"
)

func TestCreateOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockPostgreSQLClient(ctrl)
	row := mock.NewMockRow(ctrl)
	now := time.Now()

	client.EXPECT().
		QueryRow(gomock.Any(), queryInsertOrder, "AAPL", domain.SideBuy, 10.0, 190.5, domain.StatusNew).
		Return(row)
	row.EXPECT().
		Scan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(dest ...any) error {
			*dest[0].(*int64) = 1
			*dest[1].(*string) = "AAPL"
			*dest[2].(*domain.Side) = domain.SideBuy
			*dest[3].(*float64) = 10
			*dest[4].(*float64) = 190.5
			*dest[5].(*domain.OrderStatus) = domain.StatusNew
			*dest[6].(*time.Time) = now
			return nil
		})

	repo := NewRepository(client)
	order, err := repo.CreateOrder(context.Background(), domain.NewOrderRequest{
		Symbol: "AAPL", Side: domain.SideBuy, Qty: 10, Price: 190.5,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, domain.StatusNew, order.Status)
	assert.Equal(t, now, order.Ts)
}

func TestGetOrder_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockPostgreSQLClient(ctrl)
	row := mock.NewMockRow(ctrl)

	client.EXPECT().QueryRow(gomock.Any(), queryGetOrder, int64(999)).Return(row)
	row.EXPECT().
		Scan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(pgx.ErrNoRows)

	repo := NewRepository(client)
	order, err := repo.GetOrder(context.Background(), 999)

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.ErrorCodeEquals(err, errors.OrderNotFoundError))
}

func TestListOrders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockPostgreSQLClient(ctrl)
	rows := mock.NewMockRowsInterface(ctrl)

	client.EXPECT().Query(gomock.Any(), queryListOrders).Return(rows, nil)
	gomock.InOrder(
		rows.EXPECT().Next().Return(true),
		rows.EXPECT().
			Scan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(dest ...any) error {
				*dest[0].(*int64) = 1
				*dest[1].(*string) = "AAPL"
				*dest[2].(*domain.Side) = domain.SideBuy
				*dest[3].(*float64) = 10
				*dest[4].(*float64) = 190
				*dest[5].(*domain.OrderStatus) = domain.StatusFilled
				*dest[6].(*time.Time) = time.Now()
				return nil
			}),
		rows.EXPECT().Next().Return(false),
		rows.EXPECT().Err().Return(nil),
	)
	rows.EXPECT().Close()

	repo := NewRepository(client)
	orders, err := repo.ListOrders(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "AAPL", orders[0].Symbol)
	assert.Equal(t, domain.StatusFilled, orders[0].Status)
}

func TestListPositions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockPostgreSQLClient(ctrl)
	rows := mock.NewMockRowsInterface(ctrl)

	client.EXPECT().Query(gomock.Any(), queryListPositions).Return(rows, nil)
	gomock.InOrder(
		rows.EXPECT().Next().Return(true),
		rows.EXPECT().
			Scan(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(dest ...any) error {
				*dest[0].(*string) = "MSFT"
				*dest[1].(*float64) = -5
				*dest[2].(*float64) = 420
				return nil
			}),
		rows.EXPECT().Next().Return(false),
		rows.EXPECT().Err().Return(nil),
	)
	rows.EXPECT().Close()

	repo := NewRepository(client)
	positions, err := repo.ListPositions(context.Background())

	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "MSFT", positions[0].Symbol)
	assert.Equal(t, float64(-5), positions[0].Qty)
}

func lockOrderScan(symbol string, side domain.Side, status domain.OrderStatus) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = symbol
		*dest[1].(*domain.Side) = side
		*dest[2].(*domain.OrderStatus) = status
		return nil
	}
}

func TestApplyFill(t *testing.T) {
	testCases := []struct {
		name     string
		price    float64
		mockFn   func(ctrl *gomock.Controller, client *mock.MockPostgreSQLClient, tx *mock.MockTx)
		assertFn func(t *testing.T, err error)
	}{
		{
			name:  "applies fill, marks filled and opens position in one transaction",
			price: 190.5,
			mockFn: func(ctrl *gomock.Controller, client *mock.MockPostgreSQLClient, tx *mock.MockTx) {
				lockRow := mock.NewMockRow(ctrl)
				client.EXPECT().QueryRow(gomock.Any(), queryLockOrder, int64(42)).Return(lockRow)
				lockRow.EXPECT().
					Scan(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(lockOrderScan("AAPL", domain.SideBuy, domain.StatusNew))

				client.EXPECT().Exec(gomock.Any(), queryInsertFill, int64(42), 190.5, 10.0)
				client.EXPECT().Exec(gomock.Any(), queryMarkFilled, int64(42), domain.StatusFilled)
				client.EXPECT().Exec(gomock.Any(), queryLockSymbol, "AAPL")

				posRow := mock.NewMockRow(ctrl)
				client.EXPECT().QueryRow(gomock.Any(), queryLockPosition, "AAPL").Return(posRow)
				posRow.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(pgx.ErrNoRows)

				client.EXPECT().Exec(gomock.Any(), queryUpsertPosition, "AAPL", 10.0, 190.5)

				tx.EXPECT().Commit(gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name:  "folds a fill into an existing long position",
			price: 110,
			mockFn: func(ctrl *gomock.Controller, client *mock.MockPostgreSQLClient, tx *mock.MockTx) {
				lockRow := mock.NewMockRow(ctrl)
				client.EXPECT().QueryRow(gomock.Any(), queryLockOrder, int64(42)).Return(lockRow)
				lockRow.EXPECT().
					Scan(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(lockOrderScan("AAPL", domain.SideBuy, domain.StatusNew))

				client.EXPECT().Exec(gomock.Any(), queryInsertFill, int64(42), 110.0, 10.0)
				client.EXPECT().Exec(gomock.Any(), queryMarkFilled, int64(42), domain.StatusFilled)
				client.EXPECT().Exec(gomock.Any(), queryLockSymbol, "AAPL")

				posRow := mock.NewMockRow(ctrl)
				client.EXPECT().QueryRow(gomock.Any(), queryLockPosition, "AAPL").Return(posRow)
				posRow.EXPECT().
					Scan(gomock.Any(), gomock.Any()).
					DoAndReturn(func(dest ...any) error {
						*dest[0].(*float64) = 10
						*dest[1].(*float64) = 100
						return nil
					})

				// 10 @ 100 + 10 @ 110 -> 20 @ 105
				client.EXPECT().Exec(gomock.Any(), queryUpsertPosition, "AAPL", 20.0, 105.0)

				tx.EXPECT().Commit(gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name:  "refuses a fill for an already filled order",
			price: 190.5,
			mockFn: func(ctrl *gomock.Controller, client *mock.MockPostgreSQLClient, tx *mock.MockTx) {
				lockRow := mock.NewMockRow(ctrl)
				client.EXPECT().QueryRow(gomock.Any(), queryLockOrder, int64(42)).Return(lockRow)
				lockRow.EXPECT().
					Scan(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(lockOrderScan("AAPL", domain.SideBuy, domain.StatusFilled))

				tx.EXPECT().Rollback(gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.True(t, errors.ErrorCodeEquals(err, errors.OrderAlreadyFilledError))
			},
		},
		{
			name:  "reports a missing order",
			price: 190.5,
			mockFn: func(ctrl *gomock.Controller, client *mock.MockPostgreSQLClient, tx *mock.MockTx) {
				lockRow := mock.NewMockRow(ctrl)
				client.EXPECT().QueryRow(gomock.Any(), queryLockOrder, int64(42)).Return(lockRow)
				lockRow.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).Return(pgx.ErrNoRows)

				tx.EXPECT().Rollback(gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.True(t, errors.ErrorCodeEquals(err, errors.OrderNotFoundError))
			},
		},
		{
			name:  "rolls back when the fill insert fails",
			price: 190.5,
			mockFn: func(ctrl *gomock.Controller, client *mock.MockPostgreSQLClient, tx *mock.MockTx) {
				lockRow := mock.NewMockRow(ctrl)
				client.EXPECT().QueryRow(gomock.Any(), queryLockOrder, int64(42)).Return(lockRow)
				lockRow.EXPECT().
					Scan(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(lockOrderScan("AAPL", domain.SideBuy, domain.StatusNew))

				client.EXPECT().
					Exec(gomock.Any(), queryInsertFill, int64(42), 190.5, 10.0).
					Return(pgconn.CommandTag{}, assert.AnError)

				tx.EXPECT().Rollback(gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.True(t, errors.ErrorCodeEquals(err, errors.PersistenceError))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := mock.NewMockPostgreSQLClient(ctrl)
			tx := mock.NewMockTx(ctrl)
			client.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			tc.mockFn(ctrl, client, tx)

			repo := NewRepository(client)
			err := repo.ApplyFill(context.Background(), 42, tc.price, 10)

			tc.assertFn(t, err)
		})
	}
}

// The first fill for a symbol finds no position row, so FOR UPDATE locks
// nothing and two concurrent first fills would both write an absolute
// position. The symbol-level lock must be taken before the position read so
// the second transaction waits and sees the first one's row.
func TestApplyFill_FirstFillTakesSymbolLockBeforePositionRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockPostgreSQLClient(ctrl)
	tx := mock.NewMockTx(ctrl)
	client.EXPECT().Begin(gomock.Any()).Return(tx, nil)

	lockRow := mock.NewMockRow(ctrl)
	client.EXPECT().QueryRow(gomock.Any(), queryLockOrder, int64(7)).Return(lockRow)
	lockRow.EXPECT().
		Scan(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(lockOrderScan("NEWSYM", domain.SideBuy, domain.StatusNew))

	client.EXPECT().Exec(gomock.Any(), queryInsertFill, int64(7), 100.0, 5.0)
	client.EXPECT().Exec(gomock.Any(), queryMarkFilled, int64(7), domain.StatusFilled)

	posRow := mock.NewMockRow(ctrl)
	gomock.InOrder(
		client.EXPECT().Exec(gomock.Any(), queryLockSymbol, "NEWSYM"),
		client.EXPECT().QueryRow(gomock.Any(), queryLockPosition, "NEWSYM").Return(posRow),
	)
	posRow.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(pgx.ErrNoRows)

	client.EXPECT().Exec(gomock.Any(), queryUpsertPosition, "NEWSYM", 5.0, 100.0)
	tx.EXPECT().Commit(gomock.Any()).Return(nil)

	repo := NewRepository(client)
	require.NoError(t, repo.ApplyFill(context.Background(), 7, 100, 5))
}


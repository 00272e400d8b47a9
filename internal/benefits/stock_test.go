package benefits

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/db/dbtest"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

func newStockFixture(t *testing.T, limit *int) (*StockController, *db.Client, *models.ShopBenefit) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	benefit := &models.ShopBenefit{
		Title:    "Concert tickets",
		CoinCost: 400,
		Category: enums.BenefitCategoryOther,
		IsActive: true,
	}
	if limit != nil {
		benefit.StockLimit = intPtr(*limit)
		benefit.CurrentStock = intPtr(*limit)
	}
	require.NoError(t, repo.Create(context.Background(), benefit))
	return NewStockController(repo), client, benefit
}

func currentStock(t *testing.T, client *db.Client, id uuid.UUID) *int {
	t.Helper()
	var row models.ShopBenefit
	require.NoError(t, client.DB().Where("id = ?", id).First(&row).Error)
	return row.CurrentStock
}

func TestReserveAndReleaseLimitedStock(t *testing.T) {
	stock, client, benefit := newStockFixture(t, intPtr(2))
	ctx := context.Background()

	res, err := stock.Reserve(ctx, nil, benefit.ID)
	require.NoError(t, err)
	assert.True(t, res.Limited)
	assert.Equal(t, 1, *currentStock(t, client, benefit.ID))

	require.NoError(t, stock.Release(ctx, nil, res))
	assert.Equal(t, 2, *currentStock(t, client, benefit.ID))

	// Release never pushes stock past the limit.
	require.NoError(t, stock.Release(ctx, nil, res))
	assert.Equal(t, 2, *currentStock(t, client, benefit.ID))
}

func TestReserveExhaustedStockFailsOutOfStock(t *testing.T) {
	stock, client, benefit := newStockFixture(t, intPtr(0))

	_, err := stock.Reserve(context.Background(), nil, benefit.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))
	assert.Equal(t, 0, *currentStock(t, client, benefit.ID))
}

func TestReserveUnlimitedIsNoop(t *testing.T) {
	stock, client, benefit := newStockFixture(t, nil)

	res, err := stock.Reserve(context.Background(), nil, benefit.ID)
	require.NoError(t, err)
	assert.False(t, res.Limited)
	require.NoError(t, stock.Release(context.Background(), nil, res))
	assert.Nil(t, currentStock(t, client, benefit.ID))
}

func TestReserveMissingOrInactiveFailsNotFound(t *testing.T) {
	stock, client, benefit := newStockFixture(t, intPtr(5))

	_, err := stock.Reserve(context.Background(), nil, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, client.DB().Model(&models.ShopBenefit{}).Where("id = ?", benefit.ID).Update("is_active", false).Error)
	_, err = stock.Reserve(context.Background(), nil, benefit.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReserveInsideRolledBackTxRestoresStock(t *testing.T) {
	stock, client, benefit := newStockFixture(t, intPtr(1))

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if _, err := stock.Reserve(context.Background(), tx, benefit.ID); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "abort")
	})
	require.Error(t, err)
	assert.Equal(t, 1, *currentStock(t, client, benefit.ID))
}

func TestConcurrentReservationsOfLastUnit(t *testing.T) {
	stock, client, benefit := newStockFixture(t, intPtr(1))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		outOfStock  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stock.Reserve(context.Background(), nil, benefit.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, 0, *currentStock(t, client, benefit.ID))
}

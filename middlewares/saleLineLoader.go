package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
)

type saleLineReader struct {
	db *gorm.DB
}

func (r *saleLineReader) getSaleLines(ctx context.Context, ids []int) []*dataloader.Result[[]*models.SaleLine] {
	var results []models.SaleLine

	err := r.db.WithContext(ctx).Where("sale_id IN ?", ids).Order("id").Find(&results).Error
	if err != nil {
		return handleError[[]*models.SaleLine](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

// GetSaleLines returns the lines of a sale efficiently
func GetSaleLines(ctx context.Context, saleId int) ([]*models.SaleLine, error) {
	loaders := For(ctx)
	return loaders.saleLineLoader.Load(ctx, saleId)()
}

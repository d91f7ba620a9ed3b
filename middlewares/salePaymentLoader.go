package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
)

type salePaymentReader struct {
	db *gorm.DB
}

// statement lines pointing at a sale are its payments
func (r *salePaymentReader) getSalePayments(ctx context.Context, ids []int) []*dataloader.Result[[]*models.StatementLine] {
	var results []models.StatementLine

	err := r.db.WithContext(ctx).Where("sale_id IN ?", ids).Order("id").Find(&results).Error
	if err != nil {
		return handleError[[]*models.StatementLine](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

// GetSalePayments returns the payment lines of a sale efficiently
func GetSalePayments(ctx context.Context, saleId int) ([]*models.StatementLine, error) {
	loaders := For(ctx)
	return loaders.salePaymentLoader.Load(ctx, saleId)()
}

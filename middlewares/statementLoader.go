package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
)

type statementReader struct {
	db *gorm.DB
}

func (r *statementReader) getStatements(ctx context.Context, ids []int) []*dataloader.Result[*models.Statement] {
	var results []models.Statement

	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Statement](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

// GetStatement returns single statement by id efficiently
func GetStatement(ctx context.Context, id int) (*models.Statement, error) {
	loaders := For(ctx)
	return loaders.statementLoader.Load(ctx, id)()
}

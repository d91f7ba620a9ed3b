package middlewares

import (
	"context"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allPartyReader struct {
	db *gorm.DB
}

func (r *allPartyReader) getAllParties(ctx context.Context, ids []int) []*dataloader.Result[*models.AllParty] {
	resultMap, err := models.MapAllParty(ctx)
	if err != nil {
		return handleError[*models.AllParty](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllParty], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllParty
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllParty]{Data: result})
	}
	return loaderResults
}

func GetAllParty(ctx context.Context, id int) (*models.AllParty, error) {
	loaders := For(ctx)
	return loaders.allPartyLoader.Load(ctx, id)()
}

func GetAllParties(ctx context.Context, ids []int) ([]*models.AllParty, []error) {
	loaders := For(ctx)
	return loaders.allPartyLoader.LoadMany(ctx, ids)()
}

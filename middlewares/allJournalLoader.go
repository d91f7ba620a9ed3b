package middlewares

import (
	"context"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allJournalReader struct {
	db *gorm.DB
}

func (r *allJournalReader) getAllJournals(ctx context.Context, ids []int) []*dataloader.Result[*models.AllJournal] {
	resultMap, err := models.MapAllJournal(ctx)
	if err != nil {
		return handleError[*models.AllJournal](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllJournal], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllJournal
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllJournal]{Data: result})
	}
	return loaderResults
}

func GetAllJournal(ctx context.Context, id int) (*models.AllJournal, error) {
	loaders := For(ctx)
	return loaders.allJournalLoader.Load(ctx, id)()
}

func GetAllJournals(ctx context.Context, ids []int) ([]*models.AllJournal, []error) {
	loaders := For(ctx)
	return loaders.allJournalLoader.LoadMany(ctx, ids)()
}

package middlewares

import (
	"context"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allDeviceReader struct {
	db *gorm.DB
}

func (r *allDeviceReader) getAllDevices(ctx context.Context, ids []int) []*dataloader.Result[*models.AllDevice] {
	resultMap, err := models.MapAllDevice(ctx)
	if err != nil {
		return handleError[*models.AllDevice](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllDevice], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllDevice
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllDevice]{Data: result})
	}
	return loaderResults
}

func GetAllDevice(ctx context.Context, id int) (*models.AllDevice, error) {
	loaders := For(ctx)
	return loaders.allDeviceLoader.Load(ctx, id)()
}

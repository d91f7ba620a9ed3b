package middlewares

import (
	"context"
	"reflect"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	invoiceLoader   *dataloader.Loader[int, *models.Invoice]
	statementLoader *dataloader.Loader[int, *models.Statement]

	saleLineLoader    *dataloader.Loader[int, []*models.SaleLine]
	salePaymentLoader *dataloader.Loader[int, []*models.StatementLine]

	allAccountLoader *dataloader.Loader[int, *models.AllAccount]
	allPartyLoader   *dataloader.Loader[int, *models.AllParty]
	allJournalLoader *dataloader.Loader[int, *models.AllJournal]
	allDeviceLoader  *dataloader.Loader[int, *models.AllDevice]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	// define the data loader
	invoiceReader := &invoiceReader{db: conn}
	statementReader := &statementReader{db: conn}
	saleLineReader := &saleLineReader{db: conn}
	salePaymentReader := &salePaymentReader{db: conn}
	allAccountReader := &allAccountReader{db: conn}
	allPartyReader := &allPartyReader{db: conn}
	allJournalReader := &allJournalReader{db: conn}
	allDeviceReader := &allDeviceReader{db: conn}

	return &Loaders{
		invoiceLoader:   dataloader.NewBatchedLoader(invoiceReader.getInvoices, dataloader.WithWait[int, *models.Invoice](time.Millisecond)),
		statementLoader: dataloader.NewBatchedLoader(statementReader.getStatements, dataloader.WithWait[int, *models.Statement](time.Millisecond)),

		saleLineLoader:    dataloader.NewBatchedLoader(saleLineReader.getSaleLines, dataloader.WithWait[int, []*models.SaleLine](time.Millisecond)),
		salePaymentLoader: dataloader.NewBatchedLoader(salePaymentReader.getSalePayments, dataloader.WithWait[int, []*models.StatementLine](time.Millisecond)),

		allAccountLoader: dataloader.NewBatchedLoader(allAccountReader.getAllAccounts, dataloader.WithWait[int, *models.AllAccount](time.Millisecond)),
		allPartyLoader:   dataloader.NewBatchedLoader(allPartyReader.getAllParties, dataloader.WithWait[int, *models.AllParty](time.Millisecond)),
		allJournalLoader: dataloader.NewBatchedLoader(allJournalReader.getAllJournals, dataloader.WithWait[int, *models.AllJournal](time.Millisecond)),
		allDeviceLoader:  dataloader.NewBatchedLoader(allDeviceReader.getAllDevices, dataloader.WithWait[int, *models.AllDevice](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results
// (T must be a struct)
func generateLoaderResults[T models.Data](results []T, ids []int) []*dataloader.Result[*T] {
	// generate resultMap from results
	resultMap := make(map[int]T)
	var resultZero T
	resultMap[0] = resultZero.GetDefault(0).(T)
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data := resultMap[id]
		if reflect.ValueOf(data).IsZero() {
			data = data.GetDefault(id).(T)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &data})
	}
	return loaderResults
}

// T must be struct
// each id has many related results
func generateLoaderArrayResults[T models.RelatedData](results []T, referenceIds []int) (loaderResults []*dataloader.Result[[]*T]) {
	resultMap := make(map[int][]*T)
	for _, result := range results {
		// new variable every turn, to avoid pointing at the loop variable
		row := result
		resultMap[result.GetReferenceId()] = append(resultMap[result.GetReferenceId()], &row)
	}
	for _, id := range referenceIds {
		resultArray := resultMap[id]
		loaderResults = append(loaderResults, &dataloader.Result[[]*T]{Data: resultArray})
	}
	return loaderResults
}

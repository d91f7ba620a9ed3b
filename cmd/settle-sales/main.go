// settle-sales drives a batch of sales through the settlement workflow from
// the command line: lifecycle advance, invoice posting, payment attribution
// and the done transition, exactly as the API's settle endpoint does.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME_2=... \
//     go run ./cmd/settle-sales -business-id=<uuid> -sale-ids=12,15,18
//   go run ./cmd/settle-sales -business-id=<uuid> -all-outstanding
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/workflow"
)

func main() {
	businessID := flag.String("business-id", "", "Business to settle for (uuid string, required).")
	saleIDs := flag.String("sale-ids", "", "Comma-separated sale ids to settle.")
	allOutstanding := flag.Bool("all-outstanding", false, "Settle every outstanding sale of the business instead of -sale-ids.")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "-business-id is required")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// Model hooks expect actor fields even for offline runs.
	ctx = utils.SetBusinessIdInContext(ctx, strings.TrimSpace(*businessID))
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "SettleSales")

	ids, err := resolveSaleIds(ctx, *saleIDs, *allOutstanding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if len(ids) == 0 {
		fmt.Println("No sales to settle")
		return
	}

	fmt.Printf("Settling %d sale(s) for business=%s\n", len(ids), strings.TrimSpace(*businessID))
	if err := workflow.AdvanceAndSettle(ctx, ids); err != nil {
		fmt.Fprintf(os.Stderr, "settlement failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Settlement complete")
}

func resolveSaleIds(ctx context.Context, csv string, allOutstanding bool) ([]int, error) {
	if allOutstanding {
		sales, err := models.GetOutstandingSales(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list outstanding sales: %w", err)
		}
		ids := make([]int, 0, len(sales))
		for _, sale := range sales {
			ids = append(ids, sale.ID)
		}
		return ids, nil
	}

	ids := make([]int, 0)
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid sale id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

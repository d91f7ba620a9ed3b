// reconcile-sales clears the receivable on fully paid, done sales from the
// command line. Each sale's invoice receivable lines and payment lines are
// grouped per party and reconciled when they sum to zero; invoices whose
// lines all reconcile flip to paid.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME_2=... \
//     go run ./cmd/reconcile-sales -business-id=<uuid> -sale-ids=12,15,18
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/workflow"
)

func main() {
	businessID := flag.String("business-id", "", "Business to reconcile for (uuid string, required).")
	saleIDs := flag.String("sale-ids", "", "Comma-separated sale ids to reconcile (required).")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "-business-id is required")
		os.Exit(2)
	}

	ids := make([]int, 0)
	for _, part := range strings.Split(*saleIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			fmt.Fprintf(os.Stderr, "invalid sale id %q\n", part)
			os.Exit(2)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "-sale-ids is required")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx = utils.SetBusinessIdInContext(ctx, strings.TrimSpace(*businessID))
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "ReconcileSales")

	fmt.Printf("Reconciling %d sale(s) for business=%s\n", len(ids), strings.TrimSpace(*businessID))
	if err := workflow.ReconcileSales(ctx, ids); err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Reconciliation complete")
}

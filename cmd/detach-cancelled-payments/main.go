package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// detach-cancelled-payments releases payments stranded on cancelled sales.
//
// A draft sale can take partial payments through the wizard and still be
// cancelled. The money stays real, but as long as the statement line points
// at the cancelled sale the cashier cannot re-home it. This detaches such
// lines (sale and invoice reference cleared) on draft statements only;
// posted statements already have moves and are never touched.
//
// Intended to be run per business, off-hours.
func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	dryRun := flag.Bool("dry-run", false, "If true, do not write; only print actions")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	var stranded int64
	err := db.Raw(`
		SELECT COUNT(*)
		FROM statement_lines l
		JOIN statements s ON s.id = l.statement_id
		JOIN sales ON sales.id = l.sale_id
		WHERE l.business_id = ? AND s.state = 'draft' AND sales.state = 'cancelled'
	`, *businessID).Scan(&stranded).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "count stranded payments: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("found %d payment(s) on cancelled sales\n", stranded)

	if *dryRun {
		fmt.Println("[dry-run] no changes will be written")
		return
	}
	if stranded == 0 {
		fmt.Println("nothing to detach")
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Exec(`
			UPDATE statement_lines l
			JOIN statements s ON s.id = l.statement_id
			JOIN sales ON sales.id = l.sale_id
			SET l.sale_id = NULL, l.invoice_id = NULL
			WHERE l.business_id = ? AND s.state = 'draft' AND sales.state = 'cancelled'
		`, *businessID).Error
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "detach failed: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("business_id", strings.TrimSpace(*businessID)).
		WithField("detached", stranded).Info("detach cancelled payments complete")
	fmt.Println("detach cancelled payments complete")
}

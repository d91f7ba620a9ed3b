package models

import "fmt"

// User-facing payment/settlement errors. Each carries the identifier the
// cashier needs to fix the condition, so handlers can surface it verbatim.

type MissingInvoiceError struct {
	Reference string
}

func (e *MissingInvoiceError) Error() string {
	return fmt.Sprintf("sale %s is invoiced on order but has no invoice yet", e.Reference)
}

type NoSaleDeviceError struct {
	Username string
}

func (e *NoSaleDeviceError) Error() string {
	return fmt.Sprintf("user %s has no sale device assigned", e.Username)
}

type NoDraftStatementError struct {
	Journal string
}

func (e *NoDraftStatementError) Error() string {
	return fmt.Sprintf("no draft statement open for journal %s", e.Journal)
}

type MissingReceivableAccountError struct {
	Party string
}

func (e *MissingReceivableAccountError) Error() string {
	return fmt.Sprintf("party %s has no receivable account configured", e.Party)
}

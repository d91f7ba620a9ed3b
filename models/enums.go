package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type SaleState string

const (
	SaleStateDraft      SaleState = "draft"
	SaleStateQuotation  SaleState = "quotation"
	SaleStateConfirmed  SaleState = "confirmed"
	SaleStateProcessing SaleState = "processing"
	SaleStateDone       SaleState = "done"
	SaleStateCancelled  SaleState = "cancelled"
)

// states where the order total has been computed and frozen
var totalCachedStates = []SaleState{SaleStateConfirmed, SaleStateProcessing, SaleStateDone}

func (s SaleState) TotalCached() bool {
	for _, cached := range totalCachedStates {
		if s == cached {
			return true
		}
	}
	return false
}

func ParseSaleState(str string) (SaleState, error) {
	switch str {
	case "draft":
		return SaleStateDraft, nil
	case "quotation":
		return SaleStateQuotation, nil
	case "confirmed":
		return SaleStateConfirmed, nil
	case "processing":
		return SaleStateProcessing, nil
	case "done":
		return SaleStateDone, nil
	case "cancelled":
		return SaleStateCancelled, nil
	default:
		return "", errors.New("invalid sale state")
	}
}

type InvoiceMethod string

const (
	InvoiceMethodManual   InvoiceMethod = "manual"
	InvoiceMethodOrder    InvoiceMethod = "order"
	InvoiceMethodShipment InvoiceMethod = "shipment"
)

func ParseInvoiceMethod(str string) (InvoiceMethod, error) {
	switch str {
	case "manual":
		return InvoiceMethodManual, nil
	case "order":
		return InvoiceMethodOrder, nil
	case "shipment":
		return InvoiceMethodShipment, nil
	default:
		return "", errors.New("invalid invoice method")
	}
}

type InvoiceState string

const (
	InvoiceStateDraft     InvoiceState = "draft"
	InvoiceStateValidated InvoiceState = "validated"
	InvoiceStatePosted    InvoiceState = "posted"
	InvoiceStatePaid      InvoiceState = "paid"
	InvoiceStateCancelled InvoiceState = "cancelled"
)

func ParseInvoiceState(str string) (InvoiceState, error) {
	switch str {
	case "draft":
		return InvoiceStateDraft, nil
	case "validated":
		return InvoiceStateValidated, nil
	case "posted":
		return InvoiceStatePosted, nil
	case "paid":
		return InvoiceStatePaid, nil
	case "cancelled":
		return InvoiceStateCancelled, nil
	default:
		return "", errors.New("invalid invoice state")
	}
}

type StatementState string

const (
	StatementStateDraft     StatementState = "draft"
	StatementStateValidated StatementState = "validated"
	StatementStatePosted    StatementState = "posted"
)

func ParseStatementState(str string) (StatementState, error) {
	switch str {
	case "draft":
		return StatementStateDraft, nil
	case "validated":
		return StatementStateValidated, nil
	case "posted":
		return StatementStatePosted, nil
	default:
		return "", errors.New("invalid statement state")
	}
}

// OriginKind tags the record type an invoice line was generated from.
// Stored alongside origin_id; the pair replaces free-form reference strings.
type OriginKind string

const (
	OriginKindSaleLine OriginKind = "SL"
	OriginKindManual   OriginKind = "MN"
)

func ParseOriginKind(str string) (OriginKind, error) {
	switch str {
	case "SL":
		return OriginKindSaleLine, nil
	case "MN":
		return OriginKindManual, nil
	default:
		return "", errors.New("invalid origin kind")
	}
}

type UserRole string

const (
	RoleAdmin   UserRole = "A"
	RoleOwner   UserRole = "O"
	RoleCashier UserRole = "C"
)

// MyDateString is a calendar date in request payloads, resolved against the
// business timezone before querying.
type MyDateString time.Time

func (t MyDateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02"))), nil
}

func (t *MyDateString) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("MyDateString must be string")
	}
	localTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		localTime, err = time.Parse("2006-01-02T15:04:05", str)
		if err != nil {
			return errors.New("error parsing datetime")
		}
	}
	*t = MyDateString(localTime)
	return nil
}

func (t *MyDateString) StartOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	// Convert the start of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)

	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}

// Value implements the driver.Valuer interface
func (t MyDateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements the sql.Scanner interface
func (t *MyDateString) Scan(value interface{}) error {
	if value == nil {
		*t = MyDateString(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*t = MyDateString(v)
	default:
		return fmt.Errorf("cannot convert %T to MyDateString", value)
	}
	return nil
}

func (t *MyDateString) EndOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	// Convert the end of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999,
		location,
	)

	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}

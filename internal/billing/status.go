package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// recomputedStatus derives the bill's cached status from its counted
// payments. Cancelled bills are frozen. The returned paidDate is non-nil only
// on the first transition into paid.
func recomputedStatus(bill *models.Bill, amountPaid decimal.Decimal, today time.Time) (enums.BillStatus, *time.Time) {
	if bill.Status == enums.BillStatusCancelled {
		return enums.BillStatusCancelled, bill.PaidDate
	}

	due := bill.Amount.Sub(amountPaid)
	day := today.Truncate(24 * time.Hour)

	switch {
	case due.LessThanOrEqual(decimal.Zero):
		paidDate := bill.PaidDate
		if paidDate == nil {
			stamped := today
			paidDate = &stamped
		}
		return enums.BillStatusPaid, paidDate
	case amountPaid.GreaterThan(decimal.Zero):
		return enums.BillStatusPartial, nil
	case bill.DueDate.Before(day):
		return enums.BillStatusOverdue, nil
	default:
		return enums.BillStatusPending, nil
	}
}

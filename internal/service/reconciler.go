package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/hartantodhi/loan-ledger/internal/domain"
	"github.com/hartantodhi/loan-ledger/internal/repository"
	customError "github.com/hartantodhi/loan-ledger/pkg/errors"
)

// Reconciler cross-checks every unpaid loan's denormalized balance against
// its receipt ledger. The balance is maintained under a row lock, so any
// drift it finds means a write path bypassed the ledger transaction.
type Reconciler struct {
	store  repository.Store
	logger *zap.Logger
}

func NewReconciler(store repository.Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

// Drift describes one loan whose stored balance disagrees with its receipts.
type Drift struct {
	LoanID            string `json:"loan_id"`
	OutstandingAmount int64  `json:"outstanding_amount"`
	LedgerAmount      int64  `json:"ledger_amount"`
}

// Run recomputes amount - SUM(receipts) for each unpaid loan and reports
// every mismatch with the stored outstanding amount. It also flags loans
// whose status violates the repaid-iff-zero invariant. Read-only.
func (r *Reconciler) Run(ctx context.Context) ([]Drift, error) {
	repos := r.store.Repos()

	loans, err := repos.Loans.ListUnpaid(ctx)
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}

	var drifts []Drift
	for _, loan := range loans {
		total, err := repos.Repayments.GetTotalReceived(ctx, loan.ID)
		if err != nil {
			return nil, customError.WrapPersistenceError(err)
		}

		ledger := loan.Amount - total
		if ledger != loan.OutstandingAmount {
			drifts = append(drifts, Drift{
				LoanID:            loan.ID.String(),
				OutstandingAmount: loan.OutstandingAmount,
				LedgerAmount:      ledger,
			})
			r.logger.Warn("balance drift detected",
				zap.String("loan_id", loan.ID.String()),
				zap.Int64("outstanding_amount", loan.OutstandingAmount),
				zap.Int64("ledger_amount", ledger),
			)
			continue
		}

		if loan.OutstandingAmount == 0 && loan.Status != domain.LoanStatusRepaid {
			r.logger.Warn("loan has zero balance but is not marked repaid",
				zap.String("loan_id", loan.ID.String()),
				zap.String("status", loan.Status),
			)
		}
	}

	r.logger.Info("reconciliation finished",
		zap.Int("loans_checked", len(loans)),
		zap.Int("drifts", len(drifts)),
	)

	return drifts, nil
}

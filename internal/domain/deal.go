package domain

import "github.com/shopspring/decimal"

type DealStatus string

const (
	DealStatusNew        DealStatus = "new"
	DealStatusInProgress DealStatus = "in_progress"
	DealStatusWon        DealStatus = "won"
	DealStatusLost       DealStatus = "lost"
)

// DealStatuses lists every status in declaration order.
var DealStatuses = []DealStatus{DealStatusNew, DealStatusInProgress, DealStatusWon, DealStatusLost}

func (s DealStatus) Valid() bool {
	switch s {
	case DealStatusNew, DealStatusInProgress, DealStatusWon, DealStatusLost:
		return true
	}
	return false
}

// Closed reports whether the status ends the deal lifecycle.
func (s DealStatus) Closed() bool {
	return s == DealStatusWon || s == DealStatusLost
}

type DealStage string

const (
	DealStageQualification DealStage = "qualification"
	DealStageProposal      DealStage = "proposal"
	DealStageNegotiation   DealStage = "negotiation"
	DealStageClosed        DealStage = "closed"
)

// DealStages is the pipeline in order; the index of a stage is its ordinal.
var DealStages = []DealStage{DealStageQualification, DealStageProposal, DealStageNegotiation, DealStageClosed}

// Ordinal returns the pipeline position of the stage, or -1 when unknown.
func (s DealStage) Ordinal() int {
	for i, st := range DealStages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s DealStage) Valid() bool {
	return s.Ordinal() >= 0
}

const DefaultCurrency = "USD"

// EnsureCanWin rejects a transition into won when the effective amount is not positive.
func EnsureCanWin(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validation("Cannot mark deal as won with amount <= 0")
	}
	return nil
}

// EnsureStageChangeAllowed rejects a move to an earlier stage for roles
// without rollback rights. Forward moves and no-ops always pass.
func EnsureStageChangeAllowed(role Role, from, to DealStage) error {
	if to.Ordinal() < from.Ordinal() && !CanRollbackStage(role) {
		return Forbidden("Only admin/owner can rollback deal stage")
	}
	return nil
}

package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateDealRequest struct {
	ContactID string           `json:"contact_id" validate:"required,uuid"`
	Title     string           `json:"title" validate:"notblank,max=255"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Currency  string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

func (r CreateDealRequest) Validate() map[string]string {
	errs := validation.Struct(r)
	checkAmount(errs, r.Amount)
	return errs
}

func (r CreateDealRequest) ParsedContactID() uuid.UUID {
	id, _ := uuid.Parse(r.ContactID)
	return id
}

type UpdateDealRequest struct {
	Title    *string            `json:"title,omitempty" validate:"omitempty,notblank,max=255"`
	Amount   *decimal.Decimal   `json:"amount,omitempty"`
	Currency *string            `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Status   *domain.DealStatus `json:"status,omitempty" validate:"omitempty,oneof=new in_progress won lost"`
	Stage    *domain.DealStage  `json:"stage,omitempty" validate:"omitempty,oneof=qualification proposal negotiation closed"`
}

func (r UpdateDealRequest) Validate() map[string]string {
	errs := validation.Struct(r)
	checkAmount(errs, r.Amount)
	return errs
}

// maxAmount is the first value that no longer fits numeric(12,2).
var maxAmount = decimal.New(1, 10)

func checkAmount(errs map[string]string, amount *decimal.Decimal) {
	if amount == nil {
		return
	}
	switch {
	case !amount.Equal(amount.Round(2)):
		errs["amount"] = "Must have at most 2 decimal places"
	case amount.Abs().GreaterThanOrEqual(maxAmount):
		errs["amount"] = "Must be less than 10000000000 in absolute value"
	}
}

type DealResponse struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	ContactID      string            `json:"contact_id"`
	OwnerID        string            `json:"owner_id"`
	Title          string            `json:"title"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	Status         domain.DealStatus `json:"status"`
	Stage          domain.DealStage  `json:"stage"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func NewDealResponse(d *models.Deal) DealResponse {
	return DealResponse{
		ID:             d.ID.String(),
		OrganizationID: d.OrganizationID.String(),
		ContactID:      d.ContactID.String(),
		OwnerID:        d.OwnerID.String(),
		Title:          d.Title,
		Amount:         d.Amount.StringFixed(2),
		Currency:       d.Currency,
		Status:         d.Status,
		Stage:          d.Stage,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

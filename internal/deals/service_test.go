package deals_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/deals"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/membership"
	"github.com/hugh/go-crm/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	closed []uuid.UUID
	err    error
}

func (n *recordingNotifier) DealClosed(_ context.Context, deal *models.Deal) error {
	n.closed = append(n.closed, deal.ID)
	return n.err
}

func setupDealService(t *testing.T) (*deals.Service, *testutil.TestSetup, *recordingNotifier) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)
	notifier := &recordingNotifier{}
	return deals.NewService(tc.DB, membership.NewService(tc.DB), notifier, nil), tc, notifier
}

func ptr[T any](v T) *T { return &v }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func activitiesOf(t *testing.T, db *gorm.DB, dealID uuid.UUID) []models.Activity {
	t.Helper()
	var items []models.Activity
	require.NoError(t, db.Where("deal_id = ?", dealID).Order("created_at ASC").Find(&items).Error)
	return items
}

func TestService_Create(t *testing.T) {
	svc, tc, _ := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	t.Run("applies defaults", func(t *testing.T) {
		deal, err := svc.Create(ctx, tc.Org.ID, tc.User.ID, deals.CreateInput{ContactID: contact.ID, Title: "Website"})
		require.NoError(t, err)
		assert.Equal(t, domain.DealStatusNew, deal.Status)
		assert.Equal(t, domain.DealStageQualification, deal.Stage)
		assert.Equal(t, "USD", deal.Currency)
		assert.True(t, deal.Amount.IsZero())
		assert.Equal(t, tc.User.ID, deal.OwnerID)
	})

	t.Run("contact from another organization", func(t *testing.T) {
		other := testutil.CreateTestOrg(t, tc.DB)
		foreign := testutil.CreateTestContact(t, tc.DB, other.ID, tc.User.ID, "mallory")

		_, err := svc.Create(ctx, tc.Org.ID, tc.User.ID, deals.CreateInput{ContactID: foreign.ID, Title: "Nope"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, "Contact not found in this organization", err.Error())
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		stranger := testutil.CreateTestUser(t, tc.DB)
		_, err := svc.Create(ctx, tc.Org.ID, stranger.ID, deals.CreateInput{ContactID: contact.ID, Title: "x"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestService_CreateAndGet(t *testing.T) {
	svc, tc, _ := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	for _, amount := range []string{"1234.56", "-75.50"} {
		t.Run(amount, func(t *testing.T) {
			created, err := svc.Create(ctx, tc.Org.ID, tc.User.ID, deals.CreateInput{
				ContactID: contact.ID,
				Title:     "Support renewal",
				Amount:    dec(amount),
				Currency:  "eur",
			})
			require.NoError(t, err)

			got, err := svc.Get(ctx, tc.Org.ID, tc.User.ID, created.ID)
			require.NoError(t, err)

			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, tc.Org.ID, got.OrganizationID)
			assert.Equal(t, contact.ID, got.ContactID)
			assert.Equal(t, tc.User.ID, got.OwnerID)
			assert.Equal(t, "Support renewal", got.Title)
			assert.True(t, decimal.RequireFromString(amount).Equal(got.Amount), "amount %s", got.Amount)
			assert.Equal(t, created.Currency, got.Currency)
			assert.Equal(t, "EUR", got.Currency)
			assert.Equal(t, domain.DealStatusNew, got.Status)
			assert.Equal(t, domain.DealStageQualification, got.Stage)
		})
	}
}

func TestService_Update_WonGuard(t *testing.T) {
	svc, tc, notifier := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	t.Run("zero amount cannot be won", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Zero", 0)

		_, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{Status: ptr(domain.DealStatusWon)})
		assert.ErrorIs(t, err, domain.ErrValidation)

		var stored models.Deal
		require.NoError(t, tc.DB.First(&stored, "id = ?", deal.ID).Error)
		assert.Equal(t, domain.DealStatusNew, stored.Status)
		assert.Empty(t, activitiesOf(t, tc.DB, deal.ID))
	})

	t.Run("amount in the same update counts", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Late amount", 0)

		updated, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{
			Status: ptr(domain.DealStatusWon),
			Amount: dec("5000"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DealStatusWon, updated.Status)
		assert.True(t, updated.Amount.Equal(decimal.NewFromInt(5000)))
		assert.Contains(t, notifier.closed, deal.ID)
	})

	t.Run("positive stored amount with non-positive requested amount", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Shrink", 1000)

		_, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{
			Status: ptr(domain.DealStatusWon),
			Amount: dec("0"),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("won deal cannot drop amount to zero", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Already won", 100)
		_, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{Status: ptr(domain.DealStatusWon)})
		require.NoError(t, err)

		_, err = svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{Amount: dec("0")})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestService_Update_StageRollback(t *testing.T) {
	svc, tc, _ := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	admin, _ := tc.NewMember(t, domain.RoleAdmin)
	manager, _ := tc.NewMember(t, domain.RoleManager)
	member, _ := tc.NewMember(t, domain.RoleMember)

	newNegotiationDeal := func(owner uuid.UUID) *models.Deal {
		deal := testutil.CreateTestDeal(t, tc.DB, contact, owner, "Pipeline", 100)
		require.NoError(t, tc.DB.Model(deal).Update("stage", domain.DealStageNegotiation).Error)
		deal.Stage = domain.DealStageNegotiation
		return deal
	}

	tests := []struct {
		name    string
		actor   uuid.UUID
		wantErr error
	}{
		{"owner may roll back", tc.User.ID, nil},
		{"admin may roll back", admin.ID, nil},
		{"manager may not roll back", manager.ID, domain.ErrForbidden},
		{"member may not roll back own deal", member.ID, domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deal := newNegotiationDeal(tt.actor)

			updated, err := svc.Update(ctx, tc.Org.ID, tt.actor, deal.ID, deals.UpdateInput{Stage: ptr(domain.DealStageProposal)})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, activitiesOf(t, tc.DB, deal.ID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.DealStageProposal, updated.Stage)

			acts := activitiesOf(t, tc.DB, deal.ID)
			require.Len(t, acts, 1)
			assert.Equal(t, domain.ActivityStageChanged, acts[0].Type)
			assert.Equal(t, "negotiation", acts[0].Payload["old_stage"])
			assert.Equal(t, "proposal", acts[0].Payload["new_stage"])
			require.NotNil(t, acts[0].AuthorID)
			assert.Equal(t, tt.actor, *acts[0].AuthorID)
		})
	}

	t.Run("manager may advance", func(t *testing.T) {
		deal := newNegotiationDeal(manager.ID)
		updated, err := svc.Update(ctx, tc.Org.ID, manager.ID, deal.ID, deals.UpdateInput{Stage: ptr(domain.DealStageClosed)})
		require.NoError(t, err)
		assert.Equal(t, domain.DealStageClosed, updated.Stage)
	})
}

func TestService_Update_Ownership(t *testing.T) {
	svc, tc, _ := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	member, _ := tc.NewMember(t, domain.RoleMember)
	manager, _ := tc.NewMember(t, domain.RoleManager)
	deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Owner's deal", 100)

	t.Run("member cannot update someone else's deal", func(t *testing.T) {
		_, err := svc.Update(ctx, tc.Org.ID, member.ID, deal.ID, deals.UpdateInput{Title: ptr("hijack")})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("ownership is checked before the won guard", func(t *testing.T) {
		zero := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Zero", 0)
		_, err := svc.Update(ctx, tc.Org.ID, member.ID, zero.ID, deals.UpdateInput{Status: ptr(domain.DealStatusWon)})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("manager can update any deal", func(t *testing.T) {
		updated, err := svc.Update(ctx, tc.Org.ID, manager.ID, deal.ID, deals.UpdateInput{Title: ptr("Renamed")})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, tc.User.ID, updated.OwnerID)
	})

	t.Run("deal from another tenant is not found", func(t *testing.T) {
		other := testutil.CreateTestOrg(t, tc.DB)
		testutil.AddTestMember(t, tc.DB, other, tc.User, domain.RoleOwner)
		_, err := svc.Update(ctx, other.ID, tc.User.ID, deal.ID, deals.UpdateInput{Title: ptr("x")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestService_Update_Activities(t *testing.T) {
	svc, tc, notifier := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	t.Run("unchanged status and stage record nothing", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Same", 100)
		_, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{
			Status: ptr(domain.DealStatusNew),
			Stage:  ptr(domain.DealStageQualification),
		})
		require.NoError(t, err)
		assert.Empty(t, activitiesOf(t, tc.DB, deal.ID))
	})

	t.Run("status and stage change record one entry each", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Both", 100)
		_, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{
			Status: ptr(domain.DealStatusInProgress),
			Stage:  ptr(domain.DealStageProposal),
		})
		require.NoError(t, err)

		acts := activitiesOf(t, tc.DB, deal.ID)
		require.Len(t, acts, 2)
		types := []domain.ActivityType{acts[0].Type, acts[1].Type}
		assert.ElementsMatch(t, []domain.ActivityType{domain.ActivityStatusChanged, domain.ActivityStageChanged}, types)
	})

	t.Run("notifier failure does not fail the update", func(t *testing.T) {
		notifier.err = errors.New("queue down")
		defer func() { notifier.err = nil }()

		deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Lost", 100)
		updated, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{Status: ptr(domain.DealStatusLost)})
		require.NoError(t, err)
		assert.Equal(t, domain.DealStatusLost, updated.Status)
		assert.Contains(t, notifier.closed, deal.ID)
	})
}

func TestService_List(t *testing.T) {
	svc, tc, _ := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	member, _ := tc.NewMember(t, domain.RoleMember)
	testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Small", 100)
	testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Large", 10000)
	testutil.CreateTestDeal(t, tc.DB, contact, member.ID, "Mine", 500)

	t.Run("all deals", func(t *testing.T) {
		res, err := svc.List(ctx, tc.Org.ID, tc.User.ID, deals.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Total)
	})

	t.Run("amount range and ordering", func(t *testing.T) {
		res, err := svc.List(ctx, tc.Org.ID, tc.User.ID, deals.ListFilter{
			MinAmount: dec("100"),
			MaxAmount: dec("500"),
			OrderBy:   "amount",
			Order:     "asc",
		})
		require.NoError(t, err)
		require.Len(t, res.Items, 2)
		assert.Equal(t, "Small", res.Items[0].Title)
		assert.Equal(t, "Mine", res.Items[1].Title)
	})

	t.Run("member owner filter is narrowed to self", func(t *testing.T) {
		res, err := svc.List(ctx, tc.Org.ID, member.ID, deals.ListFilter{OwnerID: &tc.User.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Total)
		assert.Equal(t, "Mine", res.Items[0].Title)
	})

	t.Run("owner filter is honoured for managers of all", func(t *testing.T) {
		res, err := svc.List(ctx, tc.Org.ID, tc.User.ID, deals.ListFilter{OwnerID: &member.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Total)
	})

	t.Run("status filter", func(t *testing.T) {
		res, err := svc.List(ctx, tc.Org.ID, tc.User.ID, deals.ListFilter{Statuses: []domain.DealStatus{domain.DealStatusWon, domain.DealStatusLost}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Total)
	})

	t.Run("pagination", func(t *testing.T) {
		res, err := svc.List(ctx, tc.Org.ID, tc.User.ID, deals.ListFilter{Page: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Total)
		assert.Len(t, res.Items, 1)
	})
}

func TestService_Delete(t *testing.T) {
	svc, tc, _ := setupDealService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "alice")

	deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Doomed", 100)
	testutil.CreateTestTask(t, tc.DB, deal.ID, "Call", testutil.TomorrowUTC())
	_, err := svc.Update(ctx, tc.Org.ID, tc.User.ID, deal.ID, deals.UpdateInput{Status: ptr(domain.DealStatusInProgress)})
	require.NoError(t, err)

	t.Run("member cannot delete others' deals", func(t *testing.T) {
		member, _ := tc.NewMember(t, domain.RoleMember)
		assert.ErrorIs(t, svc.Delete(ctx, tc.Org.ID, member.ID, deal.ID), domain.ErrForbidden)
	})

	t.Run("removes tasks and activities", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, tc.Org.ID, tc.User.ID, deal.ID))

		var tasks, acts int64
		tc.DB.Model(&models.Task{}).Where("deal_id = ?", deal.ID).Count(&tasks)
		tc.DB.Model(&models.Activity{}).Where("deal_id = ?", deal.ID).Count(&acts)
		assert.Zero(t, tasks)
		assert.Zero(t, acts)

		_, err := svc.Get(ctx, tc.Org.ID, tc.User.ID, deal.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/commission"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/testutil"
	"github.com/vendaflow/vendaflow/internal/types"
)

type CommissionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CommissionService
	params  ServiceParams
}

func TestCommissionService(t *testing.T) {
	suite.Run(t, new(CommissionServiceSuite))
}

func (s *CommissionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.params = ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		AccountRepo:      stores.AccountRepo,
		SubscriptionRepo: stores.SubscriptionRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		CommissionRepo:   stores.CommissionRepo,
		FallbackRepo:     stores.FallbackRepo,
		Gateway:          s.GetGateway(),
	}
	s.service = NewCommissionService(s.params)
}

// createChain provisions a payer plus chainLen active referrers and
// returns the payer's account id. Referrers are ordered closest-first.
func (s *CommissionServiceSuite) createChain(chainLen int) (payerID string, referrerIDs []string) {
	var parentID *string
	ids := make([]string, 0, chainLen)
	for i := chainLen; i > 0; i-- {
		acc := s.createAccount(parentID, true)
		parentID = &acc.ID
		ids = append([]string{acc.ID}, ids...)
	}

	payer := s.createAccount(parentID, true)
	return payer.ID, ids
}

func (s *CommissionServiceSuite) createAccount(referrerID *string, adherent bool) *account.Account {
	acc := &account.Account{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:              "Member",
		Email:             types.GenerateUUID() + "@test.com",
		Document:          "12345678901",
		PasswordHash:      "hashed",
		ReferralCode:      types.GenerateShortID(),
		ReferrerID:        referrerID,
		GatewayCustomerID: "cus_" + types.GenerateUUID(),
		Adherent:          adherent,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.params.AccountRepo.Create(s.GetContext(), acc))
	return acc
}

func sumAmounts(rows []*commission.Commission) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total
}

func (s *CommissionServiceSuite) TestTotalIsThirtyPercentForAllChainLengths() {
	amount := decimal.NewFromInt(100)
	expectedTotal := decimal.NewFromInt(30)

	for chainLen := 0; chainLen <= 3; chainLen++ {
		payerID, referrerIDs := s.createChain(chainLen)

		rows, err := s.service.Calculate(s.GetContext(), "ch_chain", payerID, amount)
		s.NoError(err)
		s.True(expectedTotal.Equal(sumAmounts(rows)),
			"chain length %d: expected total 30, got %s", chainLen, sumAmounts(rows))

		// One row per resolved up-line level
		levelRows := 0
		for _, row := range rows {
			if row.Level != types.CommissionLevelPlatform {
				levelRows++
				s.Contains(referrerIDs, row.BeneficiaryID)
			}
		}
		s.Equal(chainLen, levelRows)
	}
}

func (s *CommissionServiceSuite) TestFullChainHasNoRedistribution() {
	payerID, referrerIDs := s.createChain(3)
	amount := decimal.NewFromInt(200)

	rows, err := s.service.Calculate(s.GetContext(), "ch_full", payerID, amount)
	s.NoError(err)
	s.Len(rows, 4)

	byLevel := make(map[types.CommissionLevel]*commission.Commission)
	for _, row := range rows {
		byLevel[row.Level] = row
	}

	s.True(decimal.NewFromInt(30).Equal(byLevel[types.CommissionLevel1].Amount))
	s.Equal(referrerIDs[0], byLevel[types.CommissionLevel1].BeneficiaryID)
	s.True(decimal.NewFromInt(6).Equal(byLevel[types.CommissionLevel2].Amount))
	s.Equal(referrerIDs[1], byLevel[types.CommissionLevel2].BeneficiaryID)
	s.True(decimal.NewFromInt(4).Equal(byLevel[types.CommissionLevel3].Amount))
	s.Equal(referrerIDs[2], byLevel[types.CommissionLevel3].BeneficiaryID)
	s.True(decimal.NewFromInt(20).Equal(byLevel[types.CommissionLevelPlatform].Amount))
	s.Nil(byLevel[types.CommissionLevelPlatform].Bucket)
}

func (s *CommissionServiceSuite) TestInactiveLevelTwoRedistributes() {
	// Build the chain by hand so level 2 can be inactive
	level3 := s.createAccount(nil, true)
	level2 := s.createAccount(&level3.ID, false)
	level1 := s.createAccount(&level2.ID, true)
	payer := s.createAccount(&level1.ID, true)

	amount := decimal.NewFromInt(100)
	rows, err := s.service.Calculate(s.GetContext(), "ch_skip", payer.ID, amount)
	s.NoError(err)

	// level_1, level_3, platform base, growth, reserve
	s.Len(rows, 5)
	s.True(decimal.NewFromInt(30).Equal(sumAmounts(rows)))

	var growth, reserve decimal.Decimal
	for _, row := range rows {
		s.NotEqual(level2.ID, row.BeneficiaryID, "inactive member must not earn")
		if row.Bucket == nil {
			continue
		}
		switch *row.Bucket {
		case types.PlatformBucketGrowth:
			growth = row.Amount
		case types.PlatformBucketReserve:
			reserve = row.Amount
		}
	}

	// Level 2's 3% split 50/50
	s.True(decimal.NewFromFloat(1.50).Equal(growth))
	s.True(decimal.NewFromFloat(1.50).Equal(reserve))
}

func (s *CommissionServiceSuite) TestOddAmountStaysCentExact() {
	payerID, _ := s.createChain(1)
	amount := decimal.NewFromFloat(33.33)

	rows, err := s.service.Calculate(s.GetContext(), "ch_odd", payerID, amount)
	s.NoError(err)

	pool := amount.Mul(decimal.NewFromInt(30)).Div(decimal.NewFromInt(100)).Round(2)
	s.True(pool.Equal(sumAmounts(rows)),
		"expected %s, got %s", pool, sumAmounts(rows))

	for _, row := range rows {
		s.True(row.Amount.Equal(row.Amount.Round(2)), "amounts must be cent-exact")
	}
}

func (s *CommissionServiceSuite) TestProcessPaymentPersistsRows() {
	payerID, _ := s.createChain(2)

	rows := s.service.ProcessPayment(s.GetContext(), "ch_persist", payerID, decimal.NewFromInt(100))
	s.NotEmpty(rows)

	stored, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), "ch_persist")
	s.NoError(err)
	s.Len(stored, len(rows))
}

func (s *CommissionServiceSuite) TestInsertFailureDoesNotBlockSiblings() {
	payerID, _ := s.createChain(3)

	store := s.params.CommissionRepo.(*testutil.InMemoryCommissionStore)
	store.CreateErrFn = func(c *commission.Commission) error {
		if c.Level == types.CommissionLevel2 {
			return ierr.NewError("insert failed").
				WithHint("Failed to create commission").
				Mark(ierr.ErrDatabase)
		}
		return nil
	}

	// Must not panic or propagate the failure
	s.service.ProcessPayment(s.GetContext(), "ch_partial", payerID, decimal.NewFromInt(100))

	stored, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), "ch_partial")
	s.NoError(err)
	s.Len(stored, 3)
	for _, row := range stored {
		s.NotEqual(types.CommissionLevel2, row.Level)
	}
}

func (s *CommissionServiceSuite) TestApplyTransferStatusTransitions() {
	payerID, _ := s.createChain(1)
	rows := s.service.ProcessPayment(s.GetContext(), "ch_transfer", payerID, decimal.NewFromInt(100))
	s.NotEmpty(rows)

	var target *commission.Commission
	for _, row := range rows {
		if row.Level == types.CommissionLevel1 {
			target = row
		}
	}
	s.Require().NotNil(target)

	transferID := "tr_001"
	target.GatewayTransferID = &transferID
	s.NoError(s.params.CommissionRepo.Update(s.GetContext(), target))

	s.NoError(s.service.ApplyTransferStatus(s.GetContext(), transferID, types.WebhookEventTransferDone))
	got, err := s.params.CommissionRepo.Get(s.GetContext(), target.ID)
	s.NoError(err)
	s.Equal(types.CommissionStatusPaid, got.CommissionStatus)
	s.NotNil(got.PaidAt)
	s.WithinDuration(time.Now().UTC(), *got.PaidAt, time.Minute)

	s.NoError(s.service.ApplyTransferStatus(s.GetContext(), transferID, types.WebhookEventTransferFailed))
	got, err = s.params.CommissionRepo.Get(s.GetContext(), target.ID)
	s.NoError(err)
	s.Equal(types.CommissionStatusFailed, got.CommissionStatus)

	s.NoError(s.service.ApplyTransferStatus(s.GetContext(), transferID, types.WebhookEventTransferCancelled))
	got, err = s.params.CommissionRepo.Get(s.GetContext(), target.ID)
	s.NoError(err)
	s.Equal(types.CommissionStatusPending, got.CommissionStatus)
	s.Nil(got.PaidAt)
}

func (s *CommissionServiceSuite) TestUnknownTransferIsNoOp() {
	err := s.service.ApplyTransferStatus(s.GetContext(), "tr_unknown", types.WebhookEventTransferDone)
	s.NoError(err)
}

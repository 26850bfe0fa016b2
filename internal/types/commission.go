package types

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CommissionLevel identifies which up-line level (or the platform) a
// commission row belongs to
type CommissionLevel string

const (
	CommissionLevel1        CommissionLevel = "level_1"
	CommissionLevel2        CommissionLevel = "level_2"
	CommissionLevel3        CommissionLevel = "level_3"
	CommissionLevelPlatform CommissionLevel = "platform"
)

func (l CommissionLevel) String() string {
	return string(l)
}

func (l CommissionLevel) Validate() error {
	allowed := []CommissionLevel{
		CommissionLevel1,
		CommissionLevel2,
		CommissionLevel3,
		CommissionLevelPlatform,
	}
	if !lo.Contains(allowed, l) {
		return fmt.Errorf("invalid commission level: %s", l)
	}
	return nil
}

// CommissionStatus is the payout status of a commission row
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
	CommissionStatusFailed  CommissionStatus = "failed"
)

func (s CommissionStatus) String() string {
	return string(s)
}

// PlatformBucket names the two platform-side buckets that absorb
// redistributed up-line shares. Their downstream disbursement is handled
// outside this service.
type PlatformBucket string

const (
	PlatformBucketGrowth  PlatformBucket = "growth"
	PlatformBucketReserve PlatformBucket = "reserve"
)

// Fixed commission policy. The up-line pool is 20% of payment value
// (15/3/2 across levels 1-3) and the platform base pool is a further 10%,
// so total payouts per payment are always exactly 30%.
var (
	CommissionPercentLevel1   = decimal.NewFromInt(15)
	CommissionPercentLevel2   = decimal.NewFromInt(3)
	CommissionPercentLevel3   = decimal.NewFromInt(2)
	CommissionPercentPlatform = decimal.NewFromInt(10)
)

// UplineLevelPercents returns the per-level percentages in chain order
func UplineLevelPercents() []decimal.Decimal {
	return []decimal.Decimal{
		CommissionPercentLevel1,
		CommissionPercentLevel2,
		CommissionPercentLevel3,
	}
}

// UplineLevels returns the up-line levels in chain order
func UplineLevels() []CommissionLevel {
	return []CommissionLevel{
		CommissionLevel1,
		CommissionLevel2,
		CommissionLevel3,
	}
}

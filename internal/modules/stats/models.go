package stats

import "time"

// DailyStat is the document-level counter for one calendar day.
// Per-account breakdown lives in DailyAccountStat; the invariant is that
// the account rows of a day always sum to the day row. Both are only ever
// written through Service.Record, in a single transaction with arithmetic
// done in SQL, so no reader-side increment can go stale.
type DailyStat struct {
	Date              string    `gorm:"type:char(10);primaryKey"`
	TotalCents        int64     `gorm:"not null;default:0"`
	TotalTransactions int64     `gorm:"not null;default:0"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (DailyStat) TableName() string { return "daily_stats" }

type DailyAccountStat struct {
	Date             string    `gorm:"type:char(10);primaryKey"`
	AccountLabel     string    `gorm:"type:varchar(64);primaryKey"`
	TotalCents       int64     `gorm:"not null;default:0"`
	TransactionCount int64     `gorm:"not null;default:0"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (DailyAccountStat) TableName() string { return "daily_stat_accounts" }

// Day is the assembled read model: one day plus its account breakdown,
// shaped like the original per-day document.
type Day struct {
	Date              string                   `json:"date"`
	TotalCents        int64                    `json:"totalCents"`
	TotalTransactions int64                    `json:"totalTransactions"`
	Accounts          map[string]AccountBucket `json:"accounts"`
}

type AccountBucket struct {
	TotalCents       int64 `json:"totalCents"`
	TransactionCount int64 `json:"transactionCount"`
}

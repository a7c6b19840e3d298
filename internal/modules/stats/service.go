package stats

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoSuchDay = errors.New("no statistics recorded for that day")

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// DateOf formats a timestamp as the statistics day key.
func DateOf(t time.Time) string { return t.Format("2006-01-02") }

// Record adds one successful reconciliation to the day's counters.
// Both the day row and the per-account row are upserted in one transaction
// with the increments computed inside SQL; concurrent webhook deliveries
// for the same day therefore cannot lose updates.
func (s *Service) Record(ctx context.Context, date, accountLabel string, amountCents int64) error {
	if date == "" || accountLabel == "" {
		return errors.New("stats: date and account label are required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		day := DailyStat{
			Date:              date,
			TotalCents:        amountCents,
			TotalTransactions: 1,
			UpdatedAt:         now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_cents":        gorm.Expr("total_cents + ?", amountCents),
				"total_transactions": gorm.Expr("total_transactions + 1"),
				"updated_at":         now,
			}),
		}).Create(&day).Error; err != nil {
			return err
		}

		acct := DailyAccountStat{
			Date:             date,
			AccountLabel:     accountLabel,
			TotalCents:       amountCents,
			TransactionCount: 1,
			UpdatedAt:        now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "account_label"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_cents":       gorm.Expr("total_cents + ?", amountCents),
				"transaction_count": gorm.Expr("transaction_count + 1"),
				"updated_at":        now,
			}),
		}).Create(&acct).Error
	})
}

// Day assembles the per-day document: totals plus account breakdown.
func (s *Service) Day(ctx context.Context, date string) (Day, error) {
	var day DailyStat
	err := s.db.WithContext(ctx).First(&day, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Day{}, ErrNoSuchDay
	}
	if err != nil {
		return Day{}, err
	}

	var accs []DailyAccountStat
	if err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("account_label ASC").
		Find(&accs).Error; err != nil {
		return Day{}, err
	}

	out := Day{
		Date:              day.Date,
		TotalCents:        day.TotalCents,
		TotalTransactions: day.TotalTransactions,
		Accounts:          make(map[string]AccountBucket, len(accs)),
	}
	for _, a := range accs {
		out.Accounts[a.AccountLabel] = AccountBucket{
			TotalCents:       a.TotalCents,
			TransactionCount: a.TransactionCount,
		}
	}
	return out, nil
}

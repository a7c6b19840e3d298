package accounts

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNoUsableAccount = errors.New("no stripe account with usable keys configured")

// Registry reads the configured Stripe accounts in their stable
// configuration order (Position, then label for determinism).
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry { return &Registry{db: db} }

func (r *Registry) All(ctx context.Context) ([]Account, error) {
	var accs []Account
	err := r.db.WithContext(ctx).
		Order("position ASC, label ASC").
		Find(&accs).Error
	return accs, err
}

// VerificationCandidates returns the accounts eligible for webhook
// signature verification, in configuration order. Accounts missing a
// secret key or signing secret are skipped before any crypto work.
func (r *Registry) VerificationCandidates(ctx context.Context) ([]Account, error) {
	accs, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := accs[:0]
	for _, a := range accs {
		if a.CanVerify() {
			out = append(out, a)
		}
	}
	return out, nil
}

// ActiveAccount picks the account used for new outbound charges: the first
// active one with keys, else the first with keys at all.
func (r *Registry) ActiveAccount(ctx context.Context) (Account, error) {
	accs, err := r.All(ctx)
	if err != nil {
		return Account{}, err
	}
	for _, a := range accs {
		if a.Active && a.HasKeys() {
			return a, nil
		}
	}
	for _, a := range accs {
		if a.HasKeys() {
			return a, nil
		}
	}
	return Account{}, ErrNoUsableAccount
}

// TouchUsed records rotation metadata after an outbound charge.
func (r *Registry) TouchUsed(ctx context.Context, label string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&Account{}).
		Where("label = ?", label).
		Updates(map[string]any{"last_used_at": &now, "updated_at": now}).Error
}

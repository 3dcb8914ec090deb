// Package ledger реализует чистую логику распределения денежных сумм по
// корзинам клиента. Порядок списания фиксирован: сначала подарочный кредит
// (additional_gift), затем баланс абонемента (renewal_balance); поле
// current_balance ведёт накопленный итог выставленных счетов. Все функции
// не имеют побочных эффектов и не знают о хранилище: сервисы применяют
// результат внутри одной транзакции.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNonPositiveAmount возвращается, когда сумма операции не больше нуля.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	// ErrNegativeAmount возвращается, когда необязательная сумма отрицательна.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrInsufficientFunds возвращается, когда платёж продления не покрывает долг.
	ErrInsufficientFunds = errors.New("insufficient funds to cover outstanding debt")
	// ErrGiftCapExceeded возвращается, когда подарочный кредит превысил бы лимит.
	ErrGiftCapExceeded = errors.New("additional gift exceeds original gift cap")
	// ErrInvalidBuckets возвращается, когда корзины нарушают инварианты.
	ErrInvalidBuckets = errors.New("invalid bucket state")
)

// Buckets — значение денежных корзин клиента. Инварианты в покое:
// OriginalGift >= 0 и 0 <= AdditionalGift <= OriginalGift.
type Buckets struct {
	Current        decimal.Decimal
	Renewal        decimal.Decimal
	OriginalGift   decimal.Decimal
	AdditionalGift decimal.Decimal
}

// Validate проверяет инварианты корзин.
func (b Buckets) Validate() error {
	if b.OriginalGift.IsNegative() {
		return ErrInvalidBuckets
	}
	if b.AdditionalGift.IsNegative() || b.AdditionalGift.GreaterThan(b.OriginalGift) {
		return ErrInvalidBuckets
	}
	return nil
}

// Breakdown — разбивка списания счёта по корзинам.
type Breakdown struct {
	FromGift    decimal.Decimal
	FromRenewal decimal.Decimal
}

// Total возвращает полную сумму разбивки.
func (br Breakdown) Total() decimal.Decimal {
	return br.FromGift.Add(br.FromRenewal)
}

// RenewalBreakdown — результат распределения платежа продления.
type RenewalBreakdown struct {
	DebtBefore  decimal.Decimal // долг до продления (|renewal| при renewal < 0)
	FromGift    decimal.Decimal // часть долга, погашенная подарочным кредитом
	FromPayment decimal.Decimal // часть долга, удержанная из платежа
	GiftTopUp   decimal.Decimal
}

// Apply списывает положительную сумму счёта с корзин: сначала подарочный
// кредит, остаток — с баланса абонемента (баланс может уйти в минус, это долг).
// Накопленный итог Current увеличивается на всю сумму.
func Apply(b Buckets, amount decimal.Decimal) (Buckets, Breakdown, error) {
	if err := b.Validate(); err != nil {
		return Buckets{}, Breakdown{}, err
	}
	if !amount.IsPositive() {
		return Buckets{}, Breakdown{}, ErrNonPositiveAmount
	}

	fromGift := decimal.Min(b.AdditionalGift, amount)
	fromRenewal := amount.Sub(fromGift)

	next := Buckets{
		Current:        b.Current.Add(amount),
		Renewal:        b.Renewal.Sub(fromRenewal),
		OriginalGift:   b.OriginalGift,
		AdditionalGift: b.AdditionalGift.Sub(fromGift),
	}
	br := Breakdown{FromGift: fromGift, FromRenewal: fromRenewal}
	if err := next.Validate(); err != nil {
		return Buckets{}, Breakdown{}, err
	}
	return next, br, nil
}

// Reverse откатывает ранее применённую разбивку. Подарочная часть
// возвращается в пределах свободного места под лимитом OriginalGift,
// переполнение и абонементная часть уходят в renewal_balance. На клиенте,
// которого никто не трогал между Apply и Reverse, восстановление точное.
func Reverse(b Buckets, br Breakdown) (Buckets, Breakdown, error) {
	if err := b.Validate(); err != nil {
		return Buckets{}, Breakdown{}, err
	}
	if br.FromGift.IsNegative() || br.FromRenewal.IsNegative() {
		return Buckets{}, Breakdown{}, ErrNegativeAmount
	}

	giftSpace := b.OriginalGift.Sub(b.AdditionalGift)
	toGift := decimal.Min(br.FromGift, giftSpace)
	toRenewal := br.Total().Sub(toGift)

	next := Buckets{
		Current:        b.Current.Sub(br.Total()),
		Renewal:        b.Renewal.Add(toRenewal),
		OriginalGift:   b.OriginalGift,
		AdditionalGift: b.AdditionalGift.Add(toGift),
	}
	restored := Breakdown{FromGift: toGift, FromRenewal: toRenewal}
	if err := next.Validate(); err != nil {
		return Buckets{}, Breakdown{}, err
	}
	return next, restored, nil
}

// Renew распределяет платёж продления. Накопленный долг сначала гасится
// подарочным кредитом, остаток долга удерживается из платежа:
// новый renewal_balance = старый + cost - остаток долга. Затем начисляется
// бонусный giftTopUp. Продление, не покрывающее долг, отклоняется целиком.
func Renew(b Buckets, cost, giftTopUp decimal.Decimal) (Buckets, RenewalBreakdown, error) {
	if err := b.Validate(); err != nil {
		return Buckets{}, RenewalBreakdown{}, err
	}
	if !cost.IsPositive() {
		return Buckets{}, RenewalBreakdown{}, ErrNonPositiveAmount
	}
	if giftTopUp.IsNegative() {
		return Buckets{}, RenewalBreakdown{}, ErrNegativeAmount
	}

	totalDue := decimal.Max(decimal.Zero, b.Renewal.Neg())
	fromGift := decimal.Min(totalDue, b.AdditionalGift)
	remainingDue := totalDue.Sub(fromGift)

	newRenewal := b.Renewal.Add(cost).Sub(remainingDue)
	if newRenewal.IsNegative() {
		return Buckets{}, RenewalBreakdown{}, ErrInsufficientFunds
	}

	newGift := b.AdditionalGift.Sub(fromGift).Add(giftTopUp)
	if newGift.GreaterThan(b.OriginalGift) {
		return Buckets{}, RenewalBreakdown{}, ErrGiftCapExceeded
	}

	next := Buckets{
		Current:        b.Current,
		Renewal:        newRenewal,
		OriginalGift:   b.OriginalGift,
		AdditionalGift: newGift,
	}
	br := RenewalBreakdown{
		DebtBefore:  totalDue,
		FromGift:    fromGift,
		FromPayment: remainingDue,
		GiftTopUp:   giftTopUp,
	}
	if err := next.Validate(); err != nil {
		return Buckets{}, RenewalBreakdown{}, err
	}
	return next, br, nil
}

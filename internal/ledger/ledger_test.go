package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buckets(current, renewal, original, additional string) Buckets {
	return Buckets{
		Current:        d(current),
		Renewal:        d(renewal),
		OriginalGift:   d(original),
		AdditionalGift: d(additional),
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name            string
		in              Buckets
		amount          string
		want            Buckets
		wantFromGift    string
		wantFromRenewal string
		wantErr         error
	}{
		{
			name:            "сумма больше подарочного кредита",
			in:              buckets("0", "0", "15", "10"),
			amount:          "12",
			want:            buckets("12", "-2", "15", "0"),
			wantFromGift:    "10",
			wantFromRenewal: "2",
		},
		{
			name:            "сумма меньше подарочного кредита",
			in:              buckets("0", "5", "15", "10"),
			amount:          "4",
			want:            buckets("4", "5", "15", "6"),
			wantFromGift:    "4",
			wantFromRenewal: "0",
		},
		{
			name:            "сумма равна подарочному кредиту",
			in:              buckets("0", "0", "10", "10"),
			amount:          "10",
			want:            buckets("10", "0", "10", "0"),
			wantFromGift:    "10",
			wantFromRenewal: "0",
		},
		{
			name:            "без подарочного кредита весь счёт уходит в абонемент",
			in:              buckets("7", "3", "0", "0"),
			amount:          "5.500",
			want:            buckets("12.5", "-2.5", "0", "0"),
			wantFromGift:    "0",
			wantFromRenewal: "5.500",
		},
		{
			name:            "баланс абонемента углубляется в долг",
			in:              buckets("0", "-4", "0", "0"),
			amount:          "6",
			want:            buckets("6", "-10", "0", "0"),
			wantFromGift:    "0",
			wantFromRenewal: "6",
		},
		{
			name:    "нулевая сумма отклоняется",
			in:      buckets("0", "0", "10", "5"),
			amount:  "0",
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "отрицательная сумма отклоняется",
			in:      buckets("0", "0", "10", "5"),
			amount:  "-3",
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "корзины с нарушенным лимитом отклоняются",
			in:      buckets("0", "0", "5", "8"),
			amount:  "1",
			wantErr: ErrInvalidBuckets,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, br, err := Apply(tt.in, d(tt.amount))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Current.Equal(tt.want.Current), "current: %s", got.Current)
			assert.True(t, got.Renewal.Equal(tt.want.Renewal), "renewal: %s", got.Renewal)
			assert.True(t, got.AdditionalGift.Equal(tt.want.AdditionalGift), "gift: %s", got.AdditionalGift)
			assert.True(t, br.FromGift.Equal(d(tt.wantFromGift)))
			assert.True(t, br.FromRenewal.Equal(d(tt.wantFromRenewal)))
			assert.True(t, br.Total().Equal(d(tt.amount)))
		})
	}
}

func TestReverse(t *testing.T) {
	tests := []struct {
		name    string
		in      Buckets
		br      Breakdown
		want    Buckets
		wantErr error
	}{
		{
			name: "подарочная часть возвращается полностью",
			in:   buckets("12", "-2", "15", "0"),
			br:   Breakdown{FromGift: d("10"), FromRenewal: d("2")},
			want: buckets("0", "0", "15", "10"),
		},
		{
			name: "переполнение лимита уходит в абонемент",
			in:   buckets("12", "-2", "15", "10"),
			br:   Breakdown{FromGift: d("10"), FromRenewal: d("2")},
			// свободного места под лимитом только 5
			want: buckets("0", "5", "15", "15"),
		},
		{
			name: "чисто абонементный откат",
			in:   buckets("6", "-10", "0", "0"),
			br:   Breakdown{FromGift: d("0"), FromRenewal: d("6")},
			want: buckets("0", "-4", "0", "0"),
		},
		{
			name:    "отрицательная разбивка отклоняется",
			in:      buckets("0", "0", "10", "5"),
			br:      Breakdown{FromGift: d("-1"), FromRenewal: d("0")},
			wantErr: ErrNegativeAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Reverse(tt.in, tt.br)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Current.Equal(tt.want.Current), "current: %s", got.Current)
			assert.True(t, got.Renewal.Equal(tt.want.Renewal), "renewal: %s", got.Renewal)
			assert.True(t, got.AdditionalGift.Equal(tt.want.AdditionalGift), "gift: %s", got.AdditionalGift)
		})
	}
}

// Закон кругового обхода: Apply и Reverse той же разбивкой на нетронутом
// клиенте возвращают корзины ровно в исходное состояние.
func TestApplyReverseRoundTrip(t *testing.T) {
	starts := []Buckets{
		buckets("0", "0", "15", "10"),
		buckets("100", "-7", "20", "3"),
		buckets("5.250", "12.125", "0", "0"),
		buckets("0", "0", "50", "50"),
	}
	amounts := []string{"0.001", "3", "12", "49.999", "100"}

	for _, start := range starts {
		for _, amount := range amounts {
			applied, br, err := Apply(start, d(amount))
			require.NoError(t, err)
			restored, _, err := Reverse(applied, br)
			require.NoError(t, err)

			assert.True(t, restored.Current.Equal(start.Current))
			assert.True(t, restored.Renewal.Equal(start.Renewal))
			assert.True(t, restored.AdditionalGift.Equal(start.AdditionalGift))
			require.NoError(t, restored.Validate())
		}
	}
}

func TestRenew(t *testing.T) {
	tests := []struct {
		name         string
		in           Buckets
		cost         string
		giftTopUp    string
		want         Buckets
		wantFromGift string
		wantDue      string
		wantErr      error
	}{
		{
			name:      "долг гасится подарком и платежом",
			in:        buckets("0", "-5", "10", "3"),
			cost:      "20",
			giftTopUp: "2",
			// fromGift = min(5,3) = 3, остаток долга 2, renewal = -5+20-2 = 13
			want:         buckets("0", "13", "10", "2"),
			wantFromGift: "3",
			wantDue:      "5",
		},
		{
			name:         "без долга платёж зачисляется целиком",
			in:           buckets("0", "4", "10", "6"),
			cost:         "15",
			giftTopUp:    "0",
			want:         buckets("0", "19", "10", "6"),
			wantFromGift: "0",
			wantDue:      "0",
		},
		{
			name:      "подарок покрывает долг полностью",
			in:        buckets("0", "-2", "10", "8"),
			cost:      "10",
			giftTopUp: "0",
			// fromGift = 2, остаток долга 0, renewal = -2+10-0 = 8
			want:         buckets("0", "8", "10", "6"),
			wantFromGift: "2",
			wantDue:      "2",
		},
		{
			name:    "платёж не покрывает долг",
			in:      buckets("0", "-50", "0", "0"),
			cost:    "20",
			wantErr: ErrInsufficientFunds,
		},
		{
			name:      "бонус сверх лимита отклоняется",
			in:        buckets("0", "0", "5", "5"),
			cost:      "10",
			giftTopUp: "1",
			wantErr:   ErrGiftCapExceeded,
		},
		{
			name:    "нулевая стоимость продления отклоняется",
			in:      buckets("0", "0", "10", "5"),
			cost:    "0",
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:      "отрицательный бонус отклоняется",
			in:        buckets("0", "0", "10", "5"),
			cost:      "10",
			giftTopUp: "-1",
			wantErr:   ErrNegativeAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topUp := decimal.Zero
			if tt.giftTopUp != "" {
				topUp = d(tt.giftTopUp)
			}
			got, br, err := Renew(tt.in, d(tt.cost), topUp)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Renewal.Equal(tt.want.Renewal), "renewal: %s", got.Renewal)
			assert.True(t, got.AdditionalGift.Equal(tt.want.AdditionalGift), "gift: %s", got.AdditionalGift)
			assert.True(t, got.Current.Equal(tt.want.Current))
			assert.True(t, br.FromGift.Equal(d(tt.wantFromGift)))
			assert.True(t, br.DebtBefore.Equal(d(tt.wantDue)))
			require.NoError(t, got.Validate())
		})
	}
}

func TestBucketsValidate(t *testing.T) {
	assert.NoError(t, buckets("0", "-100", "10", "10").Validate())
	assert.ErrorIs(t, buckets("0", "0", "-1", "0").Validate(), ErrInvalidBuckets)
	assert.ErrorIs(t, buckets("0", "0", "10", "-1").Validate(), ErrInvalidBuckets)
	assert.ErrorIs(t, buckets("0", "0", "10", "11").Validate(), ErrInvalidBuckets)
}

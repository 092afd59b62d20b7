package currency

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryCurrencyRepo struct {
	currencies map[string]Currency
	rates      []ExchangeRate
	nextID     int64
}

func newMemoryCurrencyRepo() *memoryCurrencyRepo {
	return &memoryCurrencyRepo{currencies: make(map[string]Currency)}
}

func (r *memoryCurrencyRepo) List(ctx context.Context) ([]Currency, error) {
	out := make([]Currency, 0, len(r.currencies))
	for _, c := range r.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memoryCurrencyRepo) Get(ctx context.Context, code string) (Currency, error) {
	c, ok := r.currencies[code]
	if !ok {
		return Currency{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryCurrencyRepo) Create(ctx context.Context, c Currency) (Currency, error) {
	if _, ok := r.currencies[c.Code]; ok {
		return Currency{}, ErrDuplicateCode
	}
	r.nextID++
	c.ID = r.nextID
	r.currencies[c.Code] = c
	return c, nil
}

func (r *memoryCurrencyRepo) SetBase(ctx context.Context, code string) error {
	target, ok := r.currencies[code]
	if !ok {
		return ErrNotFound
	}
	for k, c := range r.currencies {
		c.IsBase = false
		r.currencies[k] = c
	}
	target.IsBase = true
	r.currencies[code] = target
	return nil
}

func (r *memoryCurrencyRepo) BaseCode(ctx context.Context) (string, error) {
	for _, c := range r.currencies {
		if c.IsBase {
			return c.Code, nil
		}
	}
	return "", ErrNotFound
}

func (r *memoryCurrencyRepo) InsertRate(ctx context.Context, rate ExchangeRate) (ExchangeRate, error) {
	r.nextID++
	rate.ID = r.nextID
	r.rates = append(r.rates, rate)
	return rate, nil
}

func (r *memoryCurrencyRepo) ListRates(ctx context.Context, code string, limit int) ([]ExchangeRate, error) {
	var out []ExchangeRate
	for _, er := range r.rates {
		if er.Code == code {
			out = append(out, er)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidFrom.After(out[j].ValidFrom) })
	return out, nil
}

func (r *memoryCurrencyRepo) LatestRateBefore(ctx context.Context, code string, asOf time.Time) (ExchangeRate, error) {
	var best *ExchangeRate
	for i := range r.rates {
		er := r.rates[i]
		if er.Code != code || er.ValidFrom.After(asOf) {
			continue
		}
		if best == nil || er.ValidFrom.After(best.ValidFrom) {
			best = &er
		}
	}
	if best == nil {
		return ExchangeRate{}, ErrNoRateAvailable
	}
	return *best, nil
}

func date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolveRatePicksLatestApplicable(t *testing.T) {
	repo := newMemoryCurrencyRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Currency{Code: "IDR", Name: "Indonesian Rupiah"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Currency{Code: "USD", Name: "US Dollar"})
	require.NoError(t, err)
	require.NoError(t, svc.SetBase(ctx, "IDR"))

	_, err = svc.AddRate(ctx, "USD", decimal.NewFromInt(15000), date("2024-01-01"))
	require.NoError(t, err)
	_, err = svc.AddRate(ctx, "USD", decimal.NewFromInt(15500), date("2024-06-01"))
	require.NoError(t, err)

	cases := []struct {
		name string
		asOf string
		want int64
	}{
		{"between rates uses earlier", "2024-03-01", 15000},
		{"after second uses later", "2024-07-01", 15500},
		{"on boundary uses that day's rate", "2024-06-01", 15500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate, err := svc.ResolveRate(ctx, "USD", date(tc.asOf))
			require.NoError(t, err)
			require.True(t, rate.Equal(decimal.NewFromInt(tc.want)), "got %s", rate)
		})
	}
}

func TestResolveRateFailsBeforeFirstRate(t *testing.T) {
	repo := newMemoryCurrencyRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Currency{Code: "USD", Name: "US Dollar"})
	require.NoError(t, err)
	_, err = svc.AddRate(ctx, "USD", decimal.NewFromInt(15000), date("2024-01-01"))
	require.NoError(t, err)

	_, err = svc.ResolveRate(ctx, "USD", date("2023-12-31"))
	require.ErrorIs(t, err, ErrNoRateAvailable)
}

func TestResolveRateBaseCurrencyIsAlwaysOne(t *testing.T) {
	repo := newMemoryCurrencyRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Currency{Code: "IDR", Name: "Indonesian Rupiah"})
	require.NoError(t, err)
	require.NoError(t, svc.SetBase(ctx, "IDR"))

	rate, err := svc.ResolveRate(ctx, "IDR", date("2020-01-01"))
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestSetBaseKeepsSingleBase(t *testing.T) {
	repo := newMemoryCurrencyRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for _, code := range []string{"IDR", "USD", "EUR"} {
		_, err := svc.Create(ctx, Currency{Code: code, Name: code})
		require.NoError(t, err)
	}
	require.NoError(t, svc.SetBase(ctx, "IDR"))
	require.NoError(t, svc.SetBase(ctx, "USD"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	var bases []string
	for _, c := range list {
		if c.IsBase {
			bases = append(bases, c.Code)
		}
	}
	require.Equal(t, []string{"USD"}, bases)
}

func TestAddRateValidation(t *testing.T) {
	repo := newMemoryCurrencyRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Currency{Code: "USD", Name: "US Dollar"})
	require.NoError(t, err)

	_, err = svc.AddRate(ctx, "USD", decimal.Zero, date("2024-01-01"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddRate(ctx, "JPY", decimal.NewFromInt(100), date("2024-01-01"))
	require.ErrorIs(t, err, ErrNotFound)
}

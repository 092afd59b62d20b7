package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
)

type memoryAccountRepo struct {
	accounts map[int64]Account
	nextID   int64
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[int64]Account)}
}

func (r *memoryAccountRepo) List(ctx context.Context, filters shared.ListFilters) ([]Account, int, error) {
	var out []Account
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (r *memoryAccountRepo) Get(ctx context.Context, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryAccountRepo) Create(ctx context.Context, account Account) (Account, error) {
	for _, existing := range r.accounts {
		if existing.Code == account.Code {
			return Account{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	account.ID = r.nextID
	r.accounts[account.ID] = account
	return account, nil
}

func (r *memoryAccountRepo) Update(ctx context.Context, id int64, account Account) error {
	if _, ok := r.accounts[id]; !ok {
		return shared.ErrNotFound
	}
	account.ID = id
	r.accounts[id] = account
	return nil
}

func (r *memoryAccountRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.accounts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *memoryAccountRepo) HasChildren(ctx context.Context, id int64) (bool, error) {
	for _, a := range r.accounts {
		if a.ParentID != nil && *a.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func TestCreateAccountValidation(t *testing.T) {
	svc := NewService(newMemoryAccountRepo())

	_, err := svc.Create(context.Background(), Account{Code: "", Name: "Cash", Type: TypeAsset})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Account{Code: "1000", Name: "Cash", Type: "CASHFLOW"})
	require.ErrorIs(t, err, shared.ErrValidation)

	a, err := svc.Create(context.Background(), Account{Code: "1000", Name: "Cash", Type: TypeAsset, Active: true})
	require.NoError(t, err)
	require.NotZero(t, a.ID)

	_, err = svc.Create(context.Background(), Account{Code: "1000", Name: "Cash again", Type: TypeAsset})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestAccountHierarchyRules(t *testing.T) {
	repo := newMemoryAccountRepo()
	svc := NewService(repo)

	parent, err := svc.Create(context.Background(), Account{Code: "1000", Name: "Current Assets", Type: TypeAsset, Active: true})
	require.NoError(t, err)

	// child with mismatching type is rejected
	_, err = svc.Create(context.Background(), Account{Code: "4000", Name: "Sales", Type: TypeRevenue, ParentID: &parent.ID})
	require.ErrorIs(t, err, shared.ErrValidation)

	child, err := svc.Create(context.Background(), Account{Code: "1010", Name: "Cash", Type: TypeAsset, ParentID: &parent.ID, Active: true})
	require.NoError(t, err)

	// self-parenting is rejected
	err = svc.Update(context.Background(), child.ID, Account{Code: "1010", Name: "Cash", Type: TypeAsset, ParentID: &child.ID})
	require.ErrorIs(t, err, shared.ErrValidation)

	// parents with children cannot be deleted
	err = svc.Delete(context.Background(), parent.ID)
	require.ErrorIs(t, err, shared.ErrInUse)

	require.NoError(t, svc.Delete(context.Background(), child.ID))
	require.NoError(t, svc.Delete(context.Background(), parent.ID))
}

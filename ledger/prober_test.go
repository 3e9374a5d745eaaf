package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	balance    *rpc.GetTokenAccountBalanceResult
	balanceErr error

	info    *rpc.GetAccountInfoResult
	infoErr error

	multi    *rpc.GetMultipleAccountsResult
	multiErr error

	infoCalls int
}

func (f *fakeReader) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.infoCalls++
	return f.info, f.infoErr
}

func (f *fakeReader) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	return f.multi, f.multiErr
}

func (f *fakeReader) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	return f.balance, f.balanceErr
}

func TestProberRefresh_Present(t *testing.T) {
	reader := &fakeReader{
		balance: &rpc.GetTokenAccountBalanceResult{
			Value: &rpc.UiTokenAmount{
				Amount:         "2500000",
				Decimals:       6,
				UiAmountString: "2.5",
			},
		},
	}

	bal := NewProber(reader).Refresh(context.Background(), testOwner, testMint)
	assert.Equal(t, StatusPresent, bal.Status)
	assert.Equal(t, "2.5", bal.Display)
	assert.Equal(t, "2500000", bal.BaseUnits.String())
}

func TestProberRefresh_PresentWithoutUiAmount(t *testing.T) {
	reader := &fakeReader{
		balance: &rpc.GetTokenAccountBalanceResult{
			Value: &rpc.UiTokenAmount{
				Amount:   "1000000",
				Decimals: 6,
			},
		},
	}

	bal := NewProber(reader).Refresh(context.Background(), testOwner, testMint)
	assert.Equal(t, StatusPresent, bal.Status)
	assert.Equal(t, "1", bal.Display)
}

// A failed balance query plus a provably absent account is a normal
// precondition, not a fault: missing with a zero balance.
func TestProberRefresh_Missing(t *testing.T) {
	reader := &fakeReader{
		balanceErr: errors.New("could not find account"),
		infoErr:    rpc.ErrNotFound,
	}

	bal := NewProber(reader).Refresh(context.Background(), testOwner, testMint)
	assert.Equal(t, StatusMissing, bal.Status)
	assert.Equal(t, "0", bal.Display)
	require.NotNil(t, bal.BaseUnits)
	assert.Zero(t, bal.BaseUnits.Sign())
}

func TestProberRefresh_MissingNilValue(t *testing.T) {
	reader := &fakeReader{
		balanceErr: errors.New("could not find account"),
		info:       &rpc.GetAccountInfoResult{},
	}

	bal := NewProber(reader).Refresh(context.Background(), testOwner, testMint)
	assert.Equal(t, StatusMissing, bal.Status)
}

// When both tiers fail the balance is unknown, not zero.
func TestProberRefresh_Unknown(t *testing.T) {
	reader := &fakeReader{
		balanceErr: errors.New("rpc timeout"),
		infoErr:    errors.New("rpc timeout"),
	}

	bal := NewProber(reader).Refresh(context.Background(), testOwner, testMint)
	assert.Equal(t, StatusUnknown, bal.Status)
	assert.Nil(t, bal.BaseUnits)
	assert.Empty(t, bal.Display)
}

// An account that exists but whose balance is unreadable is unknown.
func TestProberRefresh_UnreadableBalance(t *testing.T) {
	reader := &fakeReader{
		balanceErr: errors.New("invalid param: not a token account"),
		info: &rpc.GetAccountInfoResult{
			Value: &rpc.Account{Owner: solana.SystemProgramID},
		},
	}

	bal := NewProber(reader).Refresh(context.Background(), testOwner, testMint)
	assert.Equal(t, StatusUnknown, bal.Status)
	assert.Nil(t, bal.BaseUnits)
}

func TestClientWaitForAccount(t *testing.T) {
	reader := &fakeReader{info: &rpc.GetAccountInfoResult{Value: &rpc.Account{}}}
	client := NewClientWithReader(reader)
	client.SetWaitPolicy(50*time.Millisecond, time.Millisecond)

	assert.True(t, client.WaitForAccount(context.Background(), testOwner))

	reader2 := &fakeReader{infoErr: rpc.ErrNotFound}
	client2 := NewClientWithReader(reader2)
	client2.SetWaitPolicy(20*time.Millisecond, time.Millisecond)
	assert.False(t, client2.WaitForAccount(context.Background(), testOwner))
	assert.Greater(t, reader2.infoCalls, 1)
}

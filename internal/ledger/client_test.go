package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nftAddr         = "0x00000000000000000000000000000000000000a1"
	tokenAddr       = "0x00000000000000000000000000000000000000a2"
	marketplaceAddr = "0x00000000000000000000000000000000000000a3"
	auctionAddr     = "0x00000000000000000000000000000000000000a4"
)

type fakeBackend struct {
	mu       sync.Mutex
	sendErrs []error
	sent     []*types.Transaction
	receipt  func(tx *types.Transaction) *types.Receipt
	pending  int
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
		return nil, ethereum.NotFound
	}
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			if f.receipt != nil {
				return f.receipt(tx), nil
			}
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestClient(t *testing.T, backend Backend) (*Client, Signer) {
	t.Helper()

	treasuryKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	c, err := New(backend, Config{
		ChainID:     296,
		TreasuryKey: hex.EncodeToString(crypto.FromECDSA(treasuryKey)),
		Contracts: Contracts{
			NFT:         nftAddr,
			Token:       tokenAddr,
			Marketplace: marketplaceAddr,
			Auction:     auctionAddr,
		},
		RetryDelay:   time.Millisecond,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	return c, Signer{AccountID: "user", Key: userKey}
}

func TestSubmit_RetriesTransientErrors(t *testing.T) {
	backend := &fakeBackend{
		sendErrs: []error{errors.New("connection reset"), errors.New("connection reset")},
		pending:  2,
	}
	c, user := newTestClient(t, backend)

	res, err := c.PutOffMarketplace(context.Background(), user, 7)
	require.NoError(t, err)

	assert.True(t, res.Status)
	assert.Equal(t, MsgSuccess, res.Message)
	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, 1, backend.sentCount())
}

func TestSubmit_InsufficientBalanceIsTerminal(t *testing.T) {
	backend := &fakeBackend{
		sendErrs: []error{
			errors.New("insufficient funds for gas * price + value"),
			nil,
		},
	}
	c, user := newTestClient(t, backend)

	res, err := c.PlaceBid(context.Background(), user, 7, decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.False(t, res.Status)
	assert.Equal(t, MsgInsufficientBalance, res.Message)
	assert.Equal(t, 0, backend.sentCount())
}

func TestSubmit_GivesUpAfterMaxAttempts(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = errors.New("node unavailable")
	}
	backend := &fakeBackend{sendErrs: errs}
	c, user := newTestClient(t, backend)

	res, err := c.CancelOffer(context.Background(), user, 7)
	require.NoError(t, err)

	assert.False(t, res.Status)
	assert.Equal(t, "node unavailable", res.Message)
	assert.Len(t, backend.sendErrs, 5, "five attempts consumed")
}

func TestSubmit_RevertedReceiptIsNotRetried(t *testing.T) {
	backend := &fakeBackend{
		receipt: func(tx *types.Transaction) *types.Receipt {
			return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: tx.Hash()}
		},
	}
	c, user := newTestClient(t, backend)

	res, err := c.Buy(context.Background(), user, 7, decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.False(t, res.Status)
	assert.Equal(t, MsgReverted, res.Message)
	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, 1, backend.sentCount())
}

func TestSubmit_CancelledContextIsLocalError(t *testing.T) {
	backend := &fakeBackend{sendErrs: []error{errors.New("timeout")}}
	c, user := newTestClient(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.CancelAuction(ctx, user, 7)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMint_ReadsSerialFromTransferLog(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	backend := &fakeBackend{
		receipt: func(tx *types.Transaction) *types.Receipt {
			return &types.Receipt{
				Status: types.ReceiptStatusSuccessful,
				TxHash: tx.Hash(),
				Logs: []*types.Log{{
					Address: common.HexToAddress(nftAddr),
					Topics: []common.Hash{
						transferEventID,
						{},
						common.BytesToHash(owner.Bytes()),
						common.BigToHash(big.NewInt(42)),
					},
				}},
			}
		},
	}
	c, _ := newTestClient(t, backend)

	res, err := c.Mint(context.Background(), owner.Hex())
	require.NoError(t, err)

	assert.True(t, res.Status)
	assert.Equal(t, int64(42), res.Serial)

	sender, err := types.Sender(c.signer, backend.sent[0])
	require.NoError(t, err)
	assert.Equal(t, c.Treasury().Address(), sender)
}

func TestPlaceBid_ScalesAmountByTokenDecimal(t *testing.T) {
	backend := &fakeBackend{}
	c, user := newTestClient(t, backend)

	_, err := c.PlaceBid(context.Background(), user, 9, decimal.RequireFromString("12.34"))
	require.NoError(t, err)

	tx := backend.sent[0]
	assert.Equal(t, common.HexToAddress(auctionAddr), *tx.To())
	assert.Equal(t, DefaultGas, tx.Gas())

	method := c.contracts.abi[ContractAuction].Methods["placeBid"]
	assert.Equal(t, method.ID, tx.Data()[:4])

	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(nftAddr), args[0])
	assert.Equal(t, int64(9), args[1])
	assert.Equal(t, int64(1234), args[2])

	sender, err := types.Sender(c.signer, tx)
	require.NoError(t, err)
	assert.Equal(t, user.Address(), sender)
}

func TestTransactionFee(t *testing.T) {
	backend := &fakeBackend{}
	c, user := newTestClient(t, backend)
	backend.receipt = func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{
			Status:            types.ReceiptStatusSuccessful,
			TxHash:            tx.Hash(),
			GasUsed:           21000,
			EffectiveGasPrice: big.NewInt(1_000_000_000),
		}
	}

	res, err := c.CancelAuction(context.Background(), user, 1)
	require.NoError(t, err)

	fee, err := c.TransactionFee(context.Background(), res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "0.000021", fee)
}

func TestNew_RejectsBadContractAddress(t *testing.T) {
	key, _ := crypto.GenerateKey()
	_, err := New(&fakeBackend{}, Config{
		TreasuryKey: hex.EncodeToString(crypto.FromECDSA(key)),
		Contracts:   Contracts{NFT: "0.0.1234"},
	})
	assert.Error(t, err)
}

func TestNewSigner(t *testing.T) {
	key, _ := crypto.GenerateKey()
	s, err := NewSigner("", "0x"+hex.EncodeToString(crypto.FromECDSA(key)))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), s.AccountID)

	_, err = NewSigner("x", "nothex")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

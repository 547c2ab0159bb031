package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"realestate/internal/logger"
	"realestate/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// TokenDecimal is the number of decimals of the payment token.
	TokenDecimal = 2
	// DefaultGas is the gas limit attached to every contract call.
	DefaultGas = uint64(1_000_000)

	// MsgInsufficientBalance replaces the node's error when the signer
	// cannot pay for gas.
	MsgInsufficientBalance = "Not enough HBAR balance to execute transaction"
	MsgSuccess             = "Success"
	MsgReverted            = "CONTRACT_REVERT_EXECUTED"

	mintMetadata = "KLAYTN NFT"
)

var (
	ErrInsufficientBalance = errors.New(MsgInsufficientBalance)
	ErrFeeUnavailable      = errors.New("ledger: transaction fee unavailable")

	transferEventID = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

// Backend is the part of an EVM JSON-RPC client the ledger needs.
// *ethclient.Client satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Result is the outcome of one ledger call. Ledger-side failures are
// reported here with Status false so the caller can still record them.
type Result struct {
	TransactionID string
	Status        bool
	Message       string
	Serial        int64
}

type Config struct {
	ChainID        int64
	TreasuryKey    string
	InitialBalance string
	Contracts      Contracts
	MaxAttempts    int
	RetryDelay     time.Duration
	PollInterval   time.Duration
	ReceiptTimeout time.Duration
}

type Client struct {
	backend        Backend
	chainID        *big.Int
	signer         types.Signer
	contracts      *contractSet
	treasury       Signer
	initialBalance *big.Int
	maxAttempts    int
	retryDelay     time.Duration
	pollInterval   time.Duration
	receiptTimeout time.Duration
}

// Dial connects to the JSON-RPC endpoint at rpcURL.
func Dial(ctx context.Context, rpcURL string, cfg Config) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", rpcURL, err)
	}
	return New(ec, cfg)
}

func New(backend Backend, cfg Config) (*Client, error) {
	contracts, err := loadContracts(cfg.Contracts)
	if err != nil {
		return nil, err
	}

	treasury, err := NewSigner("", cfg.TreasuryKey)
	if err != nil {
		return nil, fmt.Errorf("ledger: treasury key: %w", err)
	}

	initial := new(big.Int)
	if cfg.InitialBalance != "" {
		d, err := decimal.NewFromString(cfg.InitialBalance)
		if err != nil {
			return nil, fmt.Errorf("ledger: initial balance: %w", err)
		}
		// whole units to wei
		initial = d.Shift(18).BigInt()
	}

	c := &Client{
		backend:        backend,
		chainID:        big.NewInt(cfg.ChainID),
		signer:         types.LatestSignerForChainID(big.NewInt(cfg.ChainID)),
		contracts:      contracts,
		treasury:       treasury,
		initialBalance: initial,
		maxAttempts:    cfg.MaxAttempts,
		retryDelay:     cfg.RetryDelay,
		pollInterval:   cfg.PollInterval,
		receiptTimeout: cfg.ReceiptTimeout,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 5
	}
	if c.retryDelay <= 0 {
		c.retryDelay = time.Second
	}
	if c.pollInterval <= 0 {
		c.pollInterval = time.Second
	}
	if c.receiptTimeout <= 0 {
		c.receiptTimeout = 2 * time.Minute
	}
	return c, nil
}

// Treasury is the platform signer used for minting and account funding.
func (c *Client) Treasury() Signer {
	return c.treasury
}

// ContractAddress returns the hex address of a configured contract.
func (c *Client) ContractAddress(ct Contract) string {
	return c.contracts.address(ct).Hex()
}

// ============================================================================
// Accounts
// ============================================================================

// CreateAccount generates a key pair and, when an initial balance is
// configured, funds the new address from the treasury.
func (c *Client) CreateAccount(ctx context.Context) (*Account, error) {
	acc, err := newAccount()
	if err != nil {
		return nil, err
	}
	if c.initialBalance.Sign() == 0 {
		return acc, nil
	}

	to := common.HexToAddress(acc.Address)
	res, _, err := c.submit(ctx, "createAccount", c.treasury, to, nil, c.initialBalance)
	if err != nil {
		return nil, err
	}
	if !res.Status {
		return nil, fmt.Errorf("ledger: fund account: %s", res.Message)
	}
	acc.TransactionID = res.TransactionID
	return acc, nil
}

// ============================================================================
// NFT and token contracts
// ============================================================================

// Mint mints one NFT to toAddress, signed by the treasury. Result.Serial
// carries the new token id.
func (c *Client) Mint(ctx context.Context, toAddress string) (*Result, error) {
	data, err := c.contracts.pack(ContractNFT, "mint", common.HexToAddress(toAddress), [][]byte{[]byte(mintMetadata)})
	if err != nil {
		return nil, err
	}

	res, receipt, err := c.submit(ctx, "mint", c.treasury, c.contracts.address(ContractNFT), data, nil)
	if err != nil || !res.Status {
		return res, err
	}

	serial, ok := c.mintedSerial(receipt)
	if !ok {
		res.Status = false
		res.Message = "mint receipt carries no Transfer event"
		return res, nil
	}
	res.Serial = serial
	return res, nil
}

func (c *Client) mintedSerial(receipt *types.Receipt) (int64, bool) {
	nft := c.contracts.address(ContractNFT)
	for _, l := range receipt.Logs {
		if l.Address != nft || len(l.Topics) != 4 || l.Topics[0] != transferEventID {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[3].Bytes()).Int64(), true
	}
	return 0, false
}

func (c *Client) TransferNFT(ctx context.Context, s Signer, toAddress string, tokenID int64) (*Result, error) {
	return c.call(ctx, s, ContractNFT, "transferFrom", s.Address(), common.HexToAddress(toAddress), tokenID)
}

func (c *Client) TransferToken(ctx context.Context, s Signer, toAddress string, amount decimal.Decimal) (*Result, error) {
	return c.call(ctx, s, ContractToken, "transferFrom", s.Address(), common.HexToAddress(toAddress), toUnits(amount))
}

// ApproveNFT lets spender move tokenID on the signer's behalf.
func (c *Client) ApproveNFT(ctx context.Context, s Signer, spender Contract, tokenID int64) (*Result, error) {
	return c.call(ctx, s, ContractNFT, "approve", c.contracts.address(spender), big.NewInt(tokenID))
}

// ApproveToken sets spender's payment token allowance to amount.
func (c *Client) ApproveToken(ctx context.Context, s Signer, spender Contract, amount decimal.Decimal) (*Result, error) {
	return c.call(ctx, s, ContractToken, "approve", c.contracts.address(spender), toUnitsBig(amount))
}

// ============================================================================
// Marketplace contract
// ============================================================================

func (c *Client) PutOnMarketplace(ctx context.Context, s Signer, tokenID int64, price decimal.Decimal) (*Result, error) {
	return c.call(ctx, s, ContractMarketplace, "putNftOnMarketplace",
		c.contracts.address(ContractNFT), tokenID, c.contracts.address(ContractToken), toUnits(price))
}

func (c *Client) PutOffMarketplace(ctx context.Context, s Signer, tokenID int64) (*Result, error) {
	return c.call(ctx, s, ContractMarketplace, "putNftOffMarketplace", c.contracts.address(ContractNFT), tokenID)
}

func (c *Client) Buy(ctx context.Context, s Signer, tokenID int64, price decimal.Decimal) (*Result, error) {
	return c.call(ctx, s, ContractMarketplace, "buy",
		c.contracts.address(ContractNFT), tokenID, c.contracts.address(ContractToken), toUnits(price))
}

func (c *Client) MakeOffer(ctx context.Context, s Signer, tokenID int64, price decimal.Decimal) (*Result, error) {
	return c.call(ctx, s, ContractMarketplace, "makeOffer",
		c.contracts.address(ContractNFT), tokenID, c.contracts.address(ContractToken), toUnits(price))
}

func (c *Client) AcceptOffer(ctx context.Context, s Signer, tokenID int64, buyerAddress string) (*Result, error) {
	return c.call(ctx, s, ContractMarketplace, "acceptOfferNFT",
		c.contracts.address(ContractNFT), tokenID, common.HexToAddress(buyerAddress))
}

func (c *Client) CancelOffer(ctx context.Context, s Signer, tokenID int64) (*Result, error) {
	return c.call(ctx, s, ContractMarketplace, "cancelOffer", c.contracts.address(ContractNFT), tokenID)
}

// ============================================================================
// Auction contract
// ============================================================================

func (c *Client) CreateAuction(ctx context.Context, s Signer, tokenID int64, minPrice, winningPrice decimal.Decimal, start, end time.Time) (*Result, error) {
	minimumBid := toUnits(decimal.NewFromInt(1))
	return c.call(ctx, s, ContractAuction, "createAuction",
		c.contracts.address(ContractNFT), tokenID, c.contracts.address(ContractToken),
		toUnits(minPrice), toUnits(winningPrice), minimumBid, start.Unix(), end.Unix())
}

func (c *Client) CancelAuction(ctx context.Context, s Signer, tokenID int64) (*Result, error) {
	return c.call(ctx, s, ContractAuction, "cancelAuction", c.contracts.address(ContractNFT), tokenID)
}

func (c *Client) PlaceBid(ctx context.Context, s Signer, tokenID int64, amount decimal.Decimal) (*Result, error) {
	return c.call(ctx, s, ContractAuction, "placeBid", c.contracts.address(ContractNFT), tokenID, toUnits(amount))
}

// CompleteAuction settles the auction with its highest bid.
func (c *Client) CompleteAuction(ctx context.Context, s Signer, tokenID int64) (*Result, error) {
	return c.call(ctx, s, ContractAuction, "completeBid", c.contracts.address(ContractNFT), tokenID)
}

// ============================================================================
// Fees
// ============================================================================

// TransactionFee returns the fee paid by txID in whole native units.
func (c *Client) TransactionFee(ctx context.Context, txID string) (string, error) {
	receipt, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txID))
	if err != nil {
		return "", err
	}
	if receipt.EffectiveGasPrice == nil {
		return "", ErrFeeUnavailable
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	return decimal.NewFromBigInt(wei, -18).String(), nil
}

// ============================================================================
// Submission
// ============================================================================

func (c *Client) call(ctx context.Context, s Signer, ct Contract, method string, args ...interface{}) (*Result, error) {
	data, err := c.contracts.pack(ct, method, args...)
	if err != nil {
		return nil, err
	}
	res, _, err := c.submit(ctx, method, s, c.contracts.address(ct), data, nil)
	return res, err
}

// submit signs and sends one transaction and waits for its receipt. Sending
// is retried with a constant delay; an insufficient balance stops the loop.
// Once a transaction has been accepted it is never resent.
func (c *Client) submit(ctx context.Context, fn string, s Signer, to common.Address, data []byte, value *big.Int) (*Result, *types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}

	var (
		receipt *types.Receipt
		txHash  common.Hash
		attempt int
	)

	op := func() error {
		attempt++
		signed, err := c.sign(ctx, s, to, data, value)
		if err != nil {
			return classify(err)
		}
		if err := c.backend.SendTransaction(ctx, signed); err != nil {
			return classify(err)
		}
		txHash = signed.Hash()

		receipt, err = c.waitReceipt(ctx, txHash)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		metrics.LedgerRetriesTotal.WithLabelValues(fn).Inc()
		logger.WarnCtx(ctx, "[Ledger] retrying contract call",
			zap.String("function", fn),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxAttempts-1)),
		ctx,
	)

	err := backoff.RetryNotify(op, policy, notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}

		res := &Result{Status: false, Message: err.Error()}
		if errors.Is(err, ErrInsufficientBalance) {
			res.Message = MsgInsufficientBalance
		}
		if txHash != (common.Hash{}) {
			res.TransactionID = txHash.Hex()
		}
		c.observe(fn, res)
		return res, nil, nil
	}

	res := &Result{TransactionID: txHash.Hex(), Status: true, Message: MsgSuccess}
	if receipt.Status != types.ReceiptStatusSuccessful {
		res.Status = false
		res.Message = MsgReverted
	}
	c.observe(fn, res)
	return res, receipt, nil
}

func (c *Client) sign(ctx context.Context, s Signer, to common.Address, data []byte, value *big.Int) (*types.Transaction, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, s.Address())
	if err != nil {
		return nil, err
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      DefaultGas,
		GasPrice: gasPrice,
		Data:     data,
	})
	return types.SignTx(tx, c.signer, s.Key)
}

func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) observe(fn string, res *Result) {
	status := "success"
	if !res.Status {
		status = "failed"
	}
	metrics.LedgerCallsTotal.WithLabelValues(fn, status).Inc()
}

func classify(err error) error {
	if isInsufficientBalance(err) {
		return backoff.Permanent(ErrInsufficientBalance)
	}
	return err
}

func isInsufficientBalance(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient funds") ||
		strings.Contains(msg, "insufficient_payer_balance") ||
		strings.Contains(msg, "insufficient_account_balance")
}

func toUnits(d decimal.Decimal) int64 {
	return d.Shift(TokenDecimal).IntPart()
}

func toUnitsBig(d decimal.Decimal) *big.Int {
	return d.Shift(TokenDecimal).BigInt()
}

package crowdsale

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guildhall-studio/guildcoin/core/access"
	"github.com/guildhall-studio/guildcoin/core/token"
)

var (
	admin      = common.HexToAddress("0xA1")
	pauser     = common.HexToAddress("0xA2")
	manager    = common.HexToAddress("0xA3")
	buyer      = common.HexToAddress("0xC1")
	treasury   = common.HexToAddress("0xE1")
	saleModule = common.HexToAddress("0xD1")
)

type paymentCall struct {
	spender, owner, to common.Address
	amount             uint64
}

// fakePayment records delegated transfers and can be told to fail.
type fakePayment struct {
	calls    []paymentCall
	failWith error
}

func (f *fakePayment) TransferFrom(spender, owner, to common.Address, amount uint64) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.calls = append(f.calls, paymentCall{spender, owner, to, amount})
	return nil
}

func newTestSale(t *testing.T, maxSupply uint64) (*Sale, *token.Token, *fakePayment) {
	t.Helper()

	acl := access.NewRegistry(admin, zap.NewNop())
	require.NoError(t, acl.GrantRole(admin, access.RolePauser, pauser))
	require.NoError(t, acl.GrantRole(admin, access.RoleBlacklistManager, manager))

	tok, err := token.New(token.Config{
		Name:      "GuildCoin",
		Symbol:    "GLD",
		Decimals:  18,
		MaxSupply: maxSupply,
		Admin:     admin,
	}, acl, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, tok.BindSaleModule(admin, saleModule))

	payment := &fakePayment{}
	sale, err := New(Config{
		Rate:     30,
		Treasury: treasury,
		Module:   saleModule,
	}, tok, payment, zap.NewNop())
	require.NoError(t, err)
	return sale, tok, payment
}

func TestBuy(t *testing.T) {
	t.Run("One payment unit yields thirty tokens", func(t *testing.T) {
		sale, tok, payment := newTestSale(t, 1_000_000)

		purchase, err := sale.Buy(buyer, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(30), purchase.IssuedAmount)
		assert.Equal(t, uint64(30), tok.BalanceOf(buyer))
		assert.Equal(t, uint64(30), tok.TotalSupply())

		require.Len(t, payment.calls, 1)
		assert.Equal(t, saleModule, payment.calls[0].spender)
		assert.Equal(t, buyer, payment.calls[0].owner)
		assert.Equal(t, treasury, payment.calls[0].to)
		assert.Equal(t, uint64(1), payment.calls[0].amount)
	})

	t.Run("Conversion scales with payment amount", func(t *testing.T) {
		sale, tok, _ := newTestSale(t, 1_000_000)
		purchase, err := sale.Buy(buyer, 250)
		require.NoError(t, err)
		assert.Equal(t, uint64(7_500), purchase.IssuedAmount)
		assert.Equal(t, uint64(7_500), tok.BalanceOf(buyer))
	})

	t.Run("Rejects degenerate inputs", func(t *testing.T) {
		sale, _, payment := newTestSale(t, 1_000_000)
		_, err := sale.Buy(common.Address{}, 1)
		assert.ErrorIs(t, err, token.ErrZeroAddress)
		_, err = sale.Buy(buyer, 0)
		assert.ErrorIs(t, err, token.ErrZeroAmount)
		assert.Empty(t, payment.calls)
	})

	t.Run("Supply ceiling rejects before the payment pull", func(t *testing.T) {
		// Room for 90 tokens: a 4-unit purchase would need 120.
		sale, tok, payment := newTestSale(t, 90)

		_, err := sale.Buy(buyer, 4)
		assert.ErrorIs(t, err, token.ErrExceedsMaxSupply)
		assert.Empty(t, payment.calls, "payment must not be taken for a rejected purchase")
		assert.Equal(t, uint64(0), tok.BalanceOf(buyer))

		// A purchase that fits still goes through.
		purchase, err := sale.Buy(buyer, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(90), purchase.IssuedAmount)
	})

	t.Run("Payment failure issues nothing", func(t *testing.T) {
		sale, tok, payment := newTestSale(t, 1_000_000)
		payment.failWith = errors.New("allowance exceeded")

		_, err := sale.Buy(buyer, 10)
		assert.Error(t, err)
		assert.Equal(t, uint64(0), tok.BalanceOf(buyer))
		assert.Equal(t, uint64(0), tok.TotalSupply())
		assert.Empty(t, sale.Purchases())
	})

	t.Run("Module pause is independent from the ledger pause", func(t *testing.T) {
		sale, tok, payment := newTestSale(t, 1_000_000)

		require.NoError(t, sale.SetPaused(admin, true))
		_, err := sale.Buy(buyer, 1)
		assert.ErrorIs(t, err, ErrSalePaused)
		assert.Empty(t, payment.calls)
		assert.False(t, tok.Paused())

		require.NoError(t, sale.SetPaused(admin, false))
		_, err = sale.Buy(buyer, 1)
		assert.NoError(t, err)
	})

	t.Run("Ledger pause blocks purchases before the pull", func(t *testing.T) {
		sale, tok, payment := newTestSale(t, 1_000_000)
		require.NoError(t, tok.Pause(pauser))

		_, err := sale.Buy(buyer, 1)
		assert.ErrorIs(t, err, token.ErrPaused)
		assert.Empty(t, payment.calls)
	})

	t.Run("Blacklisted buyer rejected before the pull", func(t *testing.T) {
		sale, tok, payment := newTestSale(t, 1_000_000)
		require.NoError(t, tok.SetBlacklisted(manager, buyer, true))

		_, err := sale.Buy(buyer, 1)
		assert.ErrorIs(t, err, token.ErrBlacklisted)
		assert.Empty(t, payment.calls)
	})

	t.Run("Receipts are recorded", func(t *testing.T) {
		sale, _, _ := newTestSale(t, 1_000_000)
		_, err := sale.Buy(buyer, 2)
		require.NoError(t, err)
		_, err = sale.Buy(buyer, 5)
		require.NoError(t, err)

		receipts := sale.Purchases()
		require.Len(t, receipts, 2)
		assert.Equal(t, uint64(60), receipts[0].IssuedAmount)
		assert.Equal(t, uint64(150), receipts[1].IssuedAmount)
		assert.NotEmpty(t, receipts[0].ID)
	})
}

func TestSaleAdministration(t *testing.T) {
	sale, _, _ := newTestSale(t, 1_000_000)

	t.Run("Pause flag requires admin", func(t *testing.T) {
		assert.ErrorIs(t, sale.SetPaused(buyer, true), access.ErrUnauthorized)
		assert.False(t, sale.IsPaused())
	})

	t.Run("Treasury change requires admin and non-zero account", func(t *testing.T) {
		newTreasury := common.HexToAddress("0xE2")
		assert.ErrorIs(t, sale.SetTreasury(buyer, newTreasury), access.ErrUnauthorized)
		assert.ErrorIs(t, sale.SetTreasury(admin, common.Address{}), token.ErrZeroAddress)

		assert.NoError(t, sale.SetTreasury(admin, newTreasury))
		assert.Equal(t, newTreasury, sale.Treasury())
	})

	t.Run("Rate is fixed", func(t *testing.T) {
		assert.Equal(t, uint64(30), sale.Rate())
	})
}

func TestNewSaleValidation(t *testing.T) {
	acl := access.NewRegistry(admin, nil)
	tok, err := token.New(token.Config{Name: "GuildCoin", Symbol: "GLD", Admin: admin}, acl, nil)
	require.NoError(t, err)

	_, err = New(Config{Rate: 0, Treasury: treasury, Module: saleModule}, tok, &fakePayment{}, nil)
	assert.ErrorIs(t, err, token.ErrZeroAmount)

	_, err = New(Config{Rate: 30, Module: saleModule}, tok, &fakePayment{}, nil)
	assert.ErrorIs(t, err, token.ErrZeroAddress)

	_, err = New(Config{Rate: 30, Treasury: treasury}, tok, &fakePayment{}, nil)
	assert.ErrorIs(t, err, token.ErrZeroAddress)
}

// The payment collaborator in production is another ledger; run the whole
// approve → buy flow against one to cover the integration.
func TestBuyAgainstPaymentLedger(t *testing.T) {
	acl := access.NewRegistry(admin, zap.NewNop())

	gld, err := token.New(token.Config{
		Name: "GuildCoin", Symbol: "GLD", MaxSupply: 1_000_000, Admin: admin,
	}, acl, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, gld.BindSaleModule(admin, saleModule))

	susd, err := token.New(token.Config{
		Name: "StableUSD", Symbol: "SUSD", MaxSupply: 1_000_000, InitialSupply: 1_000_000, Admin: admin,
	}, acl, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, susd.Transfer(admin, buyer, 1_000))

	sale, err := New(Config{Rate: 30, Treasury: treasury, Module: saleModule},
		gld, ledgerPayment{susd}, zap.NewNop())
	require.NoError(t, err)

	t.Run("Fails without approval", func(t *testing.T) {
		_, err := sale.Buy(buyer, 100)
		assert.ErrorIs(t, err, token.ErrInsufficientAllowance)
		assert.Equal(t, uint64(0), gld.BalanceOf(buyer))
		assert.Equal(t, uint64(1_000), susd.BalanceOf(buyer))
	})

	t.Run("Approve then buy", func(t *testing.T) {
		require.NoError(t, susd.Approve(buyer, saleModule, 100))

		purchase, err := sale.Buy(buyer, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(3_000), purchase.IssuedAmount)
		assert.Equal(t, uint64(3_000), gld.BalanceOf(buyer))
		assert.Equal(t, uint64(900), susd.BalanceOf(buyer))
		assert.Equal(t, uint64(100), susd.BalanceOf(treasury))
		assert.Equal(t, uint64(0), susd.Allowance(buyer, saleModule))
	})
}

type ledgerPayment struct {
	ledger *token.Token
}

func (p ledgerPayment) TransferFrom(spender, owner, to common.Address, amount uint64) error {
	return p.ledger.TransferFrom(spender, owner, to, amount)
}

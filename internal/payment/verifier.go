// Package payment verifies on-chain payments made to the treasury.
//
// A verification is a single pass over one transaction receipt: reuse check,
// fetch, status and age checks, amount extraction for the requested Kind,
// and a tolerance check against the expected amount. Accepted signatures are
// remembered so a transaction pays for one thing only.
package payment

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/solana"
)

var logger = log.NewLogger("payment")

const DefaultMaxAge = time.Hour

// Reason classifies a rejected verdict.
type Reason string

const (
	ReasonReused       Reason = "signature_reused"
	ReasonNotFound     Reason = "not_found"
	ReasonFailed       Reason = "failed_on_chain"
	ReasonTooOld       Reason = "too_old"
	ReasonInsufficient Reason = "insufficient_payment"
	ReasonUnverifiable Reason = "verification_failed"
)

// Verdict is the outcome of one verification.
type Verdict struct {
	Valid  bool            `json:"valid"`
	Amount decimal.Decimal `json:"amount"`
	Sender string          `json:"sender,omitempty"`
	Error  string          `json:"error,omitempty"`
	Reason Reason          `json:"reason,omitempty"`
	TxTime *time.Time      `json:"txTime,omitempty"`
}

func reject(reason Reason, msg string) Verdict {
	return Verdict{Reason: reason, Error: msg}
}

// Unverifiable turns a transport or decoding error into a verdict.
func Unverifiable(err error) Verdict {
	return reject(ReasonUnverifiable, fmt.Sprintf("Verification failed: %v", err))
}

// TransactionFetcher is satisfied by *solana.Client.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

type Options struct {
	Treasury        string
	NativeTolerance decimal.Decimal
	TokenTolerance  decimal.Decimal
	MaxAge          time.Duration
	Now             func() time.Time
}

type Verifier struct {
	rpc             TransactionFetcher
	seen            SignatureSet
	treasury        string
	nativeTolerance decimal.Decimal
	tokenTolerance  decimal.Decimal
	maxAge          time.Duration
	now             func() time.Time
}

func NewVerifier(rpc TransactionFetcher, seen SignatureSet, opts Options) *Verifier {
	if seen == nil {
		seen = NewSeenSignatures(DefaultSeenCapacity)
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Verifier{
		rpc:             rpc,
		seen:            seen,
		treasury:        opts.Treasury,
		nativeTolerance: opts.NativeTolerance,
		tokenTolerance:  opts.TokenTolerance,
		maxAge:          opts.MaxAge,
		now:             opts.Now,
	}
}

// Tolerance returns the fraction of the expected amount that may be missing
// for kind.
func (v *Verifier) Tolerance(kind Kind) decimal.Decimal {
	if kind.IsNative() {
		return v.nativeTolerance
	}
	return v.tokenTolerance
}

// Verify checks that signature pays at least expected (less tolerance) to
// the treasury. Rejections are reported in the verdict; the error is
// non-nil only when the receipt could not be fetched or decoded.
func (v *Verifier) Verify(ctx context.Context, signature string, kind Kind, expected decimal.Decimal) (Verdict, error) {
	if !kind.Valid() {
		return Verdict{}, fmt.Errorf("payment kind not configured")
	}
	if v.seen.Has(ctx, signature) {
		return reject(ReasonReused, "Transaction signature already used"), nil
	}

	tx, err := v.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return Verdict{}, fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil {
		return reject(ReasonNotFound, "Transaction not found. Make sure it's confirmed."), nil
	}
	if tx.Meta.Failed() {
		return reject(ReasonFailed, "Transaction failed on-chain"), nil
	}

	var txTime *time.Time
	if tx.BlockTime != nil {
		t := time.Unix(*tx.BlockTime, 0)
		txTime = &t
		if v.now().Sub(t) > v.maxAge {
			return reject(ReasonTooOld, "Transaction too old. Must be within last hour."), nil
		}
	}

	var amount decimal.Decimal
	var sender string
	if kind.IsNative() {
		amount, sender = v.nativeTransfer(tx)
	} else {
		amount, sender = v.tokenTransfer(tx, kind.Mint())
	}

	minimum := expected.Mul(decimal.NewFromInt(1).Sub(v.Tolerance(kind)))
	if amount.LessThan(minimum) {
		verdict := reject(ReasonInsufficient, fmt.Sprintf("Insufficient payment. Expected %s %s, got %s %s",
			expected.String(), kind.Symbol(), amount.StringFixed(2), kind.Symbol()))
		verdict.Amount = amount
		verdict.Sender = sender
		return verdict, nil
	}

	if !v.seen.Add(ctx, signature) {
		return reject(ReasonReused, "Transaction signature already used"), nil
	}

	logger.Debug().Str("kind", kind.String()).Str("amount", amount.String()).Str("sender", sender).Msg("payment accepted")
	return Verdict{
		Valid:  true,
		Amount: amount,
		Sender: sender,
		TxTime: txTime,
	}, nil
}

// nativeTransfer prefers a parsed system transfer to the treasury and falls
// back to lamport balance deltas.
func (v *Verifier) nativeTransfer(tx *solana.Transaction) (decimal.Decimal, string) {
	for _, ix := range tx.Transaction.Message.Instructions {
		t, ok := ix.SystemTransfer()
		if ok && t.Destination == v.treasury && t.Lamports > 0 {
			return lamportsToSOL(t.Lamports), t.Source
		}
	}

	if tx.Meta == nil {
		return decimal.Zero, ""
	}
	pre, post := tx.Meta.PreBalances, tx.Meta.PostBalances
	n := min(len(pre), len(post), len(tx.Transaction.Message.AccountKeys))

	var amount decimal.Decimal
	received := false
	for i := 0; i < n; i++ {
		if tx.AccountAt(i) == v.treasury && post[i] > pre[i] {
			amount = lamportsToSOL(post[i] - pre[i])
			received = true
			break
		}
	}
	if !received {
		return decimal.Zero, ""
	}
	for i := 0; i < n; i++ {
		if tx.AccountAt(i) != v.treasury && post[i] < pre[i] {
			return amount, tx.AccountAt(i)
		}
	}
	return amount, ""
}

// tokenTransfer measures the treasury's balance increase for mint and finds
// the owner whose balance of mint fell.
func (v *Verifier) tokenTransfer(tx *solana.Transaction, mint string) (decimal.Decimal, string) {
	if tx.Meta == nil {
		return decimal.Zero, ""
	}
	pre, post := tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances

	for _, p := range post {
		if p.Mint != mint || p.Owner != v.treasury {
			continue
		}
		before := decimal.Zero
		for _, b := range pre {
			if b.AccountIndex == p.AccountIndex && b.Mint == mint {
				before = b.UITokenAmount.Value()
				break
			}
		}
		delta := p.UITokenAmount.Value().Sub(before)
		if !delta.IsPositive() {
			continue
		}

		for _, b := range pre {
			if b.Mint != mint || b.Owner == v.treasury {
				continue
			}
			after := decimal.Zero
			for _, a := range post {
				if a.AccountIndex == b.AccountIndex {
					after = a.UITokenAmount.Value()
					break
				}
			}
			if b.UITokenAmount.Value().GreaterThan(after) {
				return delta, b.Owner
			}
		}
		return delta, ""
	}
	return decimal.Zero, ""
}

func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}

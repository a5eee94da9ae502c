package solana

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL converts native balances to SOL.
var LamportsPerSOL = decimal.New(1, 9)

// Transaction is the jsonParsed result of getTransaction.
type Transaction struct {
	Slot        uint64           `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Meta        *TransactionMeta `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    Message  `json:"message"`
	} `json:"transaction"`
}

type TransactionMeta struct {
	Err               json.RawMessage `json:"err"`
	Fee               uint64          `json:"fee"`
	PreBalances       []uint64        `json:"preBalances"`
	PostBalances      []uint64        `json:"postBalances"`
	PreTokenBalances  []TokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance  `json:"postTokenBalances"`
	LogMessages       []string        `json:"logMessages"`
}

// Failed reports whether the transaction carries an execution error.
func (m *TransactionMeta) Failed() bool {
	if m == nil {
		return false
	}
	raw := strings.TrimSpace(string(m.Err))
	return raw != "" && raw != "null"
}

type Message struct {
	AccountKeys  []AccountKey  `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}

// AccountKey accepts both the jsonParsed object form and the plain string
// form returned by the json encoding.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

func (k *AccountKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*k = AccountKey{Pubkey: s}
		return nil
	}
	type alias AccountKey
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*k = AccountKey(a)
	return nil
}

type Instruction struct {
	Program   string          `json:"program"`
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
	Accounts  []string        `json:"accounts"`
	Data      string          `json:"data"`
}

// ParsedInstruction is the object form of Instruction.Parsed. Some programs
// (memo) emit a bare string instead, which Decode reports as ok=false.
type ParsedInstruction struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info"`
}

func (ix Instruction) Decode() (ParsedInstruction, bool) {
	raw := strings.TrimSpace(string(ix.Parsed))
	if !strings.HasPrefix(raw, "{") {
		return ParsedInstruction{}, false
	}
	var p ParsedInstruction
	if err := json.Unmarshal(ix.Parsed, &p); err != nil {
		return ParsedInstruction{}, false
	}
	return p, true
}

// SystemTransfer is the info block of a parsed system-program transfer.
type SystemTransfer struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    uint64 `json:"lamports"`
}

// SystemTransfer returns the transfer carried by ix, if it is one.
func (ix Instruction) SystemTransfer() (SystemTransfer, bool) {
	if ix.Program != "system" && ix.ProgramID != SystemProgramID {
		return SystemTransfer{}, false
	}
	p, ok := ix.Decode()
	if !ok || p.Type != "transfer" {
		return SystemTransfer{}, false
	}
	var t SystemTransfer
	if err := json.Unmarshal(p.Info, &t); err != nil {
		return SystemTransfer{}, false
	}
	return t, true
}

type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	ProgramID     string      `json:"programId"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

type TokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       int32    `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// Value returns the UI amount, preferring the exact string forms over the
// float. Unparseable or missing amounts count as zero.
func (a TokenAmount) Value() decimal.Decimal {
	if a.UIAmountString != "" {
		if d, err := decimal.NewFromString(a.UIAmountString); err == nil {
			return d
		}
	}
	if a.Amount != "" {
		if d, err := decimal.NewFromString(a.Amount); err == nil {
			return d.Shift(-a.Decimals)
		}
	}
	if a.UIAmount != nil {
		return decimal.NewFromFloat(*a.UIAmount)
	}
	return decimal.Zero
}

// AccountAt returns the pubkey at index i of the message account list.
func (tx *Transaction) AccountAt(i int) string {
	keys := tx.Transaction.Message.AccountKeys
	if i < 0 || i >= len(keys) {
		return ""
	}
	return keys[i].Pubkey
}

package payment

import "fmt"

// Kind selects how a payment is detected in a transaction. The zero value is
// not valid; use Native or Token.
type Kind struct {
	native bool
	mint   string
	symbol string
}

// Native is a SOL transfer measured in SOL.
func Native() Kind {
	return Kind{native: true, symbol: "SOL"}
}

// Token is an SPL token transfer of mint, measured in UI units.
func Token(mint, symbol string) Kind {
	return Kind{mint: mint, symbol: symbol}
}

func (k Kind) IsNative() bool { return k.native }
func (k Kind) Mint() string   { return k.mint }
func (k Kind) Symbol() string { return k.symbol }

func (k Kind) Valid() bool {
	return k.native || k.mint != ""
}

func (k Kind) String() string {
	if k.native {
		return "native"
	}
	return fmt.Sprintf("token(%s)", k.mint)
}

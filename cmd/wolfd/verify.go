package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/payment"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/solana"
)

var (
	verifyKind   string
	verifyAmount string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <signature>",
	Short: "Check a payment transaction against the treasury without recording it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sig, err := solana.ParseSignature(args[0])
		if err != nil {
			return err
		}
		expected, err := decimal.NewFromString(verifyAmount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", verifyAmount, err)
		}
		if verifyKind != "" {
			cfg.Payment.Kind = verifyKind
		}
		kind, err := paymentKind(cfg)
		if err != nil {
			return err
		}

		// A throwaway signature set so checking does not consume the payment.
		verifier := newVerifier(cfg, payment.NewSeenSignatures(1))
		verdict, err := verifier.Verify(cmd.Context(), sig, kind, expected)
		if err != nil {
			verdict = payment.Unverifiable(err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyKind, "kind", "", "payment kind: token or native (default from config)")
	verifyCmd.Flags().StringVar(&verifyAmount, "amount", "10000", "expected amount in token or SOL units")
}

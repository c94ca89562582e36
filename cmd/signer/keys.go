package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-signer/host"
)

func newKeygenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a private key and its address",
		Long: `Generate a new private key inside the guest and print it together
with the derived address.

Example:
  signer keygen
  signer keygen --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			key, addr, err := s.NewPrivateKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			defer host.ZeroizePrivateKey(key)

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, map[string]string{
					"private_key": string(key),
					"address":     addr,
				})
			}
			fmt.Fprintf(out, "private key: %s\naddress:     %s\n", key, addr)
			return nil
		},
	}
}

func newAddressCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "address <private-key|->",
		Short: "Derive the address of a private key",
		Long: `Derive the address of a private key. Pass - to read the key from
standard input.

Example:
  signer address key1...
  echo key1... | signer address -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readArg(cmd, args[0])
			if err != nil {
				return err
			}
			key = bytes.TrimSpace(key)
			defer host.ZeroizePrivateKey(key)

			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			addr, err := s.Address(key)
			if err != nil {
				return fmt.Errorf("derive address: %w", err)
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"address": addr})
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

func newSignCmd(opts *options) *cobra.Command {
	var keyText string

	cmd := &cobra.Command{
		Use:   "sign --key <private-key> <message|->",
		Short: "Sign a message",
		Long: `Sign a message with a private key. Pass - as the message to read it
from standard input.

Example:
  signer sign --key key1... "hello"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readArg(cmd, args[0])
			if err != nil {
				return err
			}
			key := []byte(keyText)
			defer host.ZeroizePrivateKey(key)

			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			sig, err := s.Sign(key, msg)
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"signature": sig})
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyText, "key", "", "Private key text")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <address> <message|-> <signature>",
		Short: "Verify a signature",
		Long: `Verify that signature was produced over message by the key behind
address. Exits non-zero when the signature does not verify.

Example:
  signer verify addr1... "hello" sig1...`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readArg(cmd, args[1])
			if err != nil {
				return err
			}

			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			ok, err := s.Verify(args[0], msg, args[2])
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}

			if opts.jsonOut {
				if err := printJSON(cmd.OutOrStdout(), map[string]bool{"valid": ok}); err != nil {
					return err
				}
			} else if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ signature is valid")
			}
			if !ok {
				return errInvalidSignature
			}
			return nil
		},
	}
}

var errInvalidSignature = errors.New("signature is invalid")

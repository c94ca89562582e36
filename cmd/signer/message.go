package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-signer/msgfmt"
)

func newHashCmd(opts *options) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "hash <message|->",
		Short: "Hash a message",
		Long: `Hash a message to a 128-bit digest, printed as a u128 literal or,
with --bytes, as little-endian hex.

Example:
  signer hash "hello"
  signer hash --bytes "hello"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readArg(cmd, args[0])
			if err != nil {
				return err
			}

			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			var out string
			if raw {
				digest, err := s.HashMessage(msg)
				if err != nil {
					return fmt.Errorf("hash: %w", err)
				}
				out = hex.EncodeToString(digest)
			} else {
				out, err = s.HashMessageToString(msg)
				if err != nil {
					return fmt.Errorf("hash: %w", err)
				}
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"hash": out})
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "bytes", false, "Print the digest as little-endian hex")
	return cmd
}

func newFormatCmd(opts *options) *cobra.Command {
	var chunks int

	cmd := &cobra.Command{
		Use:   "format <message|->",
		Short: "Format a message as a struct of u128 fields",
		Long: fmt.Sprintf(`Format a message as a struct of chunks, each holding %d u128 fields.
A message may hold up to chunks*%d bytes; at most %d chunks are allowed.

Example:
  signer format --chunks 2 "hello"`, msgfmt.LimbsPerChunk, msgfmt.ChunkSize, msgfmt.MaxChunks),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readArg(cmd, args[0])
			if err != nil {
				return err
			}

			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			formatted, err := s.FormatMessage(msg, chunks)
			if err != nil {
				return fmt.Errorf("format: %w", err)
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"formatted": string(formatted)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(formatted))
			return nil
		},
	}
	cmd.Flags().IntVar(&chunks, "chunks", 1, "Number of chunks")
	return cmd
}

func newRecoverCmd(opts *options) *cobra.Command {
	var asHex bool

	cmd := &cobra.Command{
		Use:   "recover <formatted|->",
		Short: "Recover a message from its u128 struct format",
		Long: `Recover the message bytes from the output of format. Trailing zero
bytes are treated as padding and dropped.

Example:
  signer format "hello" | signer recover -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readArg(cmd, args[0])
			if err != nil {
				return err
			}

			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			msg, err := s.RecoverMessage(text)
			if err != nil {
				return fmt.Errorf("recover: %w", err)
			}

			out := string(msg)
			if asHex {
				out = hex.EncodeToString(msg)
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"message": out})
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHex, "hex", false, "Print the message as hex")
	return cmd
}

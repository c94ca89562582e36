// Package keys provides the cryptographic collaborator behind the guest's
// entry points: private key generation and parsing, address derivation,
// signing, verification and message hashing.
//
// Keys are ed25519. Text forms are a prefix followed by lowercase unpadded
// base32 of the payload and, for keys and addresses, a 4-byte blake2b
// checksum:
//
//	key1<base32(seed || checksum)>       PrivateKeySize bytes
//	addr1<base32(pubkey || checksum)>    AddressSize bytes
//	sig1<base32(signature)>              SignatureSize bytes
package keys

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/base32"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/wippyai/wasm-signer/errors"
)

const (
	PrivateKeyPrefix = "key1"
	AddressPrefix    = "addr1"
	SignaturePrefix  = "sig1"

	// PrivateKeySize is the length of a private key's text form.
	PrivateKeySize = len(PrivateKeyPrefix) + 58
	// AddressSize is the length of an address's text form.
	AddressSize = len(AddressPrefix) + 58
	// SignatureSize is the length of a signature's text form.
	SignatureSize = len(SignaturePrefix) + 103

	// HashSize is the size of a message digest, one little-endian u128.
	HashSize = 16

	checksumSize = 4
)

var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// PrivateKey is an ed25519 seed.
type PrivateKey struct {
	seed [ed25519.SeedSize]byte
}

// Address is an ed25519 public key.
type Address struct {
	pub [ed25519.PublicKeySize]byte
}

// Signature is a raw ed25519 signature.
type Signature [ed25519.SignatureSize]byte

// GeneratePrivateKey draws a new seed from rand.
func GeneratePrivateKey(rand io.Reader) (PrivateKey, error) {
	var k PrivateKey
	if _, err := io.ReadFull(rand, k.seed[:]); err != nil {
		return PrivateKey{}, errors.Wrap(errors.PhaseCompute, errors.KindInvalidData, err, "read key entropy")
	}
	return k, nil
}

// ParsePrivateKey decodes the text form of a private key.
func ParsePrivateKey(s string) (PrivateKey, error) {
	var k PrivateKey
	if err := decodeChecked(s, PrivateKeyPrefix, PrivateKeySize, k.seed[:]); err != nil {
		return PrivateKey{}, err
	}
	return k, nil
}

func (k PrivateKey) String() string {
	return encodeChecked(PrivateKeyPrefix, k.seed[:])
}

// Address derives the public address of k.
func (k PrivateKey) Address() Address {
	var a Address
	copy(a.pub[:], k.signingKey().Public().(ed25519.PublicKey))
	return a
}

// Sign signs msg with k.
func (k PrivateKey) Sign(msg []byte) Signature {
	var s Signature
	copy(s[:], ed25519.Sign(k.signingKey(), msg))
	return s
}

// Zero wipes the seed.
func (k *PrivateKey) Zero() {
	clear(k.seed[:])
}

func (k PrivateKey) signingKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.seed[:])
}

// ParseAddress decodes the text form of an address.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeChecked(s, AddressPrefix, AddressSize, a.pub[:]); err != nil {
		return Address{}, err
	}
	return a, nil
}

func (a Address) String() string {
	return encodeChecked(AddressPrefix, a.pub[:])
}

// ParseSignature decodes the text form of a signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	if len(s) != SignatureSize || !strings.HasPrefix(s, SignaturePrefix) {
		return Signature{}, errors.InvalidData(errors.PhaseCompute, []string{"signature"}, "malformed signature text")
	}
	raw, err := encoding.DecodeString(s[len(SignaturePrefix):])
	if err != nil || len(raw) != len(sig) {
		return Signature{}, errors.New(errors.PhaseCompute, errors.KindInvalidData).
			Path("signature").
			Cause(err).
			Detail("decode signature").
			Build()
	}
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string {
	return SignaturePrefix + encoding.EncodeToString(s[:])
}

// Verify reports whether sig is a valid signature of msg by addr.
func Verify(addr Address, msg []byte, sig Signature) bool {
	return ed25519.Verify(addr.pub[:], msg, sig[:])
}

// HashMessage returns the 128-bit blake2b digest of msg.
func HashMessage(msg []byte) [HashSize]byte {
	h, err := blake2b.New(HashSize, nil)
	if err != nil {
		// only reachable with an invalid size or key
		panic(err)
	}
	h.Write(msg)

	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

func checksum(prefix string, payload []byte) []byte {
	h := blake2b.Sum256(append([]byte(prefix), payload...))
	return h[:checksumSize]
}

func encodeChecked(prefix string, payload []byte) string {
	body := append(append([]byte(nil), payload...), checksum(prefix, payload)...)
	return prefix + encoding.EncodeToString(body)
}

func decodeChecked(s, prefix string, size int, out []byte) error {
	path := []string{strings.TrimSuffix(prefix, "1")}
	if len(s) != size {
		return errors.New(errors.PhaseCompute, errors.KindInvalidData).
			Path(path...).
			Value(len(s)).
			Detail("expected %d characters, got %d", size, len(s)).
			Build()
	}
	if !strings.HasPrefix(s, prefix) {
		return errors.InvalidData(errors.PhaseCompute, path, "missing "+prefix+" prefix")
	}

	raw, err := encoding.DecodeString(s[len(prefix):])
	if err != nil {
		return errors.New(errors.PhaseCompute, errors.KindInvalidData).
			Path(path...).
			Cause(err).
			Detail("decode base32").
			Build()
	}
	if len(raw) != len(out)+checksumSize {
		return errors.InvalidData(errors.PhaseCompute, path, "wrong payload length")
	}

	payload, sum := raw[:len(out)], raw[len(out):]
	if subtle.ConstantTimeCompare(sum, checksum(prefix, payload)) != 1 {
		return errors.InvalidData(errors.PhaseCompute, path, "checksum mismatch")
	}
	copy(out, payload)
	clear(raw)
	return nil
}

package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-signer/errors"
	"github.com/wippyai/wasm-signer/keys"
	"github.com/wippyai/wasm-signer/msgfmt"
	"github.com/wippyai/wasm-signer/transfer"
)

// ErrNoModule is returned by session calls after Close.
var ErrNoModule = stderrors.New("session module is closed")

// Session provides access to the guest's entry points. A session is not
// goroutine safe; create one per goroutine.
type Session interface {
	// NewPrivateKey returns a newly generated private key and its address.
	// The caller should wipe the key with ZeroizePrivateKey when done.
	NewPrivateKey() (key []byte, address string, err error)
	// Address derives the address of key.
	Address(key []byte) (address string, err error)
	// Sign signs message with key. The key copy in guest memory is wiped
	// before it is released.
	Sign(key []byte, message []byte) (signature string, err error)
	// Verify checks signature over message against address.
	Verify(address string, message []byte, signature string) (bool, error)
	// HashMessage returns the 16-byte little-endian digest of message.
	HashMessage(message []byte) (hash []byte, err error)
	// HashMessageToString returns the digest as a decimal u128 literal.
	HashMessageToString(message []byte) (hash string, err error)
	// FormatMessage renders message as a struct of targetChunks chunks
	// of u128 fields, with newlines removed.
	FormatMessage(message []byte, targetChunks int) (formattedMessage []byte, err error)
	// RecoverMessage reverses FormatMessage.
	RecoverMessage(formattedMessage []byte) (message []byte, err error)

	Close()
}

// ZeroizePrivateKey wipes key in place.
func ZeroizePrivateKey(key []byte) {
	clear(key)
}

type session struct {
	g   Guest
	ctx context.Context
	log *zap.Logger
}

func newSession(ctx context.Context, g Guest, log *zap.Logger) *session {
	return &session{g: g, ctx: ctx, log: log}
}

func (s *session) Close() {
	if s.g != nil && !s.g.IsClosed() {
		_ = s.g.Close(context.Background())
	}
}

func (s *session) live() error {
	if s.g == nil || s.g.IsClosed() {
		return ErrNoModule
	}
	return nil
}

// input is a guest region holding host data.
type input struct {
	ptr, length uint32
	secret      bool
}

// put copies data into a fresh guest region.
func (s *session) put(data []byte, secret bool) (*input, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return nil, errors.Overflow(errors.PhaseTransfer, nil, len(data), "u32")
	}
	res, err := s.g.Call(s.ctx, exportAlloc, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return nil, errors.AllocationFailed(errors.PhaseTransfer, uint32(len(data)), 8)
	}
	in := &input{ptr: ptr, length: uint32(len(data)), secret: secret}
	if err := s.g.Memory().Write(ptr, data); err != nil {
		s.free(in)
		return nil, err
	}
	return in, nil
}

// free releases an input region, wiping it first when it holds a secret.
func (s *session) free(in *input) {
	if in.secret && in.length > 0 {
		if err := s.g.Memory().Write(in.ptr, make([]byte, in.length)); err != nil {
			s.log.Warn("failed to wipe guest memory", zap.Error(err))
		}
	}
	s.dealloc(in.ptr)
}

func (s *session) dealloc(ptr uint32) {
	if _, err := s.g.Call(s.ctx, exportDealloc, uint64(ptr), 0); err != nil {
		s.log.Warn("failed to deallocate guest memory", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

// call invokes a packed-result export and returns a copy of the result.
func (s *session) call(name string, secret bool, params ...uint64) ([]byte, error) {
	res, err := s.g.Call(s.ctx, name, params...)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errors.New(errors.PhaseRuntime, errors.KindGuestFailure).
			Path(name).
			Detail("empty return").
			Build()
	}

	h := transfer.Handle(res[0])
	if h.IsFailed() {
		return nil, errors.GuestFailure(name)
	}
	ptr, length := h.Unpack()
	defer func() {
		if secret {
			_ = s.g.Memory().Write(ptr, make([]byte, length))
		}
		s.dealloc(ptr)
	}()

	view, err := s.g.Memory().Read(ptr, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), view...), nil
}

// recovered turns a panic into err. Use with defer.
func recovered(op string, err *error) {
	if r := recover(); r != nil {
		*err = panicError(op, r)
	}
}

func panicError(op string, r any) error {
	var cause error
	switch x := r.(type) {
	case error:
		cause = x
	case string:
		cause = stderrors.New(x)
	default:
		cause = fmt.Errorf("unknown panic: %v", x)
	}
	return errors.New(errors.PhaseRuntime, errors.KindGuestFailure).
		Path(op).
		Cause(cause).
		Detail("panic").
		Build()
}

func (s *session) NewPrivateKey() (key []byte, address string, err error) {
	defer recovered(exportNewPrivateKey, &err)
	if err := s.live(); err != nil {
		return nil, "", err
	}

	key, err = s.call(exportNewPrivateKey, true)
	if err != nil {
		return nil, "", err
	}
	if len(key) != keys.PrivateKeySize {
		s.log.Warn("unexpected private key length", zap.Int("len", len(key)), zap.Int("expected", keys.PrivateKeySize))
	}

	address, err = s.Address(key)
	if err != nil {
		ZeroizePrivateKey(key)
		return nil, "", err
	}
	return key, address, nil
}

func (s *session) Address(key []byte) (address string, err error) {
	defer recovered(exportGetAddress, &err)
	if err := s.live(); err != nil {
		return "", err
	}

	in, err := s.put(key, true)
	if err != nil {
		return "", err
	}
	defer s.free(in)

	addr, err := s.call(exportGetAddress, false, uint64(in.ptr), uint64(in.length))
	if err != nil {
		return "", err
	}
	if len(addr) != keys.AddressSize {
		s.log.Warn("unexpected address length", zap.Int("len", len(addr)), zap.Int("expected", keys.AddressSize))
	}
	return string(addr), nil
}

func (s *session) Sign(key []byte, message []byte) (signature string, err error) {
	defer recovered(exportSign, &err)
	if err := s.live(); err != nil {
		return "", err
	}

	k, err := s.put(key, true)
	if err != nil {
		return "", err
	}
	defer s.free(k)

	m, err := s.put(message, false)
	if err != nil {
		return "", err
	}
	defer s.free(m)

	sig, err := s.call(exportSign, false, uint64(k.ptr), uint64(k.length), uint64(m.ptr), uint64(m.length))
	if err != nil {
		return "", err
	}
	return string(sig), nil
}

func (s *session) Verify(address string, message []byte, signature string) (ok bool, err error) {
	defer recovered(exportVerify, &err)
	if err := s.live(); err != nil {
		return false, err
	}

	var ins []*input
	defer func() {
		for _, in := range ins {
			s.free(in)
		}
	}()
	for _, data := range [][]byte{[]byte(address), message, []byte(signature)} {
		in, err := s.put(data, false)
		if err != nil {
			return false, err
		}
		ins = append(ins, in)
	}

	params := make([]uint64, 0, 6)
	for _, in := range ins {
		params = append(params, uint64(in.ptr), uint64(in.length))
	}
	res, err := s.g.Call(s.ctx, exportVerify, params...)
	if err != nil {
		return false, err
	}

	switch int32(uint32(res[0])) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, errors.GuestFailure(exportVerify)
	}
}

func (s *session) HashMessage(message []byte) (hash []byte, err error) {
	defer recovered(exportHashMessageBytes, &err)
	if err := s.live(); err != nil {
		return nil, err
	}
	return s.withInput(exportHashMessageBytes, message)
}

func (s *session) HashMessageToString(message []byte) (hash string, err error) {
	defer recovered(exportHashMessage, &err)
	if err := s.live(); err != nil {
		return "", err
	}
	out, err := s.withInput(exportHashMessage, message)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *session) FormatMessage(message []byte, targetChunks int) (formattedMessage []byte, err error) {
	defer recovered(exportFormatMessage, &err)
	if err := s.live(); err != nil {
		return nil, err
	}
	if targetChunks < 1 || targetChunks > msgfmt.MaxChunks {
		return nil, errors.New(errors.PhaseCompute, errors.KindInvalidInput).
			Path("chunks").
			Value(targetChunks).
			Detail("target number of chunks must be between 1 and %d", msgfmt.MaxChunks).
			Build()
	}
	if len(message) > targetChunks*msgfmt.ChunkSize {
		return nil, errors.New(errors.PhaseCompute, errors.KindOverflow).
			Path("message").
			Value(len(message)).
			Detail("message must be at most %d bytes (%d chunks)", targetChunks*msgfmt.ChunkSize, targetChunks).
			Build()
	}

	in, err := s.put(message, false)
	if err != nil {
		return nil, err
	}
	defer s.free(in)

	out, err := s.call(exportFormatMessage, false, uint64(in.ptr), uint64(in.length), uint64(targetChunks))
	if err != nil {
		return nil, err
	}
	return []byte(strings.ReplaceAll(string(out), "\n", "")), nil
}

func (s *session) RecoverMessage(formattedMessage []byte) (message []byte, err error) {
	defer recovered(exportFormattedMessageToBytes, &err)
	if err := s.live(); err != nil {
		return nil, err
	}
	return s.withInput(exportFormattedMessageToBytes, formattedMessage)
}

func (s *session) withInput(name string, data []byte) ([]byte, error) {
	in, err := s.put(data, false)
	if err != nil {
		return nil, err
	}
	defer s.free(in)
	return s.call(name, false, uint64(in.ptr), uint64(in.length))
}

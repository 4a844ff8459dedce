package binding

import (
	"fmt"
	"sync/atomic"

	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/observability/metrics"
	"Web3-Scaffold/internal/web3"
	"Web3-Scaffold/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// Handle is a shared contract binding whose connection can be swapped while
// the address and descriptor stay fixed. Swaps are last-write-wins; Reader
// and Writer return snapshots, so work already started keeps the connection
// it began with.
type Handle struct {
	address common.Address
	desc    *Descriptor
	state   atomic.Pointer[handleState]
}

type handleState struct {
	reader *ReadOnly
	writer *SignerBound
}

// NewHandle binds address and desc to the initial connection. If initial is
// a web3.Signer the handle is writable right away.
func NewHandle(address common.Address, desc *Descriptor, initial web3.Provider) (*Handle, error) {
	state, err := bindState(address, desc, initial)
	if err != nil {
		return nil, err
	}
	h := &Handle{address: address, desc: desc}
	h.state.Store(state)
	return h, nil
}

func bindState(address common.Address, desc *Descriptor, conn web3.Provider) (*handleState, error) {
	if s, ok := conn.(web3.Signer); ok {
		writer, err := BindSigner(address, desc, s)
		if err != nil {
			return nil, err
		}
		return &handleState{reader: writer.ReadOnly, writer: writer}, nil
	}
	reader, err := Bind(address, desc, conn)
	if err != nil {
		return nil, err
	}
	return &handleState{reader: reader}, nil
}

// Address returns the deployment address.
func (h *Handle) Address() common.Address { return h.address }

// Descriptor returns the interface descriptor.
func (h *Handle) Descriptor() *Descriptor { return h.desc }

// Reader returns the current read-only binding.
func (h *Handle) Reader() *ReadOnly { return h.state.Load().reader }

// Writer returns the current signer-bound binding, or a SIGNER_REQUIRED
// error when the handle was last connected to a read-only provider.
func (h *Handle) Writer() (*SignerBound, error) {
	state := h.state.Load()
	if state.writer == nil {
		return nil, xerrors.New(xerrors.CodeSignerRequired,
			fmt.Sprintf("合约 %s 当前连接 %s 不支持签名，请先 Connect 签名连接", h.desc.Name(), state.reader.Provider().Name()))
	}
	return state.writer, nil
}

// Writable reports whether the current connection can sign.
func (h *Handle) Writable() bool { return h.state.Load().writer != nil }

// Connect swaps the connection. A web3.Signer makes the handle writable, a
// plain provider makes it read-only again. On error the previous connection
// stays in place.
func (h *Handle) Connect(conn web3.Provider) error {
	state, err := bindState(h.address, h.desc, conn)
	if err != nil {
		return err
	}
	h.state.Store(state)

	kind := "provider"
	if state.writer != nil {
		kind = "signer"
	}
	metrics.ObserveRebind(h.desc.Name(), kind)
	logger.Named("binding").Debug("contract rebound",
		"contract", h.desc.Name(),
		"address", h.address.Hex(),
		"connection", conn.Name(),
		"kind", kind)
	return nil
}

// ConnectSigner is Connect restricted to signing connections.
func (h *Handle) ConnectSigner(s web3.Signer) error {
	if missing(s) {
		return xerrors.New(xerrors.CodeSignerRequired, "签名连接不能为空")
	}
	return h.Connect(s)
}

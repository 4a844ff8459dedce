package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Descriptor is the immutable interface description of one contract type:
// its name and parsed ABI. A single Descriptor is shared by every binding of
// that contract.
type Descriptor struct {
	name string
	abi  abi.ABI
}

// NewDescriptor parses abiJSON into a descriptor.
func NewDescriptor(name, abiJSON string) (*Descriptor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("合约名称不能为空")
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("解析 %s ABI 失败: %w", name, err)
	}
	return &Descriptor{name: name, abi: parsed}, nil
}

// MustDescriptor is NewDescriptor for ABIs embedded at build time.
func MustDescriptor(name, abiJSON string) *Descriptor {
	d, err := NewDescriptor(name, abiJSON)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the contract name.
func (d *Descriptor) Name() string { return d.name }

// ABI returns the parsed ABI.
func (d *Descriptor) ABI() abi.ABI { return d.abi }

// Methods lists method names, sorted.
func (d *Descriptor) Methods() []string {
	names := make([]string, 0, len(d.abi.Methods))
	for name := range d.abi.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Events lists event names, sorted.
func (d *Descriptor) Events() []string {
	names := make([]string, 0, len(d.abi.Events))
	for name := range d.abi.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mutating reports whether method changes state and therefore needs a signer.
func (d *Descriptor) Mutating(method string) bool {
	m, ok := d.abi.Methods[method]
	if !ok {
		return false
	}
	return !m.IsConstant()
}

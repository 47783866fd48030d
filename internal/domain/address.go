package domain

import "fmt"

// AddressType discriminates how an address value is interpreted.
type AddressType string

const (
	AddressTypeIP       AddressType = "IPAddress"
	AddressTypeHostname AddressType = "Hostname"
)

// AddressTypes lists the address types in display order.
var AddressTypes = []AddressType{AddressTypeIP, AddressTypeHostname}

// Valid reports whether t is one of the known address types.
func (t AddressType) Valid() bool {
	switch t {
	case AddressTypeIP, AddressTypeHostname:
		return true
	}
	return false
}

func (t AddressType) String() string {
	return string(t)
}

// ParseAddressType converts a raw form or JSON value into an AddressType.
func ParseAddressType(s string) (AddressType, error) {
	t := AddressType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown address type %q", ErrInvalidInput, s)
	}
	return t, nil
}

// Address is a single gateway address entry. Value may be empty while it is
// still being edited.
type Address struct {
	Type  AddressType `json:"type" db:"type"`
	Value string      `json:"value" db:"value"`
}

// DefaultAddress is the entry appended by an "add address" action.
func DefaultAddress() Address {
	return Address{Type: AddressTypeIP, Value: ""}
}

// AddressList is an ordered list of addresses. The position of an entry is its
// only identity.
type AddressList []Address

// Clone returns a copy that shares no storage with l. A nil list clones to an
// empty, non-nil list so JSON encodes it as [].
func (l AddressList) Clone() AddressList {
	out := make(AddressList, len(l))
	copy(out, l)
	return out
}

// Equal reports whether both lists hold the same entries in the same order.
func (l AddressList) Equal(other AddressList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Package validation checks gateway identifiers and address types before they
// reach storage. Names follow the DNS-1123 label rules used for Kubernetes
// object names. Address values are accepted as typed; only their type is
// checked here.
package validation

import (
	"fmt"
	"strings"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

// maxLabelLength is the DNS-1123 label limit.
const maxLabelLength = 63

// isLower returns true if the byte is a lowercase ASCII letter.
func isLower(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// validateLabel checks value against the DNS-1123 label rules: lowercase
// alphanumerics or '-', starting and ending with an alphanumeric.
func validateLabel(value, entityType string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", entityType)
	}
	if len(value) > maxLabelLength {
		return fmt.Errorf("%s must be at most %d characters", entityType, maxLabelLength)
	}
	first, last := value[0], value[len(value)-1]
	if !isLower(first) && !isNum(first) {
		return fmt.Errorf("%s must start with a lowercase letter or digit", entityType)
	}
	if !isLower(last) && !isNum(last) {
		return fmt.Errorf("%s must end with a lowercase letter or digit", entityType)
	}
	for _, b := range []byte(value) {
		if !isLower(b) && !isNum(b) && b != '-' {
			return fmt.Errorf("%s can only contain lowercase letters, numbers, or hyphens", entityType)
		}
	}
	return nil
}

// validateAliasPart also rejects "--", which separates the parts of a
// published host alias.
func validateAliasPart(value, entityType string) error {
	if err := validateLabel(value, entityType); err != nil {
		return err
	}
	if strings.Contains(value, "--") {
		return fmt.Errorf("%s must not contain consecutive hyphens", entityType)
	}
	return nil
}

// ValidateGatewayName validates a gateway name.
func ValidateGatewayName(name string) error {
	return validateAliasPart(name, "gateway name")
}

// ValidateNamespace validates a namespace name.
func ValidateNamespace(ns string) error {
	return validateAliasPart(ns, "namespace")
}

// ValidateGatewayClassName validates an optional gateway class name.
func ValidateGatewayClassName(name string) error {
	if name == "" {
		return nil
	}
	return validateLabel(name, "gateway class name")
}

// ValidateAddressType validates an address type discriminant.
func ValidateAddressType(t domain.AddressType) error {
	if !t.Valid() {
		return fmt.Errorf("address type must be one of %v", domain.AddressTypes)
	}
	return nil
}

// ValidateAddresses checks the type of every entry and reports each bad one
// by its position.
func ValidateAddresses(field string, addrs domain.AddressList) ValidationErrors {
	var errs ValidationErrors
	for i, a := range addrs {
		if err := ValidateAddressType(a.Type); err != nil {
			errs.Add(fmt.Sprintf("%s[%d].type", field, i), string(a.Type), err.Error())
		}
	}
	return errs
}

// ValidateCreateGateway validates a create request and returns every
// problem found.
func ValidateCreateGateway(req *domain.CreateGatewayRequest) ValidationErrors {
	var errs ValidationErrors
	if err := ValidateNamespace(req.Namespace); err != nil {
		errs.Add("namespace", req.Namespace, err.Error())
	}
	if err := ValidateGatewayName(req.Name); err != nil {
		errs.Add("name", req.Name, err.Error())
	}
	if err := ValidateGatewayClassName(req.GatewayClassName); err != nil {
		errs.Add("gatewayClassName", req.GatewayClassName, err.Error())
	}
	errs = append(errs, ValidateAddresses("addresses", req.Addresses)...)
	return errs
}

package capability

import "fmt"

func NewProviderNotFoundError(name string) error {
	return fmt.Errorf("provider %v not found", name)
}

func NewActionNotFoundError(provider, action string) error {
	return fmt.Errorf("action %v not found on provider %v", action, provider)
}

func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("invalid input %T", in)
}

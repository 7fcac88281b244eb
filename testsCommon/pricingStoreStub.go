package testsCommon

import (
	"github.com/patrick-commits/dark-site-metering/pricing"
)

// PricingStoreStub -
type PricingStoreStub struct {
	CatalogHandler     func() pricing.Catalog
	AddRateHandler     func(family string, code string, rate pricing.Rate) error
	SetActiveHandler   func(family string, code string) error
	ActiveRatesHandler func() (pricing.Rate, bool, pricing.Rate, bool)
}

// Catalog -
func (stub *PricingStoreStub) Catalog() pricing.Catalog {
	if stub.CatalogHandler != nil {
		return stub.CatalogHandler()
	}

	return pricing.Catalog{}
}

// AddRate -
func (stub *PricingStoreStub) AddRate(family string, code string, rate pricing.Rate) error {
	if stub.AddRateHandler != nil {
		return stub.AddRateHandler(family, code, rate)
	}

	return nil
}

// SetActive -
func (stub *PricingStoreStub) SetActive(family string, code string) error {
	if stub.SetActiveHandler != nil {
		return stub.SetActiveHandler(family, code)
	}

	return nil
}

// ActiveRates -
func (stub *PricingStoreStub) ActiveRates() (pricing.Rate, bool, pricing.Rate, bool) {
	if stub.ActiveRatesHandler != nil {
		return stub.ActiveRatesHandler()
	}

	return pricing.Rate{}, false, pricing.Rate{}, false
}

// IsInterfaceNil -
func (stub *PricingStoreStub) IsInterfaceNil() bool {
	return stub == nil
}

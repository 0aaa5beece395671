// internal/models/vehicle.go
package models

import "github.com/shopspring/decimal"

type Category string

const (
	CategorySUV         Category = "SUV"
	CategorySedan       Category = "SEDAN"
	CategoryHatch       Category = "HATCH"
	CategoryPickup      Category = "PICKUP"
	CategoryCoupe       Category = "COUPE"
	CategoryConvertible Category = "CONVERTIBLE"
	CategoryWagon       Category = "WAGON"
	CategoryVan         Category = "VAN"
	CategoryMotorcycle  Category = "MOTORCYCLE"
)

type Vehicle struct {
	ID        string          `json:"id"`
	Category  Category        `json:"category"`
	SalePrice decimal.Decimal `json:"salePrice"`
}

package models

type SeedCategory struct {
	Name        string
	Description string
}

type SeedUnit struct {
	Name string
	Code string
}

type SeedWarehouse struct {
	Name string
	Code string
}

// Starter data every tenant receives after creation.
var (
	DefaultCategories = []SeedCategory{
		{Name: "Electronics", Description: "Electronic items and components"},
		{Name: "Furniture", Description: "Office and home furniture"},
		{Name: "Stationery", Description: "Office supplies and stationery"},
		{Name: "Raw Materials", Description: "Raw materials for production"},
	}

	DefaultWarehouse = SeedWarehouse{Name: "Main Warehouse", Code: "WH-001"}

	DefaultUnits = []SeedUnit{
		{Name: "Piece", Code: "pcs"},
		{Name: "Kilogram", Code: "kg"},
		{Name: "Liter", Code: "L"},
		{Name: "Box", Code: "box"},
	}
)

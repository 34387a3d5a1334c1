package rtms

import "github.com/UnknownOlympus/realty-atlas/internal/models"

// DefaultBaseURL is the data.go.kr gateway of the MOLIT real transaction price services.
const DefaultBaseURL = "https://apis.data.go.kr/1613000"

// Endpoint is one transaction service of the API.
type Endpoint struct {
	Variant models.Variant
	Path    string // Path is relative to the base URL.
}

// Endpoints lists the six transaction services in workbook sheet order.
var Endpoints = []Endpoint{
	{Variant: models.AptTrade, Path: "/RTMSDataSvcAptTradeDev/getRTMSDataSvcAptTradeDev"},
	{Variant: models.AptRent, Path: "/RTMSDataSvcAptRent/getRTMSDataSvcAptRent"},
	{Variant: models.RowHouseTrade, Path: "/RTMSDataSvcRHTrade/getRTMSDataSvcRHTrade"},
	{Variant: models.RowHouseRent, Path: "/RTMSDataSvcRHRent/getRTMSDataSvcRHRent"},
	{Variant: models.HouseTrade, Path: "/RTMSDataSvcSHTrade/getRTMSDataSvcSHTrade"},
	{Variant: models.HouseRent, Path: "/RTMSDataSvcSHRent/getRTMSDataSvcSHRent"},
}

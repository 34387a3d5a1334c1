package models

import (
	"strings"
	"time"
)

// Variant identifies one housing type and deal type combination served by its own endpoint.
type Variant string

const (
	AptTrade      Variant = "apt_tr"
	AptRent       Variant = "apt_rt"
	RowHouseTrade Variant = "rh_tr"
	RowHouseRent  Variant = "rh_rt"
	HouseTrade    Variant = "sh_tr"
	HouseRent     Variant = "sh_rt"
)

// Variants lists every variant in workbook sheet order.
var Variants = []Variant{AptTrade, AptRent, RowHouseTrade, RowHouseRent, HouseTrade, HouseRent}

var variantLabels = map[Variant]string{
	AptTrade:      "아파트_매매",
	AptRent:       "아파트_전월세",
	RowHouseTrade: "연립다세대_매매",
	RowHouseRent:  "연립다세대_전월세",
	HouseTrade:    "단독다가구_매매",
	HouseRent:     "단독다가구_전월세",
}

// Label returns the sheet name and type label of the variant.
func (v Variant) Label() string {
	return variantLabels[v]
}

// IsRent reports whether the variant describes lease contracts.
func (v Variant) IsRent() bool {
	return strings.HasSuffix(string(v), "_rt")
}

// SplitLabel splits a sheet label like "아파트_매매" into housing type and deal type.
// The deal type is empty when the label carries no separator.
func SplitLabel(label string) (string, string) {
	housing, deal, _ := strings.Cut(label, "_")
	return housing, deal
}

// Column headers of the canonical record, in output order.
const (
	ColType              = "유형"
	ColProvince          = "시/도"
	ColDistrict          = "구/시"
	ColDong              = "법정동"
	ColContractYearMonth = "계약년월"
	ColContractDate      = "계약일"
	ColName              = "단지명/건물명"
	ColBuildingDong      = "동"
	ColFloor             = "층"
	ColDealAmount        = "거래금액"
	ColDeposit           = "보증금"
	ColMonthlyRent       = "월세"
	ColExclusiveArea     = "전용면적"
	ColLandArea          = "대지면적"
	ColRoadName          = "도로명"
	ColLotNumber         = "지번"
	ColBuildYear         = "건축년도"
	ColContractTerm      = "임차기간"
	ColContractType      = "갱신여부"
	ColPreDeposit        = "기존 보증금"
	ColPreMonthlyRent    = "기존 월세"
	ColYear              = "년"
	ColMonth             = "월"
	ColDay               = "일"
	ColAddress           = "주소"
)

// Columns is the fixed header of every exported sheet.
var Columns = []string{
	ColType, ColProvince, ColDistrict, ColDong, ColContractYearMonth, ColContractDate, ColName,
	ColBuildingDong, ColFloor, ColDealAmount, ColDeposit, ColMonthlyRent, ColExclusiveArea, ColLandArea,
	ColRoadName, ColLotNumber, ColBuildYear, ColContractTerm, ColContractType, ColPreDeposit,
	ColPreMonthlyRent, ColYear, ColMonth, ColDay, ColAddress,
}

// MoneyColumns hold amounts in units of 10,000 KRW.
var MoneyColumns = []string{ColDealAmount, ColDeposit, ColMonthlyRent, ColPreDeposit, ColPreMonthlyRent}

// Record is one transaction in the canonical, variant independent shape.
// Nil pointers mark fields that are absent for the record's variant or in the source item.
type Record struct {
	Type              string
	Province          string
	District          string
	Dong              *string
	ContractYearMonth string
	ContractDate      *time.Time
	Name              *string
	BuildingDong      *string
	Floor             *int64
	DealAmount        *int64
	Deposit           *int64
	MonthlyRent       *int64
	ExclusiveArea     *float64
	LandArea          *float64
	RoadName          *string
	LotNumber         *string
	BuildYear         *int64
	ContractTerm      *string
	ContractType      *string
	PreDeposit        *int64
	PreMonthlyRent    *int64
	Year              *int64
	Month             *int64
	Day               *int64
	Address           string
}

// Values returns the record's fields in Columns order. Nil fields are returned as untyped nil.
func (r Record) Values() []any {
	return []any{
		r.Type, r.Province, r.District, str(r.Dong), r.ContractYearMonth, date(r.ContractDate), str(r.Name),
		str(r.BuildingDong), integer(r.Floor), integer(r.DealAmount), integer(r.Deposit),
		integer(r.MonthlyRent), float(r.ExclusiveArea), float(r.LandArea), str(r.RoadName),
		str(r.LotNumber), integer(r.BuildYear), str(r.ContractTerm), str(r.ContractType),
		integer(r.PreDeposit), integer(r.PreMonthlyRent), integer(r.Year), integer(r.Month),
		integer(r.Day), r.Address,
	}
}

func str(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func integer(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func float(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func date(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

// RawItem is one <item> of a transaction API response: element name to trimmed text.
// Empty elements are not stored.
type RawItem map[string]string

// First returns the value of the first key present in the item, or "" when none is.
func (it RawItem) First(keys ...string) string {
	for _, key := range keys {
		if v, ok := it[key]; ok && v != "" {
			return v
		}
	}

	return ""
}

package normalize

import "github.com/UnknownOlympus/realty-atlas/internal/models"

// Keys lists the item element names tried in order for one canonical field.
type Keys []string

// Schema maps the canonical fields that differ between variants to their source keys.
// A nil Keys leaves the field absent for every record of the variant.
type Schema struct {
	Name          Keys
	NameQualifier Keys // NameQualifier is appended to a present name as "name (qualifier)".
	ExclusiveArea Keys
	LandArea      Keys
	DealAmount    Keys
	Deposit       Keys
	MonthlyRent   Keys
}

// Keys shared by every variant.
var (
	dongKeys           = Keys{"umdNm", "법정동", "dong"}
	lotKeys            = Keys{"jibun", "lnbr", "지번"}
	roadKeys           = Keys{"loadNm", "roadNm", "roadName"}
	roadMainKeys       = Keys{"roadNmBonbun", "roadBonbun", "bonbun"}
	roadSubKeys        = Keys{"roadBubun", "roadNmBubun", "bubun"}
	buildingDongKeys   = Keys{"aptDong"}
	floorKeys          = Keys{"층", "flr", "floor"}
	buildYearKeys      = Keys{"건축년도", "buildYear"}
	contractTermKeys   = Keys{"contractTerm"}
	contractTypeKeys   = Keys{"contractType"}
	preDepositKeys     = Keys{"preDeposit"}
	preMonthlyRentKeys = Keys{"preMonthlyRent"}
	yearKeys           = Keys{"년", "dealYear"}
	monthKeys          = Keys{"월", "dealMonth"}
	dayKeys            = Keys{"일", "dealDay"}
)

var (
	aptNameKeys      = Keys{"아파트", "aptNm", "aptName"}
	rowHouseNameKeys = Keys{"mhouseNm", "houseNm", "bldgNm", "buildingName"}
	houseNameKeys    = Keys{"bldgNm", "buildingName"}
	houseTypeKeys    = Keys{"houseType"}
	exclusiveKeys    = Keys{"전용면적", "excluUseAr", "exclusiveArea"}
	landAreaKeys     = Keys{"대지면적", "landArea", "lndpclAr", "siteArea"}
	dealAmountKeys   = Keys{"거래금액", "dealAmount"}
	depositKeys      = Keys{"보증금", "deposit"}
	monthlyRentKeys  = Keys{"월세", "rent", "monthlyRent"}
)

func prepend(first string, keys Keys) Keys {
	return append(Keys{first}, keys...)
}

// Schemas holds the source keys of every variant.
var Schemas = map[models.Variant]Schema{
	models.AptTrade: {
		Name:          aptNameKeys,
		ExclusiveArea: exclusiveKeys,
		LandArea:      landAreaKeys,
		DealAmount:    dealAmountKeys,
	},
	models.AptRent: {
		Name:          aptNameKeys,
		ExclusiveArea: exclusiveKeys,
		LandArea:      landAreaKeys,
		Deposit:       depositKeys,
		MonthlyRent:   monthlyRentKeys,
	},
	models.RowHouseTrade: {
		Name:          rowHouseNameKeys,
		NameQualifier: houseTypeKeys,
		ExclusiveArea: exclusiveKeys,
		LandArea:      landAreaKeys,
		DealAmount:    dealAmountKeys,
	},
	models.RowHouseRent: {
		Name:          rowHouseNameKeys,
		NameQualifier: houseTypeKeys,
		ExclusiveArea: exclusiveKeys,
		LandArea:      landAreaKeys,
		Deposit:       depositKeys,
		MonthlyRent:   monthlyRentKeys,
	},
	models.HouseTrade: {
		Name:          houseNameKeys,
		ExclusiveArea: prepend("totalFloorAr", exclusiveKeys),
		LandArea:      prepend("plottageAr", landAreaKeys),
		DealAmount:    dealAmountKeys,
	},
	models.HouseRent: {
		Name:          houseNameKeys,
		ExclusiveArea: prepend("totalFloorAr", exclusiveKeys),
		LandArea:      prepend("plottageAr", landAreaKeys),
		Deposit:       depositKeys,
		MonthlyRent:   monthlyRentKeys,
	},
}

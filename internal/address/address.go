// Package address builds the lot-number, road-name and composed address strings of a transaction.
// The composed address doubles as the geocode cache key, so its format must stay stable.
package address

import (
	"strconv"
	"strings"
)

// LotNumber joins the legal-dong name with a lot number. It is empty when no lot number is given.
func LotNumber(dong, lot string) string {
	lot = strings.TrimSpace(lot)
	if lot == "" {
		return ""
	}

	return strings.TrimSpace(strings.TrimSpace(dong) + " " + lot)
}

// RoadName formats a road name with its main and optional sub building number.
// "압구정로", "00113", "" yields "압구정로 113"; "봉은사로105길", "00012", "00007" yields "봉은사로105길 12-7".
func RoadName(road, main, sub string) string {
	road = strings.TrimSpace(road)
	if road == "" {
		return ""
	}

	mainNum := stripLeadingZeros(main)
	if mainNum == "" {
		return road
	}

	subNum := stripLeadingZeros(sub)
	// An all-zero sub number ("00000") means the building has none.
	if subNum != "" && subNum != "0" {
		return road + " " + mainNum + "-" + subNum
	}

	return road + " " + mainNum
}

// Compose returns the address used for display and geocoding. The lot-number form wins over the
// road-name form; with neither, only the district is returned. An empty district yields "".
func Compose(district, lot, road string) string {
	district = strings.TrimSpace(district)
	if district == "" {
		return ""
	}

	if lot = strings.TrimSpace(lot); lot != "" {
		return district + " " + lot
	}
	if road = strings.TrimSpace(road); road != "" {
		return district + " " + road
	}

	return district
}

func stripLeadingZeros(num string) string {
	num = strings.TrimSpace(num)
	if num == "" {
		return ""
	}

	if n, err := strconv.ParseInt(num, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}

	if trimmed := strings.TrimLeft(num, "0"); trimmed != "" {
		return trimmed
	}

	return "0"
}

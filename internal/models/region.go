package models

import "strings"

// Region is an administrative district queried by the transaction API.
type Region struct {
	Name string // Name is the underscore separated region label, e.g. "경기도_성남시_분당구".
	Code string // Code is the 5-character LAWD code.
}

// Parts splits the region name into the province and the city/district part.
// "경기도_성남시_분당구" yields ("경기도", "성남시 분당구").
func (r Region) Parts() (string, string) {
	parts := strings.Split(r.Name, "_")
	if len(parts) == 1 {
		return parts[0], ""
	}

	return parts[0], strings.Join(parts[1:], " ")
}

package address

import "strings"

// SeoulProvince is prefixed to addresses that start with a bare Seoul district name.
const SeoulProvince = "서울특별시"

var seoulDistricts = []string{
	"강남구", "서초구", "송파구", "강동구", "용산구", "마포구", "성동구", "광진구", "중구", "종로구",
	"동대문구", "성북구", "강북구", "도봉구", "노원구", "중랑구", "은평구", "서대문구",
	"양천구", "강서구", "구로구", "금천구", "영등포구", "동작구", "관악구",
}

// WithSeoulProvince prefixes the Seoul province name when the address begins with one of the
// 25 Seoul district names. Other addresses are returned trimmed but otherwise unchanged.
func WithSeoulProvince(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return addr
	}

	for _, district := range seoulDistricts {
		if strings.HasPrefix(addr, district) {
			return SeoulProvince + " " + addr
		}
	}

	return addr
}

// Package normalize converts raw transaction items of every variant into canonical records.
package normalize

import (
	"errors"
	"fmt"

	"github.com/UnknownOlympus/realty-atlas/internal/address"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
)

// ErrUnknownVariant is returned for a variant without a schema.
var ErrUnknownVariant = errors.New("unknown record variant")

// Normalize converts the items fetched for one region into records in input order.
func Normalize(variant models.Variant, region models.Region, items []models.RawItem) ([]models.Record, error) {
	schema, ok := Schemas[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	province, district := region.Parts()
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		records = append(records, schema.record(variant, province, district, item))
	}

	return records, nil
}

func (s Schema) record(variant models.Variant, province, district string, item models.RawItem) models.Record {
	dong := item.First(dongKeys...)
	lot := address.LotNumber(dong, item.First(lotKeys...))
	road := address.RoadName(item.First(roadKeys...), item.First(roadMainKeys...), item.First(roadSubKeys...))

	year, month, day := item.First(yearKeys...), item.First(monthKeys...), item.First(dayKeys...)

	return models.Record{
		Type:              variant.Label(),
		Province:          province,
		District:          district,
		Dong:              Text(dong),
		ContractYearMonth: ContractYearMonth(year, month),
		ContractDate:      ContractDate(year, month, day),
		Name:              Text(s.name(item)),
		BuildingDong:      Text(item.First(buildingDongKeys...)),
		Floor:             Int(item.First(floorKeys...)),
		DealAmount:        intField(item, s.DealAmount),
		Deposit:           intField(item, s.Deposit),
		MonthlyRent:       intField(item, s.MonthlyRent),
		ExclusiveArea:     floatField(item, s.ExclusiveArea),
		LandArea:          floatField(item, s.LandArea),
		RoadName:          Text(road),
		LotNumber:         Text(lot),
		BuildYear:         Int(item.First(buildYearKeys...)),
		ContractTerm:      Text(item.First(contractTermKeys...)),
		ContractType:      Text(item.First(contractTypeKeys...)),
		PreDeposit:        Int(item.First(preDepositKeys...)),
		PreMonthlyRent:    Int(item.First(preMonthlyRentKeys...)),
		Year:              Int(year),
		Month:             Int(month),
		Day:               Int(day),
		Address:           address.Compose(district, lot, road),
	}
}

func (s Schema) name(item models.RawItem) string {
	name := item.First(s.Name...)
	if name == "" || s.NameQualifier == nil {
		return name
	}

	if qualifier := item.First(s.NameQualifier...); qualifier != "" {
		return fmt.Sprintf("%s (%s)", name, qualifier)
	}

	return name
}

func intField(item models.RawItem, keys Keys) *int64 {
	if keys == nil {
		return nil
	}
	return Int(item.First(keys...))
}

func floatField(item models.RawItem, keys Keys) *float64 {
	if keys == nil {
		return nil
	}
	return Float(item.First(keys...))
}

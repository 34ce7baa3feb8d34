package ports

import (
	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/overlap"
)

// DistrictService is the port used by controllers (HTTP/MQTT/Modbus).
type DistrictService interface {
	Report() district.Report
	Buildings() []district.Building
	COP() overlap.COP
	SetBuildings([]district.Building) (district.Report, error)
	SetCOP(overlap.COP) (district.Report, error)
	UpdateCOP(func(overlap.COP) overlap.COP) (district.Report, error)
}

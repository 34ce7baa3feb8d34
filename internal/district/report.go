package district

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type reportFile struct {
	DistrictID  string               `yaml:"district_id"`
	Steps       int                  `yaml:"steps"`
	DistrictDOC float64              `yaml:"district_doc"`
	DurationDOC float64              `yaml:"duration_doc"`
	MeanBESDOC  float64              `yaml:"mean_bes_doc"`
	NetworkDOC  float64              `yaml:"network_doc"`
	Buildings   []buildingReportFile `yaml:"buildings"`
}

type buildingReportFile struct {
	Name   string  `yaml:"name"`
	BESDOC float64 `yaml:"bes_doc"`
}

// WriteYAML writes the coefficients of a report, without the series.
func WriteYAML(w io.Writer, r Report) error {
	out := reportFile{
		DistrictID:  r.DistrictID,
		Steps:       r.Steps,
		DistrictDOC: r.DistrictDOC,
		DurationDOC: r.DurationDOC,
		MeanBESDOC:  r.MeanBESDOC,
		NetworkDOC:  r.NetworkDOC,
		Buildings:   make([]buildingReportFile, len(r.Buildings)),
	}
	for i, b := range r.Buildings {
		out.Buildings[i] = buildingReportFile{Name: b.Name, BESDOC: b.BESDOC}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

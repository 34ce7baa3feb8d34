package profile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/overlap"
)

var ErrMissingColumn = errors.New("missing column")

// LoadCSV reads a building from a file with a header row containing "heat"
// and "cool" columns. Other columns are ignored.
func LoadCSV(path, name string) (district.Building, error) {
	f, err := os.Open(path)
	if err != nil {
		return district.Building{}, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	heat, cool, err := ReadCSV(f)
	if err != nil {
		return district.Building{}, fmt.Errorf("%s: %w", path, err)
	}
	return district.Building{Name: name, Heat: heat, Cool: cool}, nil
}

func ReadCSV(r io.Reader) (overlap.Profile, overlap.Profile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	heatCol, coolCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "heat":
			heatCol = i
		case "cool":
			coolCol = i
		}
	}
	if heatCol < 0 {
		return nil, nil, fmt.Errorf("%w %q", ErrMissingColumn, "heat")
	}
	if coolCol < 0 {
		return nil, nil, fmt.Errorf("%w %q", ErrMissingColumn, "cool")
	}

	var heat, cool overlap.Profile
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := cr.FieldPos(0)
		h, err := parseField(record, heatCol)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: heat: %w", line, err)
		}
		c, err := parseField(record, coolCol)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: cool: %w", line, err)
		}
		heat = append(heat, h)
		cool = append(cool, c)
	}
	return heat, cool, nil
}

func parseField(record []string, col int) (float64, error) {
	if col >= len(record) {
		return 0, fmt.Errorf("%w %d", ErrMissingColumn, col)
	}
	return strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
}

// WriteCSV writes a building in the format read by ReadCSV.
func WriteCSV(w io.Writer, b district.Building) error {
	if len(b.Heat) != len(b.Cool) {
		return fmt.Errorf("%w: heating %d, cooling %d", overlap.ErrLengthMismatch, len(b.Heat), len(b.Cool))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hour", "heat", "cool"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for t := range b.Heat {
		if err := cw.Write([]string{
			strconv.Itoa(t),
			formatFloat(b.Heat[t]),
			formatFloat(b.Cool[t]),
		}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCurves writes the district series of a report next to their
// duration curves, one timestep per row.
func WriteCurves(w io.Writer, r district.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hour", "heat", "cool", "balanced", "duration_fraction", "heat_duration", "cool_duration"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for t := 0; t < r.Steps; t++ {
		if err := cw.Write([]string{
			strconv.Itoa(t),
			formatFloat(r.Heat[t]),
			formatFloat(r.Cool[t]),
			formatFloat(r.Balanced[t]),
			formatFloat(r.HeatCurve.Fractions[t]),
			formatFloat(r.HeatCurve.Values[t]),
			formatFloat(r.CoolCurve.Values[t]),
		}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

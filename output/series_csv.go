package output

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
)

// SeriesRow is one month of the exported time series. Empty values mean no
// data was available.
type SeriesRow struct {
	Month      string `csv:"month"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	RainfallMM string `csv:"rainfall_mm"`
	StationMM  string `csv:"station_mm"`
}

func NewSeriesRow(start, end time.Time, rainfall float64, rainfallValid bool, station float64, stationValid bool) SeriesRow {
	row := SeriesRow{
		Month: start.Format("2006-01"),
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
	}
	if rainfallValid {
		row.RainfallMM = strconv.FormatFloat(rainfall, 'f', 3, 64)
	}
	if stationValid {
		row.StationMM = strconv.FormatFloat(station, 'f', 3, 64)
	}
	return row
}

// Rainfall returns the parsed rainfall value and whether it was present.
func (r SeriesRow) Rainfall() (float64, bool) {
	return parseOptional(r.RainfallMM)
}

func (r SeriesRow) Station() (float64, bool) {
	return parseOptional(r.StationMM)
}

func parseOptional(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func SaveSeriesCSV(rows []SeriesRow, outputPath string) error {
	if len(rows) == 0 {
		return fmt.Errorf("no series rows to save")
	}
	if err := ensureParent(outputPath); err != nil {
		return err
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create series file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to save series to file: %w", err)
	}
	logrus.Infof("series with %d rows saved to %s", len(rows), outputPath)
	return nil
}

func LoadSeriesCSV(path string) ([]SeriesRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open series file: %w", err)
	}
	defer file.Close()

	var rows []SeriesRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to read series file: %w", err)
	}
	return rows, nil
}

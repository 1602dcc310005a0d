package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"
)

var registerOnce sync.Once

// Open reads the first band of a GeoTIFF.
func Open(path string) (*Raster, error) {
	registerOnce.Do(godal.RegisterAll)

	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal: %s", msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open TIFF file: %v", err)
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.NBands < 1 {
		return nil, fmt.Errorf("%s has no bands", path)
	}

	geoTransform, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to read geotransform: %w", err)
	}

	width, height := structure.SizeX, structure.SizeY
	band := ds.Bands()[0]
	values := make([]float64, width*height)
	if err := band.Read(0, 0, values, width, height); err != nil {
		return nil, fmt.Errorf("failed to read raster data: %v", err)
	}

	r := &Raster{
		Width:        width,
		Height:       height,
		GeoTransform: geoTransform,
		Values:       values,
	}
	r.NoData, r.HasNoData = band.NoData()
	return r, nil
}

// Save writes GeoTIFF bytes to path and opens them.
func Save(data []byte, path string) (*Raster, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write image file: %v", err)
	}
	return Open(path)
}

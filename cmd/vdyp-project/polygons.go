package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"vdypcore/pkg/domain"
)

type polygonFile struct {
	Polygons []*domain.Polygon `yaml:"polygons"`
}

func loadPolygons(path string) ([]*domain.Polygon, error) {
	// #nosec G304 -- the polygon file is named by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return decodePolygons(f)
}

func decodePolygons(r io.Reader) ([]*domain.Polygon, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file polygonFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no polygons")
		}
		return nil, fmt.Errorf("decode polygons: %w", err)
	}
	if len(file.Polygons) == 0 {
		return nil, errors.New("no polygons")
	}
	seen := make(map[string]struct{}, len(file.Polygons))
	var errs []error
	for i, p := range file.Polygons {
		if p == nil {
			errs = append(errs, fmt.Errorf("polygon %d: empty entry", i))
			continue
		}
		if err := normalize(p); err != nil {
			errs = append(errs, fmt.Errorf("polygon %s: %w", p.ID, err))
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Errorf("polygon %s: listed twice", p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return file.Polygons, nil
}

// normalize accepts layer types and the standard in any case.
func normalize(p *domain.Polygon) error {
	p.Standard = domain.InventoryStandard(strings.ToUpper(strings.TrimSpace(string(p.Standard))))
	for i := range p.Layers {
		t, err := domain.ParseProjectionType(string(p.Layers[i].Type))
		if err != nil {
			return err
		}
		p.Layers[i].Type = t
		for j := range p.Layers[i].Species {
			sp := &p.Layers[i].Species[j]
			sp.Genus = strings.ToUpper(strings.TrimSpace(sp.Genus))
		}
	}
	return nil
}

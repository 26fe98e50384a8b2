package projection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vdypcore/internal/growth"
	"vdypcore/pkg/domain"
)

// ExecRunner runs components against the growth engine through the growth
// file contract: it writes the layer inventory and the control file into
// the job folder and hands the control file to the engine.
type ExecRunner struct {
	engine growth.Engine
}

// NewExecRunner returns a runner backed by engine.
func NewExecRunner(engine growth.Engine) *ExecRunner {
	return &ExecRunner{engine: engine}
}

// Run implements ComponentRunner.
func (r *ExecRunner) Run(ctx context.Context, component domain.Component, job Job) *StageFailure {
	fail := func(code growth.ReturnCode, err error) *StageFailure {
		if code == growth.CodeOK && err == nil {
			return nil
		}
		return &StageFailure{Component: component, Type: job.Layer.Type, Code: code, Err: err}
	}
	if err := os.MkdirAll(job.Folder, 0o750); err != nil {
		return fail(growth.CodeIOFailure, err)
	}
	switch component {
	case domain.ComponentAdjust:
		return fail(adjust(job.Folder))
	case domain.ComponentFipStart, domain.ComponentVriStart:
		if err := writeInventory(job); err != nil {
			return fail(growth.CodeIOFailure, err)
		}
	case domain.ComponentForward, domain.ComponentBack:
		if job.CompatibilityOverride != "" {
			if err := copyFile(job.CompatibilityOverride, filepath.Join(job.Folder, growth.CompatibilityFile)); err != nil {
				return fail(growth.CodeIOFailure, err)
			}
		}
	default:
		return fail(growth.CodeOK, fmt.Errorf("unknown component %q", component))
	}

	controlFile, err := writeControl(component, job)
	if err != nil {
		return fail(growth.CodeIOFailure, err)
	}
	var code growth.ReturnCode
	switch component {
	case domain.ComponentFipStart:
		code, err = r.engine.FipStart(ctx, controlFile)
	case domain.ComponentVriStart:
		code, err = r.engine.VriStart(ctx, controlFile)
	case domain.ComponentForward:
		code, err = r.engine.Forward(ctx, controlFile)
	case domain.ComponentBack:
		code, err = r.engine.Back(ctx, controlFile)
	}
	return fail(code, err)
}

func writeInventory(job Job) error {
	var buf bytes.Buffer
	if err := growth.WriteInventory(&buf, job.Polygon, job.Layer); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(job.Folder, growth.InventoryFile), buf.Bytes(), 0o600)
}

func writeControl(component domain.Component, job Job) (string, error) {
	params := growth.TemplateParams{
		Title:     fmt.Sprintf("%s %s %s", job.Polygon.ID, job.Layer.Type, component),
		FirstYear: job.FirstYear,
	}
	if job.CompatibilityOverride != "" {
		params.CompatibilityOverride = growth.CompatibilityFile
	}
	data, err := growth.ControlTemplate(component, params)
	if err != nil {
		return "", err
	}
	if component == domain.ComponentForward || component == domain.ComponentBack {
		if data, err = growth.RewriteYear(data, growth.TagTargetYear, job.TargetYear); err != nil {
			return "", err
		}
	}
	path := filepath.Join(job.Folder, growth.ControlFileName(component))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write control file: %w", err)
	}
	return path, nil
}

// adjust copies the initialized state files to their adjusted names
// unchanged.
func adjust(folder string) (growth.ReturnCode, error) {
	pairs := [][2]string{
		{growth.PolygonStateFile, growth.AdjustedPolygonFile},
		{growth.SpeciesStateFile, growth.AdjustedSpeciesFile},
		{growth.UtilizationStateFile, growth.AdjustedUtilizationFile},
	}
	for _, pair := range pairs {
		if err := copyFile(filepath.Join(folder, pair[0]), filepath.Join(folder, pair[1])); err != nil {
			return growth.CodeIOFailure, err
		}
	}
	return growth.CodeOK, nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from) // #nosec G304 -- paths are built inside the execution folder
	if err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(from), err)
	}
	defer func() { _ = src.Close() }()
	dst, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- see above
	if err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(from), err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(from), err)
	}
	return dst.Close()
}

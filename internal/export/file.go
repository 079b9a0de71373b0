package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

// Formats lists the file extensions ToFile understands.
var Formats = []string{".csv", ".json", ".svg", ".png", ".html"}

// ToFile writes res in the format implied by path's extension. The plant
// supplies labels and, for JSON and HTML, its step log.
func ToFile(path string, res *sim.Result, p plants.Plant, integrator string) (err error) {
	ext := strings.ToLower(filepath.Ext(path))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	defer func() {
		if ferr := bw.Flush(); err == nil {
			err = ferr
		}
	}()

	var settings plants.PlotSettings
	if p != nil {
		settings = p.Plot()
	}

	switch ext {
	case ".csv":
		return WriteTrajectoryCSV(bw, res)
	case ".json":
		return WriteJSON(bw, NewExportData(res, p, integrator))
	case ".svg":
		return WriteSVG(bw, res, settings, 800, 400)
	case ".png":
		return WritePNG(bw, []*sim.Result{res}, settings, 8, 4, 150)
	case ".html":
		return WriteHTML(bw, []*sim.Result{res}, p)
	default:
		return fmt.Errorf("unsupported export format %q (want one of %v)", ext, Formats)
	}
}

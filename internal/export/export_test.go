package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

func runOscillator(t *testing.T) (*sim.Result, plants.Plant) {
	t.Helper()
	loop := sim.New(plants.New(plants.SecondOrder), nil)
	res, err := loop.Run(context.Background(), sim.Params{Setpoint: 1, Runtime: 2, Dt: 0.1, Kp: 1, Ki: 2})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res, loop.Plant()
}

func TestWriteTrajectoryCSV(t *testing.T) {
	res, _ := runOscillator(t)

	var buf bytes.Buffer
	if err := WriteTrajectoryCSV(&buf, res); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(rows) != res.Len()+1 {
		t.Fatalf("expected %d rows, got %d", res.Len()+1, len(rows))
	}
	if strings.Join(rows[0], ",") != "time,setpoint,feedback,control" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "0.000000" || rows[1][1] != "1.000000" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
}

func TestWriteLogCSV(t *testing.T) {
	res, p := runOscillator(t)

	var buf bytes.Buffer
	if err := WriteLogCSV(&buf, p); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(rows) != res.Len()+1 {
		t.Errorf("expected %d rows, got %d", res.Len()+1, len(rows))
	}
	if strings.Join(rows[0], ",") != "t,y,dy" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	for _, row := range rows {
		if len(row) != 3 {
			t.Fatalf("expected 3 columns, got %v", row)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	res, p := runOscillator(t)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewExportData(res, p, "rk45")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if data.Plant != "2nd Order ODE" {
		t.Errorf("expected plant '2nd Order ODE', got '%s'", data.Plant)
	}
	if data.Integrator != "rk45" {
		t.Errorf("expected integrator 'rk45', got '%s'", data.Integrator)
	}
	if data.Steps != 21 || len(data.Feedback) != 21 || len(data.Log) != 21 {
		t.Errorf("unexpected lengths: steps=%d feedback=%d log=%d", data.Steps, len(data.Feedback), len(data.Log))
	}
	if len(data.Log[0]) != len(data.Columns) {
		t.Errorf("log row has %d values for %d columns", len(data.Log[0]), len(data.Columns))
	}
	if data.Plot.Title != "Second Order ODE" {
		t.Errorf("unexpected plot title %q", data.Plot.Title)
	}
	if data.Step.Setpoint != 1 {
		t.Errorf("step response setpoint: got %f", data.Step.Setpoint)
	}
}

func TestNewExportDataWithoutPlant(t *testing.T) {
	res, _ := runOscillator(t)
	data := NewExportData(res, nil, "")
	if data.Log != nil || data.Columns != nil {
		t.Error("expected no log without a plant")
	}
}

func TestWriteSVG(t *testing.T) {
	res, p := runOscillator(t)

	var buf bytes.Buffer
	if err := WriteSVG(&buf, res, p.Plot(), 400, 200); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "Second Order ODE", "stroke-dasharray", "time (s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if strings.Count(out, "<path") != 2 {
		t.Errorf("expected 2 paths, got %d", strings.Count(out, "<path"))
	}

	if err := WriteSVG(&buf, &sim.Result{}, p.Plot(), 400, 200); err == nil {
		t.Error("expected error for empty result")
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	if TrajectoryToSVG(nil, 10, 10, "#fff") != "" {
		t.Error("expected empty output for no points")
	}
	pts := []struct{ X, Y float64 }{{0, 0}, {1, 1}, {2, 0}}
	out := TrajectoryToSVG(pts, 100, 50, "#ffffff")
	if !strings.Contains(out, `stroke="#ffffff"`) || !strings.HasSuffix(out, "</svg>") {
		t.Errorf("unexpected svg:\n%s", out)
	}
}

func TestWritePNG(t *testing.T) {
	res, p := runOscillator(t)

	var buf bytes.Buffer
	if err := WritePNG(&buf, []*sim.Result{res}, p.Plot(), 4, 3, 72); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a PNG")
	}

	if err := WritePNG(&buf, nil, p.Plot(), 4, 3, 72); err == nil {
		t.Error("expected error for no results")
	}
}

func TestWriteHTML(t *testing.T) {
	res, p := runOscillator(t)

	var buf bytes.Buffer
	if err := WriteHTML(&buf, []*sim.Result{res}, p); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"echarts", "Second Order ODE", "setpoint"} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestToFile(t *testing.T) {
	res, p := runOscillator(t)
	dir := t.TempDir()

	for _, ext := range Formats {
		path := filepath.Join(dir, "out", "run"+ext)
		if err := ToFile(path, res, p, "rk45"); err != nil {
			t.Fatalf("%s: %v", ext, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("%s: %v", ext, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s: empty file", ext)
		}
	}

	if err := ToFile(filepath.Join(dir, "run.xml"), res, p, ""); err == nil {
		t.Error("expected error for unsupported format")
	}
}

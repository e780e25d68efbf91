// Command scantest runs the scan pipeline on a still image and prints the
// detections and crops it produces.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"barcode-tracker/internal/config"
	"barcode-tracker/internal/correct"
	"barcode-tracker/internal/decode"
	"barcode-tracker/internal/frame"
	"barcode-tracker/internal/monitoring"
	"barcode-tracker/internal/pipeline"
	"barcode-tracker/internal/roi"
	"barcode-tracker/internal/version"
	"barcode-tracker/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Path to image (PNG, JPEG, TIFF or BMP)")
	synthetic := flag.Bool("synthetic", false, "Scan a generated bar chart instead of an image")
	settingsPath := flag.String("config", "", "Optional settings file (JSON)")
	outDir := flag.String("out", "", "Directory to write crops to")
	doDecode := flag.Bool("decode", false, "Decode crops with the barcode reader")
	ocr := flag.Bool("ocr", false, "Fall back to digit OCR when barcode decoding fails")
	quadArg := flag.String("quad", "", "Rectify the quadrilateral x1,y1,x2,y2,x3,y3,x4,y4 (clockwise from top-left) before scanning")
	frames := flag.Int("frames", 1, "Number of passes over the same image")
	targets := flag.Bool("targets", false, "Follow every detection across passes and list the tracked targets")
	asJSON := flag.Bool("json", false, "Print the final result as JSON")
	quiet := flag.Bool("q", false, "Suppress pipeline logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *showVersion {
		fmt.Println("scantest", version.String())
		return
	}
	if *imagePath == "" && !*synthetic {
		fmt.Println("Usage: scantest -image <path> | -synthetic [-config settings.json] [-quad x1,y1,...] [-out dir] [-decode [-ocr]] [-frames N] [-targets] [-json]")
		os.Exit(1)
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	// Load settings
	settings := config.DefaultSettings()
	if *settingsPath != "" {
		s, err := config.LoadSettings(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
			os.Exit(1)
		}
		settings = s
	}
	opts := pipeline.FromSettings(settings)

	// Load image
	var f *frame.Frame
	var err error
	if *synthetic {
		f, err = syntheticFrame()
	} else {
		f, err = loadFrame(*imagePath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("scantest %s\n", version.Version)

	// toSource maps rectified coordinates back onto the loaded image.
	var toSource *[3][3]float64
	if *quadArg != "" {
		q, err := parseQuad(*quadArg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -quad: %v\n", err)
			os.Exit(1)
		}
		f, toSource, err = rectify(f, q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Rectification failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rectified quad (%.0f,%.0f)-(%.0f,%.0f)-(%.0f,%.0f)-(%.0f,%.0f)\n",
			q.TopLeft.X, q.TopLeft.Y, q.TopRight.X, q.TopRight.Y,
			q.BottomRight.X, q.BottomRight.Y, q.BottomLeft.X, q.BottomLeft.Y)
	}
	fmt.Printf("Frame: %dx%d pixels\n", f.Width, f.Height)

	var dec decode.Decoder
	if *doDecode {
		chain := decode.Chain{decode.NewBarcodeDecoder(true)}
		if *ocr {
			td, err := decode.NewTextDecoder(6)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to start OCR: %v\n", err)
				os.Exit(1)
			}
			defer td.Close()
			chain = append(chain, td)
		}
		dec = chain
	}

	p := pipeline.New(opts, nil)
	fmt.Printf("Session: %s\n", p.SessionID())

	var multi *roi.MultiTracker
	if *targets {
		multi = roi.NewMultiTracker(opts.ROI, 0)
	}

	var res *pipeline.Result
	for i := 0; i < max(1, *frames); i++ {
		res = p.Process(f)
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "Pass %d failed: %v\n", i+1, res.Err)
			os.Exit(1)
		}
		fmt.Printf("Pass %d: %d detections, %d crops, strategy %s, ROI %s, %v\n",
			i+1, len(res.Detections), len(res.Crops), res.Strategy, res.ROIState, res.ProcessingTime.Round(time.Microsecond))
		if stable, ok := p.StableROI(); ok {
			fmt.Printf("  stable ROI %s\n", boxString(stable.Left, stable.Top, stable.Right, stable.Bottom))
		}
		if multi != nil {
			boxes := make([]geometry.Box, len(res.Detections))
			for j, d := range res.Detections {
				boxes[j] = d.Box
			}
			multi.Update(boxes, f.Width, f.Height)
		}

		if dec != nil {
			start := time.Now()
			decoded, src, err := pipeline.DecodeFirst(context.Background(), dec, res.Crops)
			switch {
			case err == nil:
				res.Decoded = &decoded
				res.Source = src
				fmt.Printf("  decoded %s %q from %s crop of #%d\n", decoded.Format, decoded.Text, src.Type, src.SourceIndex)
			case errors.Is(err, decode.ErrNotFound):
				fmt.Printf("  nothing decoded\n")
			default:
				fmt.Fprintf(os.Stderr, "  decode failed: %v\n", err)
			}
			p.RecordOutcome(err == nil, res.ProcessingTime+time.Since(start))
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
			os.Exit(1)
		}
	} else {
		printResult(res)
		if toSource != nil {
			printSourcePositions(res, *toSource)
		}
		if multi != nil {
			printTargets(multi)
		}
	}

	if dec != nil {
		st := p.Stats()
		fmt.Printf("\nScans: %d, successful: %d (%.0f%%), avg %v, p95 %v\n",
			st.TotalScans, st.SuccessfulScans, st.SuccessRate*100, st.AverageTime.Round(time.Microsecond), st.P95.Round(time.Microsecond))
	}

	if *outDir != "" {
		if err := writeCrops(*outDir, res.Crops); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write crops: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d crops to %s\n", len(res.Crops), *outDir)
	}
}

func loadFrame(path string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	img, format, err := image.Decode(fh)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded %s image\n", format)
	return frame.FromImage(img)
}

// syntheticFrame renders two bar charts on a light background.
func syntheticFrame() (*frame.Frame, error) {
	g := frame.NewFlat(640, 480, 235)
	frame.DrawBars(g, image.Rect(120, 150, 360, 230), 4, true)
	frame.DrawBars(g, image.Rect(420, 300, 580, 350), 3, true)
	return frame.FromGray(g)
}

func printResult(res *pipeline.Result) {
	fmt.Printf("\nWindow: (%d,%d)-(%d,%d)\n", res.Window.Left, res.Window.Top, res.Window.Right, res.Window.Bottom)

	fmt.Printf("\nDetected %d regions:\n", len(res.Detections))
	fmt.Printf("%-4s %-22s %8s %8s %8s %8s %10s %-10s\n",
		"#", "Box", "Area", "Aspect", "Solid", "Grad", "Confidence", "Axis")
	fmt.Println(strings.Repeat("-", 88))
	for _, c := range res.Detections {
		fmt.Printf("%-4d %-22s %8.1f %8.1f %8.1f %8.1f %10.1f %-10s\n",
			c.Index, boxString(c.Box.Left, c.Box.Top, c.Box.Right, c.Box.Bottom),
			c.Details.Area, c.Details.Aspect, c.Details.Solidity, c.Details.Gradient,
			c.Confidence, c.Axis)
	}

	fmt.Printf("\nCrops (%d):\n", len(res.Crops))
	fmt.Printf("%-4s %-22s %-16s %6s %8s  %s\n", "Src", "Box", "Type", "Scale", "Angle", "Applied")
	fmt.Println(strings.Repeat("-", 80))
	for _, c := range res.Crops {
		fmt.Printf("%-4d %-22s %-16s %6.2f %8.1f  %s\n",
			c.SourceIndex, boxString(c.Box.Left, c.Box.Top, c.Box.Right, c.Box.Bottom),
			c.Type, c.Scale, c.Angle, strings.Join(c.Applied, ","))
	}
}

func boxString(l, t, r, b int) string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", l, t, r, b)
}

func writeCrops(dir string, crops []pipeline.Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, c := range crops {
		name := fmt.Sprintf("crop_%02d_src%d_%s_x%.2f.png", i, c.SourceIndex, strings.ToLower(c.Type.String()), c.Scale)
		fh, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		err = png.Encode(fh, c.Image)
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// parseQuad reads eight comma-separated coordinates.
func parseQuad(s string) (geometry.Quad, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 8 {
		return geometry.Quad{}, fmt.Errorf("want 8 coordinates, got %d", len(parts))
	}
	var v [8]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Quad{}, err
		}
		v[i] = f
	}
	return geometry.Quad{
		TopLeft:     geometry.Point2D{X: v[0], Y: v[1]},
		TopRight:    geometry.Point2D{X: v[2], Y: v[3]},
		BottomRight: geometry.Point2D{X: v[4], Y: v[5]},
		BottomLeft:  geometry.Point2D{X: v[6], Y: v[7]},
	}, nil
}

// rectify warps q upright and returns the homography from the rectified
// frame back to the source.
func rectify(f *frame.Frame, q geometry.Quad) (*frame.Frame, *[3][3]float64, error) {
	upright, err := correct.Rectify(f.Lum, q)
	if err != nil {
		return nil, nil, err
	}
	w, h := float64(upright.Rect.Dx()), float64(upright.Rect.Dy())
	corners := [4]geometry.Point2D{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
	H, err := correct.Homography(corners, [4]geometry.Point2D(q.Points()))
	if err != nil {
		return nil, nil, err
	}
	rf, err := frame.FromGray(upright)
	if err != nil {
		return nil, nil, err
	}
	return rf, &H, nil
}

func printSourcePositions(res *pipeline.Result, H [3][3]float64) {
	fmt.Printf("\nDetection centers in the source image:\n")
	for _, c := range res.Detections {
		ctr := c.Box.ToFloat().Center()
		src := correct.ApplyHomography(H, ctr)
		fmt.Printf("  #%d (%.0f,%.0f) -> (%.1f,%.1f)\n", c.Index, ctr.X, ctr.Y, src.X, src.Y)
	}
}

func printTargets(m *roi.MultiTracker) {
	fmt.Printf("\nTracked targets (%d):\n", m.Len())
	fmt.Printf("%-36s %-11s %-22s %10s %6s\n", "ID", "Phase", "Box", "Confidence", "Frames")
	fmt.Println(strings.Repeat("-", 90))
	for _, tg := range m.Targets() {
		st := tg.State()
		fmt.Printf("%-36s %-11s %-22s %10.2f %6d\n",
			tg.ID, st.Phase, boxString(st.Box.Left, st.Box.Top, st.Box.Right, st.Box.Bottom), st.Confidence, st.Frames)
	}
}

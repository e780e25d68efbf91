// Command livescan reads frames from a camera or video file and runs them
// through the scan pipeline until a symbol decodes or the stream ends.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"barcode-tracker/internal/config"
	"barcode-tracker/internal/decode"
	"barcode-tracker/internal/frame"
	"barcode-tracker/internal/monitoring"
	"barcode-tracker/internal/pipeline"
	"barcode-tracker/internal/version"
)

func main() {
	source := flag.String("source", "0", "Camera index or video file path")
	settingsPath := flag.String("config", "", "Settings file (JSON), reloaded when it changes")
	rotation := flag.Int("rotation", 0, "Clockwise rotation needed to make frames upright")
	ocr := flag.Bool("ocr", false, "Fall back to digit OCR when barcode decoding fails")
	keepGoing := flag.Bool("continuous", false, "Keep scanning after a successful decode")
	statsEvery := flag.Duration("stats", 5*time.Second, "Interval between stats lines (0 disables)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *showVersion {
		fmt.Println("livescan", version.String())
		return
	}
	monitoring.Logf("livescan %s", version.String())

	settings := config.DefaultSettings()
	if *settingsPath != "" {
		s, err := config.LoadSettings(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
			os.Exit(1)
		}
		settings = s
	}

	chain := decode.Chain{decode.NewBarcodeDecoder(false)}
	if *ocr {
		td, err := decode.NewTextDecoder(6)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start OCR: %v\n", err)
			os.Exit(1)
		}
		defer td.Close()
		chain = append(chain, td)
	}

	p := pipeline.New(pipeline.FromSettings(settings), chain)
	monitoring.Logf("livescan: session %s", p.SessionID())

	if *settingsPath != "" {
		w, err := config.NewWatcher(*settingsPath, time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch settings: %v\n", err)
			os.Exit(1)
		}
		w.OnChange(func(s *config.Settings) {
			p.ApplySettings(s)
			monitoring.Logf("livescan: settings reloaded from %s", w.Path())
		})
		w.Start()
		defer w.Stop()
	}

	capture, err := openCapture(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", *source, err)
		os.Exit(1)
	}
	defer capture.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	found := make(chan decode.Result, 1)
	onResult := func(res *pipeline.Result) {
		if res.Err != nil {
			monitoring.Logf("livescan: frame failed: %v", res.Err)
			return
		}
		if res.Decoded == nil {
			return
		}
		fmt.Printf("%s %s %s (strategy %s, ROI %s)\n",
			time.Now().Format(time.TimeOnly), res.Decoded.Format, res.Decoded.Text, res.Strategy, res.ROIState)
		select {
		case found <- *res.Decoded:
		default:
		}
	}

	if err := run(ctx, capture, p, *rotation, onResult, found, *keepGoing, *statsEvery); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	printStats(p.Stats())
}

// openCapture treats a numeric source as a device index.
func openCapture(source string) (*gocv.VideoCapture, error) {
	if id, err := strconv.Atoi(source); err == nil {
		return gocv.OpenVideoCapture(id)
	}
	return gocv.OpenVideoCapture(source)
}

func run(ctx context.Context, capture *gocv.VideoCapture, p *pipeline.Pipeline, rotation int,
	onResult func(*pipeline.Result), found <-chan decode.Result, keepGoing bool, statsEvery time.Duration) error {
	img := gocv.NewMat()
	defer img.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	var statsC <-chan time.Time
	if statsEvery > 0 {
		ticker := time.NewTicker(statsEvery)
		defer ticker.Stop()
		statsC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-found:
			if !keepGoing {
				return nil
			}
		case <-statsC:
			printStats(p.Stats())
		default:
		}

		if ok := capture.Read(&img); !ok {
			// wait for an in-flight decode before reporting
			for p.Busy() {
				time.Sleep(10 * time.Millisecond)
			}
			return nil
		}
		if img.Empty() {
			continue
		}
		if img.Channels() == 1 {
			img.CopyTo(&gray)
		} else {
			gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
		}

		// Submit copies the plane, so the Mat buffer can be reused.
		plane := frame.Plane{
			Data:     gray.ToBytes(),
			Width:    gray.Cols(),
			Height:   gray.Rows(),
			Rotation: rotation,
		}
		p.Submit(ctx, plane, onResult)
	}
}

func printStats(st pipeline.Stats) {
	fmt.Printf("scans %d, ok %d (%.0f%%), avg %v, p50 %v, p95 %v, strategy %s, ROI %s, dropped %d\n",
		st.TotalScans, st.SuccessfulScans, st.SuccessRate*100,
		st.AverageTime.Round(time.Millisecond), st.P50.Round(time.Millisecond), st.P95.Round(time.Millisecond),
		st.Strategy, st.ROIState, st.DroppedFrames)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/framestudio/internal/config"
	"github.com/ivlev/framestudio/internal/logging"
	"github.com/ivlev/framestudio/internal/source"
	"github.com/ivlev/framestudio/internal/storyboard"
	"github.com/ivlev/framestudio/internal/studio"
	"github.com/ivlev/framestudio/internal/timecode"
	"github.com/ivlev/framestudio/internal/timeline"
)

func main() {
	projectPtr := flag.String("project", "", "Path to a project JSON file")
	importPtr := flag.String("import", "", "Build a project from a document or image files (comma-separated)")
	savePtr := flag.String("save", "", "Write the built project JSON to this path")
	pageDurPtr := flag.Float64("page-duration", 4, "Seconds per imported page")
	transitionPtr := flag.String("transition", "crossfade", "Transition between imported pages")
	fadePtr := flag.Float64("fade", 0.5, "Transition length in seconds")
	configPtr := flag.String("config", "", "Path to a YAML config (optional)")
	atPtr := flag.String("at", "0", "Timestamps to render, comma-separated seconds (e.g. 0,1.5,3)")
	outPtr := flag.String("out", "output", "Directory for rendered PNG frames")
	testCardPtr := flag.Bool("testcard", false, "Substitute a test card for every media source")
	verbosePtr := flag.Bool("verbose", false, "Debug logging")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		var err error
		cfg, err = config.Read(*configPtr)
		if err != nil {
			log.Fatalf("[-] Config error: %v", err)
		}
	}
	logging.Init(cfg.Verbose || *verbosePtr)

	if *projectPtr == "" && *importPtr == "" {
		log.Fatalf("[-] Error: either -project or -import is required")
	}

	timestamps, err := parseTimestamps(*atPtr)
	if err != nil {
		log.Fatalf("[-] Bad -at value: %v", err)
	}

	settings := timeline.Settings{
		Width:   cfg.Width,
		Height:  cfg.Height,
		FPS:     float64(cfg.FPS),
		BgColor: cfg.Background,
	}
	st := studio.New(settings)
	defer st.Close()

	if *projectPtr != "" {
		data, err := os.ReadFile(*projectPtr)
		if err != nil {
			log.Fatalf("[-] Cannot read project: %v", err)
		}
		if err := st.LoadProject(data); err != nil {
			log.Fatalf("[-] Cannot load project: %v", err)
		}
		fmt.Printf("[*] Project loaded: %s (%d clips)\n", *projectPtr, len(st.Timeline().Clips()))

		attachSources(st, filepath.Dir(*projectPtr), cfg.DPI, *testCardPtr)
	}

	if *importPtr != "" {
		b := storyboard.NewBuilder(cfg.Width, cfg.Height)
		b.PageDuration = timecode.FromSeconds(*pageDurPtr)
		b.Transition = *transitionPtr
		b.TransitionDuration = timecode.FromSeconds(*fadePtr)
		b.DPI = float64(cfg.DPI)

		seq, err := buildSequence(b, *importPtr)
		if err != nil {
			log.Fatalf("[-] Import failed: %v", err)
		}
		if err := seq.Apply(st, ""); err != nil {
			log.Fatalf("[-] Import failed: %v", err)
		}
		fmt.Printf("[*] Imported %d page(s), %s total\n", len(seq.Clips), seq.Duration())
	}

	if *savePtr != "" {
		data, err := st.SaveProject()
		if err != nil {
			log.Fatalf("[-] Cannot serialize project: %v", err)
		}
		if err := os.WriteFile(*savePtr, data, 0644); err != nil {
			log.Fatalf("[-] Cannot write project: %v", err)
		}
		fmt.Printf("[*] Project saved: %s\n", *savePtr)
	}

	if err := os.MkdirAll(*outPtr, 0755); err != nil {
		log.Fatalf("[-] Cannot create output dir: %v", err)
	}

	// Composition is sequential because frames share the engine's render
	// targets; PNG encoding is the slow part and runs on the worker pool.
	type rendered struct {
		ts  timecode.Micros
		img *image.RGBA
	}
	frames := make([]rendered, 0, len(timestamps))
	for _, ts := range timestamps {
		frame, err := st.RenderAt(context.Background(), ts)
		if err != nil {
			log.Fatalf("[-] Render failed at %s: %v", formatSeconds(ts), err)
		}
		frames = append(frames, rendered{ts: ts, img: copyFrame(frame.Image)})
	}

	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)
	for _, fr := range frames {
		fr := fr
		g.Go(func() error {
			name := fmt.Sprintf("frame_%s.png", formatSeconds(fr.ts))
			return writePNG(filepath.Join(*outPtr, name), fr.img)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("[-] Encode failed: %v", err)
	}

	fmt.Printf("[+] Done: %d frame(s) in %s\n", len(frames), *outPtr)
}

// buildSequence imports a document when the argument looks like one,
// otherwise treats it as a comma-separated list of image files.
func buildSequence(b *storyboard.Builder, arg string) (*storyboard.Sequence, error) {
	ctx := context.Background()
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".pdf", ".epub", ".xps":
		return b.FromDocument(ctx, arg)
	}
	paths := strings.Split(arg, ",")
	for i := range paths {
		paths[i] = strings.TrimSpace(paths[i])
	}
	return b.FromImages(ctx, paths)
}

func parseTimestamps(s string) ([]timecode.Micros, error) {
	parts := strings.Split(s, ",")
	out := make([]timecode.Micros, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sec, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number of seconds", p)
		}
		if sec < 0 {
			return nil, fmt.Errorf("negative timestamp %q", p)
		}
		out = append(out, timecode.FromSeconds(sec))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no timestamps given")
	}
	return out, nil
}

// attachSources wires a frame source into every media clip of the loaded
// project. Paths are resolved relative to the project file. Clips whose
// file is missing get a test card so one bad path does not kill the
// whole render.
func attachSources(st *studio.Studio, baseDir string, dpi int, forceTestCard bool) {
	for _, c := range st.Timeline().Clips() {
		if c.Media == nil || c.Source() != nil {
			continue
		}
		if forceTestCard {
			c.SetSource(source.NewTestCardSource(c.ID, 0, 0))
			continue
		}

		path := c.Media.Src
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			fmt.Printf("[!] Missing media %s, using test card\n", c.Media.Src)
			c.SetSource(source.NewTestCardSource(filepath.Base(c.Media.Src), 0, 0))
			continue
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".epub", ".xps":
			d := c.Media.DPI
			if d == 0 {
				d = dpi
			}
			c.SetSource(source.NewDocumentSource(path, c.Media.Page, float64(d)))
		default:
			c.SetSource(source.NewImageSource(path))
		}
	}
}

func copyFrame(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatSeconds(ts timecode.Micros) string {
	return strconv.FormatFloat(float64(ts)/float64(timecode.PerSecond), 'f', 3, 64)
}

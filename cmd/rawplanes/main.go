package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rawplanes/internal/config"
	"rawplanes/internal/monitoring"
	"rawplanes/pkg/rawplanes"
)

const (
	programName = "rawplanes"
	version     = "0.3.0"
)

const usage = `usage: rawplanes [-config file.json] [-v] <command> <subcommand> [flags] <raw-file>...

commands:
  convert tiff       write per-channel or uninterpolated RGB TIFFs
  convert fits       write one channel as a FITS image
  convert cbor       dump all channels as CBOR typed arrays
  analyze histogram  plot per-channel ADU histograms
  analyze stats      print frame and per-channel statistics
  analyze badpixels  find hot and dead pixels across frames
  analyze preview    render a stretched JPEG sheet of all channels`

var errUsage = errors.New(usage)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet(programName, flag.ContinueOnError)
	configPath := global.String("config", "", "JSON config file with processing defaults")
	verbose := global.Bool("v", false, "Enable more logging output")
	showVersion := global.Bool("version", false, "Print version and exit")
	if err := global.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("%s %s\n", programName, version)
		return nil
	}
	monitoring.SetVerbose(*verbose)

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
		monitoring.Verbosef("Loaded config %s", *configPath)
	}

	rest := global.Args()
	if len(rest) < 2 {
		return errUsage
	}
	cmd := &command{
		cfg:     cfg,
		command: strings.Join(append([]string{programName}, args...), " "),
	}
	switch rest[0] + " " + rest[1] {
	case "convert tiff":
		return cmd.convertTIFF(rest[2:])
	case "convert fits":
		return cmd.convertFITS(rest[2:])
	case "convert cbor":
		return cmd.convertCBOR(rest[2:])
	case "analyze histogram":
		return cmd.analyzeHistogram(rest[2:])
	case "analyze stats":
		return cmd.analyzeStats(rest[2:])
	case "analyze badpixels", "analyze rawpixels":
		return cmd.analyzeBadPixels(rest[2:])
	case "analyze preview":
		return cmd.analyzePreview(rest[2:])
	default:
		return fmt.Errorf("unknown command %q\n%w", rest[0]+" "+rest[1], errUsage)
	}
}

type command struct {
	cfg     *config.Config
	command string
	pattern string
}

// flagSet returns a subcommand flag set carrying the shared input flags.
func (c *command) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(programName+" "+name, flag.ContinueOnError)
	fs.StringVar(&c.pattern, "pattern", "", "CFA pattern for non-FITS mosaic images, e.g. RGGB")
	return fs
}

func requireFiles(fs *flag.FlagSet) ([]string, error) {
	if fs.NArg() == 0 {
		return nil, fmt.Errorf("%s: no raw files given", fs.Name())
	}
	return fs.Args(), nil
}

// loadFrame decodes a CFA FITS file, or a grayscale mosaic image when a
// pattern is given.
func (c *command) loadFrame(path string) (*rawplanes.RawFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		return rawplanes.ReadRawFrame(path)
	}
	if c.pattern == "" {
		return nil, fmt.Errorf("%s: not a FITS file; pass -pattern to read it as a mosaic image", path)
	}
	pattern, err := rawplanes.ParseCFAPattern(c.pattern)
	if err != nil {
		return nil, err
	}
	frame, bitDepth, err := loadMosaicImage(path)
	if err != nil {
		return nil, err
	}
	return rawplanes.NewMosaicFrame(frame, pattern, bitDepth), nil
}

func (c *command) loadPlanes(path string) (*rawplanes.RawFrame, *rawplanes.ColorPlaneSet, error) {
	start := time.Now()
	raw, err := c.loadFrame(path)
	if err != nil {
		return nil, nil, err
	}
	set, err := raw.Planes()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Verbosef("%s: %dx%d %d-bit, pattern %s, channels %v (%.2fs)",
		path, raw.Frame.Width, raw.Frame.Height, raw.BitDepth, raw.Descriptor, set.Names, time.Since(start).Seconds())
	return raw, set, nil
}

func (c *command) convertTIFF(args []string) error {
	fs := c.flagSet("convert tiff")
	sampleFormat := fs.String("bit-depth-type", c.cfg.GetTIFFSampleFormat(), "Sample type of per-channel TIFFs: uint8, uint16 or float32")
	allChannels := fs.Bool("all-channels", false, "Write one TIFF per channel, like libraw's 4channels example")
	rgb := fs.Bool("uninterpolated-rgb", false, "Write a half-size uninterpolated 16-bit RGB TIFF, like dcraw -h -T")
	rawBitDepth := fs.Int("raw-bit-depth", c.cfg.GetRawBitDepth(), "ADC bit depth used to scale uint8 output")
	compress := fs.Bool("compress", c.cfg.GetTIFFCompression(), "Deflate-compress TIFF output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := requireFiles(fs)
	if err != nil {
		return err
	}
	if *allChannels && *rgb {
		return fmt.Errorf("-all-channels and -uninterpolated-rgb are mutually exclusive")
	}
	format, err := rawplanes.ParseSampleFormat(*sampleFormat)
	if err != nil {
		return err
	}
	opts := rawplanes.TIFFOptions{Format: format, BitDepth: *rawBitDepth, Compress: *compress}

	for _, path := range files {
		_, set, err := c.loadPlanes(path)
		if err != nil {
			return err
		}
		if *allChannels {
			written, err := rawplanes.WriteChannelTIFFs(path, set, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for _, w := range written {
				monitoring.Logf("Wrote %s", w)
			}
			continue
		}
		written, err := rawplanes.WriteRGBTIFF(path, set, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		monitoring.Logf("Wrote %s", written)
	}
	return nil
}

func (c *command) convertFITS(args []string) error {
	fs := c.flagSet("convert fits")
	channel := fs.String("channel", c.cfg.GetFITSChannel(), "Channel to export, e.g. R, G1, G2 or B")
	overwrite := fs.Bool("overwrite", false, "Replace existing FITS output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := requireFiles(fs)
	if err != nil {
		return err
	}

	name := rawplanes.ChannelName(*channel)
	for _, path := range files {
		raw, set, err := c.loadPlanes(path)
		if err != nil {
			return err
		}
		plane, err := set.Plane(name)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out := rawplanes.ChannelFITSPath(path, name)
		err = rawplanes.WriteChannelFITS(out, plane, name, rawplanes.FITSOptions{
			Program:   programName,
			Version:   version,
			Command:   c.command,
			Source:    filepath.Base(path),
			Metadata:  raw.Metadata,
			Overwrite: *overwrite,
		})
		if err != nil {
			return err
		}
		monitoring.Logf("Wrote %s (%dx%d)", out, plane.Cols(), plane.Rows())
	}
	return nil
}

func (c *command) convertCBOR(args []string) error {
	fs := c.flagSet("convert cbor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := requireFiles(fs)
	if err != nil {
		return err
	}
	for _, path := range files {
		_, set, err := c.loadPlanes(path)
		if err != nil {
			return err
		}
		out := rawplanes.PlanesCBORPath(path)
		if err := rawplanes.WritePlanesCBOR(out, filepath.Base(path), set); err != nil {
			return err
		}
		monitoring.Logf("Wrote %s", out)
	}
	return nil
}

func (c *command) analyzeHistogram(args []string) error {
	fs := c.flagSet("analyze histogram")
	bins := fs.Int("bins", c.cfg.GetHistogramBins(), "Number of bins to divide histogram into")
	rawBitDepth := fs.Int("raw-bit-depth", c.cfg.GetRawBitDepth(), "Bit depth of original RAW image")
	out := fs.String("out", "", "Plot output path (default <raw>.histogram.png); extension selects the format")
	html := fs.Bool("html", false, "Also write an interactive <raw>.histogram.html chart")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := requireFiles(fs)
	if err != nil {
		return err
	}
	if *out != "" && len(files) > 1 {
		return fmt.Errorf("-out can only be used with a single raw file")
	}

	for _, path := range files {
		_, set, err := c.loadPlanes(path)
		if err != nil {
			return err
		}
		hists, err := rawplanes.PlaneHistograms(set, *bins)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		plotPath := *out
		if plotPath == "" {
			plotPath = path + ".histogram.png"
		}
		if err := rawplanes.SaveHistogramPlot(plotPath, set.Names, hists, *rawBitDepth); err != nil {
			return err
		}
		monitoring.Logf("Wrote %s", plotPath)
		if *html {
			chartPath := path + ".histogram.html"
			if err := rawplanes.SaveHistogramChart(chartPath, filepath.Base(path), set.Names, hists, *rawBitDepth); err != nil {
				return err
			}
			monitoring.Logf("Wrote %s", chartPath)
		}
	}
	return nil
}

func (c *command) analyzeStats(args []string) error {
	fs := c.flagSet("analyze stats")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := requireFiles(fs)
	if err != nil {
		return err
	}
	for _, path := range files {
		raw, set, err := c.loadPlanes(path)
		if err != nil {
			return err
		}
		printStats(path, raw, set)
	}
	return nil
}

func printStats(path string, raw *rawplanes.RawFrame, set *rawplanes.ColorPlaneSet) {
	fmt.Println()
	fmt.Printf("=== %s ===\n", filepath.Base(path))
	fmt.Printf("  Image size:      %d x %d\n", raw.Frame.Width, raw.Frame.Height)
	fmt.Printf("  Bit depth:       %d\n", raw.BitDepth)
	fmt.Printf("  Color desc:      %s\n", raw.Descriptor)
	fmt.Printf("  Colors:          %d\n", raw.ColorCount)
	if cam := raw.Metadata.CameraName(); cam != "" {
		fmt.Printf("  Camera:          %s\n", cam)
	}
	if exp, ok := raw.Metadata.ExposureTime(); ok {
		fmt.Printf("  Exposure:        %gs\n", exp)
	}
	if gain, ok := raw.Metadata.Gain(); ok {
		fmt.Printf("  Gain:            %g\n", gain)
	}

	fmt.Println("------ Bayer plane stats ------")
	fmt.Println(rawplanes.FrameStatistics(raw.Frame))
	stats := rawplanes.SetStatistics(set)
	for _, name := range set.Names {
		fmt.Printf("------ %s color plane stats ------\n", name)
		fmt.Println(stats[name])
	}
	fmt.Println("==============================")
}

func (c *command) analyzeBadPixels(args []string) error {
	fs := c.flagSet("analyze badpixels")
	hotFile := fs.String("hot-pixel-file", "", "dcraw hot pixel output file (stdout if no output file is given)")
	deadFile := fs.String("dead-pixel-file", "", "dcraw dead pixel output file")
	kappa := fs.Float64("kappa", c.cfg.GetBadPixelKappa(), "Residual sigma multiplier")
	ratio := fs.Float64("confirm-ratio", c.cfg.GetBadPixelConfirmRatio(), "Fraction of frames a pixel must be flagged in")
	kernel := fs.Int("median-kernel", c.cfg.GetBadPixelMedianKernel(), "Median filter size on each channel (3 or 5)")
	minDev := fs.Float64("min-deviation", c.cfg.GetBadPixelMinDeviation(), "Minimum deviation in ADU")
	workers := fs.Int("workers", c.cfg.GetWorkers(), "Frames analyzed in parallel (0 = one per CPU)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := requireFiles(fs)
	if err != nil {
		return err
	}

	params := rawplanes.BadPixelParams{
		FindHot:      true,
		FindDead:     true,
		Kappa:        *kappa,
		MedianKernel: *kernel,
		ConfirmRatio: *ratio,
		MinDeviation: *minDev,
		Workers:      *workers,
	}
	start := time.Now()
	monitoring.Logf("Analyzing %d frames", len(files))
	report, err := rawplanes.FindBadPixelsWith(context.Background(), files, c.loadFrame, params)
	if err != nil {
		return err
	}
	monitoring.Logf("Found %d hot and %d dead pixels in at least %d of %d frames (%.1fs)",
		len(report.Hot), len(report.Dead), report.Required, report.Frames, time.Since(start).Seconds())

	if *hotFile == "" && *deadFile == "" {
		fmt.Println("# hot")
		if err := rawplanes.WriteDcrawBadPixels(os.Stdout, report.Hot); err != nil {
			return err
		}
		fmt.Println("# dead")
		return rawplanes.WriteDcrawBadPixels(os.Stdout, report.Dead)
	}
	if *hotFile != "" {
		if err := rawplanes.SaveDcrawBadPixels(*hotFile, report.Hot); err != nil {
			return err
		}
		monitoring.Logf("Wrote %s", *hotFile)
	}
	if *deadFile != "" {
		if err := rawplanes.SaveDcrawBadPixels(*deadFile, report.Dead); err != nil {
			return err
		}
		monitoring.Logf("Wrote %s", *deadFile)
	}
	return nil
}

func (c *command) analyzePreview(args []string) error {
	fs := c.flagSet("analyze preview")
	tileWidth := fs.Int("tile-width", 400, "Width of each channel tile in pixels")
	stretch := fs.Float64("stretch", 5, "Robust sigmas shown either side of the median")
	markBad := fs.Bool("mark-bad", false, "Circle hot and dead pixels found in the frame")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := requireFiles(fs)
	if err != nil {
		return err
	}

	params := rawplanes.DefaultBadPixelParams()
	params.Kappa = c.cfg.GetBadPixelKappa()
	params.MedianKernel = c.cfg.GetBadPixelMedianKernel()
	params.MinDeviation = c.cfg.GetBadPixelMinDeviation()
	for _, path := range files {
		raw, err := c.loadFrame(path)
		if err != nil {
			return err
		}
		opts := rawplanes.PreviewOptions{TileWidth: *tileWidth, Stretch: *stretch, Title: filepath.Base(path)}
		if *markBad {
			if opts.Bad, err = rawplanes.FindBadPixelCandidates(raw, params); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		out := rawplanes.PreviewPath(path)
		if err := rawplanes.WritePreview(out, raw, opts); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		monitoring.Logf("Wrote %s", out)
	}
	return nil
}

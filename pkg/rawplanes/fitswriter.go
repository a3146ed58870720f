package rawplanes

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// FITSOptions configures single-channel FITS export.
type FITSOptions struct {
	// Program and Version are recorded in the PROGRAM card.
	Program string
	Version string
	// Command is recorded as a HISTORY card when set.
	Command string
	// Source is the raw file the plane came from (ORIGFILE card).
	Source string
	// Metadata cards copied from the source frame when present.
	Metadata  *FitsMetadata
	Overwrite bool
}

// copied from the source header when present
var passthroughCards = []string{"INSTRUME", "IMAGETYP", "EXPTIME", "GAIN", "CCD-TEMP", "DATE-OBS", "OBJECT"}

// ChannelFITSPath returns "<raw>.<channel>.fits".
func ChannelFITSPath(rawPath string, name ChannelName) string {
	return rawPath + "." + string(name) + ".fits"
}

// WriteChannelFITS writes one channel's 2D grid as an unsigned 16-bit FITS
// primary image. Existing files are left alone unless opts.Overwrite is set.
func WriteChannelFITS(path string, plane *ChannelPlane, name ChannelName, opts FITSOptions) error {
	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("FITS output %s already exists", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating FITS file: %w", err)
	}
	if err := EncodeChannelFITS(f, plane, name, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeChannelFITS writes the FITS encoding of plane to w.
func EncodeChannelFITS(w io.Writer, plane *ChannelPlane, name ChannelName, opts FITSOptions) error {
	bw := bufio.NewWriter(w)

	cards := []string{
		fitsLogicalCard("SIMPLE", true, "conforms to FITS standard"),
		fitsIntCard("BITPIX", 16, "array data type"),
		fitsIntCard("NAXIS", 2, "number of array dimensions"),
		fitsIntCard("NAXIS1", plane.Cols(), ""),
		fitsIntCard("NAXIS2", plane.Rows(), ""),
		fitsIntCard("BZERO", 32768, "offset data range to that of unsigned short"),
		fitsIntCard("BSCALE", 1, "default scaling factor"),
		fitsStringCard("CHANNEL", string(name), "CFA color plane"),
	}
	if opts.Source != "" {
		cards = append(cards, fitsStringCard("ORIGFILE", opts.Source, "raw source file"))
	}
	if opts.Program != "" {
		program := opts.Program
		if opts.Version != "" {
			program += " " + opts.Version
		}
		cards = append(cards, fitsStringCard("PROGRAM", program, "creating software"))
	}
	if opts.Metadata != nil {
		for _, key := range passthroughCards {
			v, ok := opts.Metadata.Headers[key]
			if !ok {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				cards = append(cards, fitsRawCard(key, v, ""))
			} else {
				cards = append(cards, fitsStringCard(key, v, ""))
			}
		}
	}
	if opts.Command != "" {
		cards = append(cards, fitsHistoryCards(opts.Command)...)
	}
	cards = append(cards, padCard("END"))

	for _, c := range cards {
		if _, err := bw.WriteString(c); err != nil {
			return fmt.Errorf("writing FITS header: %w", err)
		}
	}
	if err := writePadding(bw, len(cards)*fitsCardSize, ' '); err != nil {
		return fmt.Errorf("writing FITS header: %w", err)
	}

	buf := make([]byte, 2)
	for _, row := range plane.Grid {
		for _, v := range row {
			binary.BigEndian.PutUint16(buf, v^0x8000)
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("writing FITS data: %w", err)
			}
		}
	}
	if err := writePadding(bw, len(plane.Pixels)*2, 0); err != nil {
		return fmt.Errorf("writing FITS data: %w", err)
	}
	return bw.Flush()
}

func writePadding(w *bufio.Writer, written int, fill byte) error {
	rem := written % fitsBlockSize
	if rem == 0 {
		return nil
	}
	_, err := w.Write([]byte(strings.Repeat(string(fill), fitsBlockSize-rem)))
	return err
}

func padCard(s string) string {
	if len(s) > fitsCardSize {
		return s[:fitsCardSize]
	}
	return s + strings.Repeat(" ", fitsCardSize-len(s))
}

// fitsRawCard formats a fixed-format card with the value right-justified
// to column 30.
func fitsRawCard(key, value, comment string) string {
	s := fmt.Sprintf("%-8s= %20s", key, value)
	if comment != "" {
		s += " / " + comment
	}
	return padCard(s)
}

func fitsIntCard(key string, v int, comment string) string {
	return fitsRawCard(key, strconv.Itoa(v), comment)
}

func fitsLogicalCard(key string, v bool, comment string) string {
	val := "F"
	if v {
		val = "T"
	}
	return fitsRawCard(key, val, comment)
}

func fitsStringCard(key, v, comment string) string {
	quoted := "'" + fmt.Sprintf("%-8s", strings.ReplaceAll(v, "'", "''")) + "'"
	s := fmt.Sprintf("%-8s= %-20s", key, quoted)
	if comment != "" {
		s += " / " + comment
	}
	return padCard(s)
}

func fitsHistoryCards(text string) []string {
	const width = fitsCardSize - 8
	var cards []string
	for len(text) > width {
		cards = append(cards, padCard("HISTORY "+text[:width]))
		text = text[width:]
	}
	return append(cards, padCard("HISTORY "+text))
}

//go:build js && wasm

package main

import (
	"syscall/js"

	"rawplanes/pkg/rawplanes"
)

func main() {
	js.Global().Set("extractPlanes", js.FuncOf(extractPlanes))
	js.Global().Set("planeHistograms", js.FuncOf(planeHistograms))
	js.Global().Set("renderPreview", js.FuncOf(renderPreview))
	select {} // block forever
}

// extractPlanes(fileBytes) splits a CFA FITS image into its channels and
// reports their shapes and statistics.
func extractPlanes(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("usage: extractPlanes(fileBytes)")
	}
	raw, set, err := decode(args[0])
	if err != nil {
		return errorResult(err.Error())
	}

	stats := rawplanes.SetStatistics(set)
	channels := make([]interface{}, len(set.Names))
	for i, name := range set.Names {
		plane := set.Planes[name]
		s := stats[name]
		shade := rawplanes.ChannelShade(name)
		channels[i] = map[string]interface{}{
			"name":        string(name),
			"rows":        plane.Rows(),
			"cols":        plane.Cols(),
			"color":       shade.Hex(),
			"min":         s.Min,
			"max":         s.Max,
			"median":      s.Median,
			"mean":        s.Mean,
			"stddev":      s.StdDev,
			"robustSigma": s.RobustSigma,
		}
	}

	frame := rawplanes.FrameStatistics(raw.Frame)
	return js.ValueOf(map[string]interface{}{
		"width":      raw.Frame.Width,
		"height":     raw.Frame.Height,
		"bitDepth":   raw.BitDepth,
		"colorDesc":  raw.Descriptor.String(),
		"colorCount": raw.ColorCount,
		"mean":       frame.Mean,
		"median":     frame.Median,
		"stddev":     frame.StdDev,
		"channels":   channels,
	})
}

// planeHistograms(fileBytes, bins) returns per-channel counts and edges.
func planeHistograms(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("usage: planeHistograms(fileBytes, bins)")
	}
	_, set, err := decode(args[0])
	if err != nil {
		return errorResult(err.Error())
	}
	hists, err := rawplanes.PlaneHistograms(set, args[1].Int())
	if err != nil {
		return errorResult(err.Error())
	}

	out := make(map[string]interface{}, len(hists))
	for _, name := range set.Names {
		h := hists[name]
		counts := make([]interface{}, len(h.Counts))
		for i, c := range h.Counts {
			counts[i] = c
		}
		edges := make([]interface{}, len(h.Edges))
		for i, e := range h.Edges {
			edges[i] = e
		}
		out[string(name)] = map[string]interface{}{
			"counts": counts,
			"edges":  edges,
		}
	}
	return js.ValueOf(out)
}

// renderPreview(fileBytes, markBad) returns a JPEG channel sheet as a
// Uint8Array, or null on failure.
func renderPreview(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.Null()
	}
	raw, _, err := decode(args[0])
	if err != nil {
		return js.Null()
	}
	opts := rawplanes.DefaultPreviewOptions()
	if len(args) > 1 && args[1].Truthy() {
		if opts.Bad, err = rawplanes.FindBadPixelCandidates(raw, rawplanes.DefaultBadPixelParams()); err != nil {
			return js.Null()
		}
	}

	jpegBytes, err := rawplanes.RenderPreviewBytes(raw, opts)
	if err != nil {
		return js.Null()
	}
	uint8Array := js.Global().Get("Uint8Array").New(len(jpegBytes))
	js.CopyBytesToJS(uint8Array, jpegBytes)
	return uint8Array
}

func decode(jsBytes js.Value) (*rawplanes.RawFrame, *rawplanes.ColorPlaneSet, error) {
	length := jsBytes.Get("length").Int()
	fileBytes := make([]byte, length)
	js.CopyBytesToGo(fileBytes, jsBytes)

	raw, err := rawplanes.ReadRawFrameFromBytes(fileBytes)
	if err != nil {
		return nil, nil, err
	}
	set, err := raw.Planes()
	if err != nil {
		return nil, nil, err
	}
	return raw, set, nil
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}

// Package input implements spec.md §4.E's coordinate transform between a
// host surface and a remote framebuffer: aspect-preserving scale with
// letterboxing, forward/clamped coordinate mapping, and resize policy.
package input

// StandardResolutions is the ascending list of "standard" display sizes
// used by BestStandard.
var StandardResolutions = [][2]int{
	{640, 480}, {800, 600}, {1024, 768}, {1152, 864}, {1280, 720},
	{1280, 800}, {1280, 1024}, {1366, 768}, {1440, 900}, {1600, 900},
	{1600, 1200}, {1680, 1050}, {1920, 1080}, {1920, 1200}, {2560, 1440},
	{2560, 1600}, {3840, 2160},
}

// RDP desktop-size bounds.
const (
	RDPMinDimension = 200
	RDPMaxDimension = 8192
)

// Transform maps a host-surface size to a framebuffer size, computing the
// aspect-preserving scale and letterbox offset once per resize.
type Transform struct {
	scale              float64
	offsetX, offsetY   float64
	fw, fh             int
}

// New builds a Transform for a host surface of size (ww, wh) displaying a
// framebuffer of size (fw, fh). Any zero dimension degenerates to
// scale=1, offset=0, with framebuffer dimensions clamped to at least 1.
func New(ww, wh, fw, fh int) Transform {
	if ww <= 0 || wh <= 0 || fw <= 0 || fh <= 0 {
		if fw < 1 {
			fw = 1
		}
		if fh < 1 {
			fh = 1
		}
		return Transform{scale: 1, fw: fw, fh: fh}
	}

	scaleX := float64(ww) / float64(fw)
	scaleY := float64(wh) / float64(fh)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	offsetX := (float64(ww) - float64(fw)*scale) / 2
	offsetY := (float64(wh) - float64(fh)*scale) / 2

	return Transform{scale: scale, offsetX: offsetX, offsetY: offsetY, fw: fw, fh: fh}
}

// Forward maps host-surface coordinates (wx, wy) to framebuffer
// coordinates, returning ok=false if the point falls outside the
// framebuffer's visible (non-letterboxed) area.
func (t Transform) Forward(wx, wy float64) (fx, fy float64, ok bool) {
	fx = (wx - t.offsetX) / t.scale
	fy = (wy - t.offsetY) / t.scale
	if fx < 0 || fx >= float64(t.fw) || fy < 0 || fy >= float64(t.fh) {
		return 0, 0, false
	}
	return fx, fy, true
}

// ForwardClamped is Forward, but always returns a point, clamped into
// [0, fw-1] x [0, fh-1].
func (t Transform) ForwardClamped(wx, wy float64) (fx, fy float64) {
	fx = (wx - t.offsetX) / t.scale
	fy = (wy - t.offsetY) / t.scale
	fx = clamp(fx, 0, float64(t.fw-1))
	fy = clamp(fy, 0, float64(t.fh-1))
	return fx, fy
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BestStandard returns the largest standard resolution fitting within
// ww x wh, or the smallest standard resolution if none fits.
func BestStandard(ww, wh int) (int, int) {
	best := StandardResolutions[0]
	found := false
	for _, r := range StandardResolutions {
		if r[0] <= ww && r[1] <= wh {
			best = r
			found = true
		}
	}
	if !found {
		return StandardResolutions[0][0], StandardResolutions[0][1]
	}
	return best[0], best[1]
}

// ShouldResize reports whether a resize request from (ww, wh) to
// (newW, newH) should be emitted, gated by threshold to avoid resize
// thrashing.
func ShouldResize(ww, wh, newW, newH, threshold int) bool {
	return abs(newW-ww) >= threshold || abs(newH-wh) >= threshold
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ClampRDPDesktopSize clamps w/h into RDP's supported desktop-size bounds.
func ClampRDPDesktopSize(w, h int) (int, int) {
	return clampInt(w, RDPMinDimension, RDPMaxDimension), clampInt(h, RDPMinDimension, RDPMaxDimension)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

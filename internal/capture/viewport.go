package capture

import (
	"math"
	"strconv"
	"strings"
)

type Viewport struct {
	Width             int
	Height            int
	DeviceScaleFactor float64
}

// DefaultViewport is reasonably large for full page screenshots.
func DefaultViewport() Viewport {
	return Viewport{
		Width:             1280,
		Height:            1024,
		DeviceScaleFactor: 2,
	}
}

type ScreenshotRequest struct {
	URL      string
	Viewport Viewport
	FullPage bool
	// Element, when set, restricts the capture to the first match.
	Element string
}

// NewScreenshotRequest validates the caller parameters without touching a
// browser. A non-empty size switches from full-page to fixed-region capture.
func NewScreenshotRequest(url string, size string, element string) (*ScreenshotRequest, error) {
	r := &ScreenshotRequest{
		URL:      url,
		Viewport: DefaultViewport(),
		FullPage: true,
		Element:  element,
	}

	if size != "" {
		width, height, err := ParseSize(size)
		if err != nil {
			return nil, err
		}
		r.Viewport.Width = width
		r.Viewport.Height = height
		r.FullPage = false
	}

	return r, nil
}

// ParseSize parses "width,height".
func ParseSize(size string) (int, int, error) {
	parts := strings.Split(size, ",")
	if len(parts) != 2 {
		return 0, 0, newError(ErrInputRejected, nil, "malformed size parameter %q", size)
	}

	dimensions := make([]int, 0, 2)
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, 0, newError(ErrInputRejected, err, "malformed size parameter %q", size)
		}
		if f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
			return 0, 0, newError(ErrInputRejected, nil, "size must be positive integers, got %q", size)
		}
		dimensions = append(dimensions, int(f))
	}

	return dimensions[0], dimensions[1], nil
}

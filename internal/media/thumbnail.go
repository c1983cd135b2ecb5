package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Thumbnail resizes the image at srcPath into a bounded box preserving
// aspect ratio and writes it to dstPath. Sources smaller than the box are
// not upscaled.
func Thumbnail(srcPath, dstPath string, maxW, maxH int) (w int, h int, _ error) {
	src, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, fmt.Errorf("open thumbnail source: %w", err)
	}

	thumb := imaging.Fit(src, maxW, maxH, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return 0, 0, fmt.Errorf("create thumbnail dir: %w", err)
	}
	if err := imaging.Save(thumb, dstPath); err != nil {
		return 0, 0, fmt.Errorf("save thumbnail: %w", err)
	}

	b := thumb.Bounds()
	return b.Dx(), b.Dy(), nil
}

// Thumbnail on FFmpeg lets one value carry every transform stage the
// pipeline drives; the resize itself is in-process.
func (f *FFmpeg) Thumbnail(srcPath, dstPath string, maxW, maxH int) (int, int, error) {
	return Thumbnail(srcPath, dstPath, maxW, maxH)
}

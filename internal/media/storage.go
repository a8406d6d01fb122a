// Package media stores images uploaded with posts.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// PostsDir is the sub-directory (and name prefix) holding post images.
	PostsDir = "posts"
	// MaxEdge is the longest side kept for JPEG and PNG uploads.
	MaxEdge     = 2048
	JPEGQuality = 82
	// MaxPixels caps width*height before an upload is fully decoded.
	MaxPixels = 40_000_000

	maxNameLength = 100
)

var (
	ErrInvalidImage = errors.New("upload a valid image. The file you uploaded was either not an image or a corrupted image")
	ErrTooLarge     = errors.New("image file too large")
)

// Storage writes uploads below root. Stored names are relative to root and use forward slashes.
type Storage struct {
	root     string
	maxBytes int64
}

func NewStorage(root string, maxBytes int64) *Storage {
	return &Storage{root: root, maxBytes: maxBytes}
}

// Root returns the directory served under /media/.
func (s *Storage) Root() string {
	return s.root
}

// Save validates content as a GIF, JPEG, PNG or WebP image and writes it under
// posts/. It returns the stored name, "posts/<hash>-<filename>", and whether the
// file was written by this call; identical uploads share one file.
func (s *Storage) Save(ctx context.Context, filename string, content []byte) (string, bool, error) {
	if len(content) == 0 {
		return "", false, ErrInvalidImage
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return "", false, fmt.Errorf("%w (max %dMB)", ErrTooLarge, s.maxBytes/(1024*1024))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return "", false, ErrInvalidImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", false, ErrInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", false, ErrInvalidImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", false, fmt.Errorf("%w (max %d megapixels)", ErrTooLarge, MaxPixels/1_000_000)
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", false, ErrInvalidImage
	}

	data := content
	if b := decoded.Bounds(); b.Dx() > MaxEdge || b.Dy() > MaxEdge {
		if data, err = downscale(decoded, format); err != nil {
			return "", false, err
		}
	}

	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	sum := sha256.Sum256(data)
	name := path.Join(PostsDir, hex.EncodeToString(sum[:8])+"-"+sanitizeFilename(filename, format))
	if _, err := os.Stat(s.Path(name)); err == nil {
		return name, false, nil
	}
	if err := writeBytesToFile(s.Path(name), data); err != nil {
		return "", false, fmt.Errorf("store image: %w", err)
	}
	return name, true, nil
}

// Path maps a stored name to its location on disk.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/" + name)))
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Storage) Remove(name string) error {
	if name == "" {
		return nil
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func downscale(src image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, resizeToFit(src, MaxEdge), &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, err
		}
	case "png":
		if err := png.Encode(&buf, resizeToFit(src, MaxEdge)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s images must be at most %dpx", ErrTooLarge, format, MaxEdge)
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	scale := float64(maxEdge) / float64(max(w, h))

	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// sanitizeFilename keeps the base name, lowercased, with anything outside
// [a-z0-9._-] replaced by "_". An extension matching format is added when missing.
func sanitizeFilename(filename, format string) string {
	base := strings.ToLower(filepath.Base(strings.ReplaceAll(filename, "\\", "/")))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		name = "image"
	}
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	if ext := "." + format; !strings.HasSuffix(name, ext) && !(format == "jpeg" && strings.HasSuffix(name, ".jpg")) {
		name += ext
	}
	return name
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o640)
}

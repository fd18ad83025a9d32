package localmedia

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

// PageImage is one rendered PDF page as a PNG data URL.
type PageImage struct {
	Page    int
	DataURL string
}

// Renderer turns PDF pages into images for vision prompts.
type Renderer interface {
	RenderPages(ctx context.Context, pdf []byte, firstPage, lastPage int) ([]PageImage, error)
	PageCount(ctx context.Context, pdf []byte) (int, error)
}

type RenderOptions struct {
	DPI      int
	MaxWidth int
	Timeout  time.Duration
}

// PopplerRenderer shells out to pdftoppm and pdfinfo (poppler-utils).
type PopplerRenderer struct {
	log          *logger.Logger
	opts         RenderOptions
	pdftoppmPath string
	pdfinfoPath  string
	workRoot     string
}

func NewPopplerRenderer(log *logger.Logger, opts RenderOptions) *PopplerRenderer {
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = 1600
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PopplerRenderer{
		log:          log.With("service", "PopplerRenderer"),
		opts:         opts,
		pdftoppmPath: "pdftoppm",
		pdfinfoPath:  "pdfinfo",
		workRoot:     filepath.Join(os.TempDir(), "bizplan-render"),
	}
}

// AssertReady fails when the poppler binaries are missing from PATH.
func (r *PopplerRenderer) AssertReady() error {
	for _, bin := range []string{r.pdftoppmPath, r.pdfinfoPath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (r *PopplerRenderer) writeTemp(pdf []byte) (string, func(), error) {
	if err := os.MkdirAll(r.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir work root: %w", err)
	}
	dir, err := os.MkdirTemp(r.workRoot, "pdf-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("mkdir temp: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("write temp pdf: %w", err)
	}
	return path, cleanup, nil
}

func (r *PopplerRenderer) PageCount(ctx context.Context, pdf []byte) (int, error) {
	if err := r.AssertReady(); err != nil {
		return 0, err
	}
	path, cleanup, err := r.writeTemp(pdf)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, r.pdfinfoPath, path).CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w; out=%s", err, string(out))
	}
	return parsePDFInfoPages(string(out))
}

func parsePDFInfoPages(out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("pdfinfo output missing Pages field")
}

// RenderPages renders the inclusive 1-based page range. lastPage <= 0 means
// the final page.
func (r *PopplerRenderer) RenderPages(ctx context.Context, pdf []byte, firstPage, lastPage int) ([]PageImage, error) {
	if err := r.AssertReady(); err != nil {
		return nil, err
	}
	if firstPage <= 0 {
		firstPage = 1
	}
	path, cleanup, err := r.writeTemp(pdf)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	outDir := filepath.Dir(path)
	args := []string{"-r", strconv.Itoa(r.opts.DPI), "-png", "-f", strconv.Itoa(firstPage)}
	if lastPage > 0 {
		args = append(args, "-l", strconv.Itoa(lastPage))
	}
	args = append(args, path, filepath.Join(outDir, "page"))
	out, err := exec.CommandContext(ctx, r.pdftoppmPath, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	files, err := pageFiles(outDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images produced by pdftoppm; out=%s", string(out))
	}
	images := make([]PageImage, 0, len(files))
	for _, f := range files {
		raw, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", f.page, err)
		}
		url, err := EncodePNGDataURL(raw, r.opts.MaxWidth)
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", f.page, err)
		}
		images = append(images, PageImage{Page: f.page, DataURL: url})
	}
	r.log.Debug("pdf pages rendered", "first", firstPage, "last", lastPage, "count", len(images), "dpi", r.opts.DPI)
	return images, nil
}

var pageFileRe = regexp.MustCompile(`^page-(\d+)\.png$`)

type pageFile struct {
	page int
	path string
}

func pageFiles(dir string) ([]pageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []pageFile
	for _, e := range entries {
		m := pageFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		out = append(out, pageFile{page: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].page < out[j].page })
	return out, nil
}

// EncodePNGDataURL decodes a PNG, scales it down to maxWidth when wider,
// and returns a base64 data URL.
func EncodePNGDataURL(raw []byte, maxWidth int) (string, error) {
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	if maxWidth > 0 && b.Dx() > maxWidth {
		h := b.Dy() * maxWidth / b.Dx()
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

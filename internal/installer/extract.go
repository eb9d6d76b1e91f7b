package installer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrUnknownArchive means the package is neither zip nor gzip'd tar.
	ErrUnknownArchive = errors.New("unknown archive format")
	// ErrUnsafePath means an archive entry would land outside the extraction root.
	ErrUnsafePath = errors.New("archive entry escapes extraction directory")
	// ErrExtractedTooLarge means the unpacked entries exceed the extraction budget.
	ErrExtractedTooLarge = errors.New("archive unpacks to more than the allowed size")
)

// budget is the number of bytes extraction may still write.
type budget struct {
	remaining int64
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
)

// extract unpacks data into root, choosing the format from its magic bytes.
// At most limit bytes are written across all entries.
func extract(fs afero.Fs, data []byte, root string, limit int64) error {
	b := &budget{remaining: limit}
	switch {
	case bytes.HasPrefix(data, zipMagic), bytes.HasPrefix(data, zipEmptyMagic):
		return extractZip(fs, data, root, b)
	case bytes.HasPrefix(data, gzipMagic):
		return extractTarGz(fs, data, root, b)
	default:
		return ErrUnknownArchive
	}
}

func extractZip(fs afero.Fs, data []byte, root string, b *budget) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}

	for _, f := range r.File {
		target, err := safeJoin(root, f.Name)
		if err != nil {
			return err
		}
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case mode.IsRegular():
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
			}
			err = writeFile(fs, target, rc, mode.Perm(), b)
			rc.Close()
			if err != nil {
				return err
			}
		}
		// Symlinks and other special entries are skipped.
	}
	return nil
}

func extractTarGz(fs afero.Fs, data []byte, root string, b *budget) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		target, err := safeJoin(root, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(fs, target, tr, os.FileMode(hdr.Mode).Perm(), b); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(fs afero.Fs, path string, r io.Reader, perm os.FileMode, b *budget) error {
	if perm == 0 {
		perm = 0o644
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	out, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := io.Copy(out, io.LimitReader(r, b.remaining+1))
	if err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", path, err)
	}
	b.remaining -= n
	if b.remaining < 0 {
		out.Close()
		return fmt.Errorf("%w: stopped at %s", ErrExtractedTooLarge, path)
	}
	return out.Close()
}

// safeJoin resolves an archive entry name under root, rejecting names that
// climb out of it.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

package pkg

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// Extractor unpacks a downloaded archive into destPath, stripping the
// first strip path components of every entry.
type Extractor func(archive *os.File, bar *progressbar.ProgressBar, destPath string, strip int) error

// GetExtractor picks an extractor based on the archive's file extension.
func GetExtractor(url string) (Extractor, error) {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractZip, nil
	case strings.HasSuffix(url, ".tar.gz"):
		return func(archive *os.File, bar *progressbar.ProgressBar, destPath string, strip int) error {
			reader, err := gzip.NewReader(archive)
			if err != nil {
				return err
			}
			defer reader.Close()

			return extractTar(reader, archive, bar, destPath, strip)
		}, nil
	case strings.HasSuffix(url, ".tar.bz2"):
		return func(archive *os.File, bar *progressbar.ProgressBar, destPath string, strip int) error {
			return extractTar(bzip2.NewReader(archive), archive, bar, destPath, strip)
		}, nil
	case strings.HasSuffix(url, ".tar.xz"):
		return func(archive *os.File, bar *progressbar.ProgressBar, destPath string, strip int) error {
			reader, err := xz.NewReader(archive)
			if err != nil {
				return err
			}

			return extractTar(reader, archive, bar, destPath, strip)
		}, nil
	}

	return nil, eris.Errorf("Archive format of %s not supported", url)
}

// openExtractDest strips the leading path components from the entry name
// and creates the destination file including any missing parent
// directories. A nil handle with no error means the entry resolves to the
// destination root itself and should be skipped.
func openExtractDest(destPath, item string, strip int) (*os.File, string, error) {
	pathParts := strings.Split(filepath.Clean(item), string(filepath.Separator))
	if strip > len(pathParts) {
		strip = len(pathParts)
	}
	dest := filepath.Join(destPath, strings.Join(pathParts[strip:], string(filepath.Separator)))

	if dest == destPath {
		return nil, "/", nil
	}

	destParent := filepath.Dir(dest)
	err := os.MkdirAll(destParent, os.FileMode(0770))
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create directory %s", destParent)
	}

	destHandle, err := os.Create(dest)
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create file %s", dest)
	}

	return destHandle, dest, nil
}

func extractZip(archive *os.File, bar *progressbar.ProgressBar, destPath string, strip int) error {
	stat, err := archive.Stat()
	if err != nil {
		return err
	}

	reader, err := zip.NewReader(archive, stat.Size())
	if err != nil {
		return err
	}

	for _, item := range reader.File {
		if strings.HasSuffix(item.Name, "/") {
			continue
		}

		destHandle, dest, err := openExtractDest(destPath, item.Name, strip)
		if err != nil {
			return err
		}
		if destHandle == nil {
			continue
		}

		itemHandle, err := item.Open()
		if err != nil {
			destHandle.Close()
			return eris.Wrapf(err, "Failed to open archive entry %s", item.Name)
		}

		err = copyEntry(destHandle, itemHandle, archive, bar)
		itemHandle.Close()
		destHandle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to extract %s to %s", item.Name, dest)
		}
	}

	return nil
}

func extractTar(r io.Reader, archive *os.File, bar *progressbar.ProgressBar, destPath string, strip int) error {
	reader := tar.NewReader(r)

	for {
		item, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "Failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		destHandle, dest, err := openExtractDest(destPath, item.Name, strip)
		if err != nil {
			return err
		}
		if destHandle == nil {
			continue
		}

		if item.Typeflag == tar.TypeSymlink {
			destHandle.Close()
			err = os.Remove(dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to remove placeholder file %s", dest)
			}

			err = os.Symlink(item.Linkname, dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
			continue
		}

		err = copyEntry(destHandle, reader, archive, bar)
		if err == nil {
			err = os.Chmod(dest, fi.Mode())
		}
		destHandle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to extract %s to %s", item.Name, dest)
		}
	}

	return nil
}

// copyEntry copies one archive entry while advancing the progress bar based
// on how far the underlying archive file has been read.
func copyEntry(dest io.Writer, src io.Reader, archive *os.File, bar *progressbar.ProgressBar) error {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if err != nil && n < 1 {
			if err == io.EOF {
				return nil
			}
			return err
		}

		_, err = dest.Write(buf[:n])
		if err != nil {
			return err
		}

		if bar != nil {
			pos, err := archive.Seek(0, io.SeekCurrent)
			if err == nil {
				bar.Set64(pos)
			}
		}
	}
}

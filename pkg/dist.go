package pkg

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
)

// PackDist recursively packs the contents of dir into a brotli-compressed
// tar archive. Entry names are relative to dir and always use forward
// slashes; file modes are preserved.
func PackDist(archivePath, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return eris.Wrapf(err, "Failed to open dir %s", dir)
	}
	if !info.IsDir() {
		return eris.Errorf("%s is not a directory", dir)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return eris.Wrapf(err, "Failed to create %s", archivePath)
	}

	brw := brotli.NewWriterLevel(out, brotli.BestCompression)
	writer := tar.NewWriter(brw)
	buffer := make([]byte, 4096)

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return eris.Wrapf(err, "Failed to resolve %s", path)
		}

		header := &tar.Header{
			Name:    filepath.ToSlash(relPath),
			Mode:    int64(info.Mode().Perm()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		err = writer.WriteHeader(header)
		if err != nil {
			return eris.Wrapf(err, "Failed to write header for %s", relPath)
		}

		handle, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "Failed to open file %s", path)
		}

		_, err = io.CopyBuffer(writer, handle, buffer)
		handle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to pack file %s", relPath)
		}

		return nil
	})
	if err != nil {
		writer.Close()
		brw.Close()
		out.Close()
		os.Remove(archivePath)
		return err
	}

	err = writer.Close()
	if err == nil {
		err = brw.Close()
	}
	if err != nil {
		out.Close()
		os.Remove(archivePath)
		return eris.Wrapf(err, "Failed to finalize %s", archivePath)
	}

	err = out.Close()
	if err != nil {
		return eris.Wrapf(err, "Failed to close %s", archivePath)
	}

	return nil
}

// OpenDist opens a dist archive for reading. The caller has to close the
// returned closer once done with the tar reader.
func OpenDist(archivePath string) (*tar.Reader, io.Closer, error) {
	handle, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "Failed to open %s", archivePath)
	}

	return tar.NewReader(brotli.NewReader(handle)), handle, nil
}

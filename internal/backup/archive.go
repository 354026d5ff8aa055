package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// wrapFunc layers a compressor over the raw archive file
type wrapFunc func(io.Writer) (io.WriteCloser, error)

// NewArchiver selects the archive writer for the configured compression.
// Levels follow the gzip 1..9 convention for every algorithm; each
// archiver maps them onto its own scale.
func NewArchiver(compression CompressionType, level int) (Archiver, error) {
	switch compression {
	case CompressionTypeGzip:
		return NewGzipArchiver(level), nil
	case CompressionTypeZstd:
		return NewZstdArchiver(level), nil
	case CompressionTypeLZ4:
		return NewLZ4Archiver(level), nil
	default:
		return nil, NewConfigError(fmt.Sprintf("unsupported compression type: %s", compression), nil)
	}
}

// GzipArchiver writes tar archives compressed with gzip
type GzipArchiver struct {
	level int
}

// NewGzipArchiver creates a gzip archiver with the specified level
func NewGzipArchiver(level int) *GzipArchiver {
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &GzipArchiver{level: level}
}

// Create writes the archive and returns its final size
func (g *GzipArchiver) Create(archivePath string, files []string) (int64, error) {
	return createTarArchive(archivePath, files, func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriterLevel(w, g.level)
	})
}

// Extension returns the archive filename extension
func (g *GzipArchiver) Extension() string {
	return "tar.gz"
}

// ZstdArchiver writes tar archives compressed with zstandard
type ZstdArchiver struct {
	level int
}

// NewZstdArchiver creates a zstd archiver with the specified level
func NewZstdArchiver(level int) *ZstdArchiver {
	return &ZstdArchiver{level: level}
}

// Create writes the archive and returns its final size
func (z *ZstdArchiver) Create(archivePath string, files []string) (int64, error) {
	return createTarArchive(archivePath, files, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(z.encoderLevel()))
	})
}

// Extension returns the archive filename extension
func (z *ZstdArchiver) Extension() string {
	return "tar.zst"
}

// encoderLevel maps the numeric level onto zstd's named levels
func (z *ZstdArchiver) encoderLevel() zstd.EncoderLevel {
	switch {
	case z.level <= 1:
		return zstd.SpeedFastest
	case z.level <= 3:
		return zstd.SpeedDefault
	case z.level <= 6:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// LZ4Archiver writes tar archives compressed with lz4
type LZ4Archiver struct {
	level int
}

// NewLZ4Archiver creates an lz4 archiver with the specified level
func NewLZ4Archiver(level int) *LZ4Archiver {
	return &LZ4Archiver{level: level}
}

// Create writes the archive and returns its final size
func (l *LZ4Archiver) Create(archivePath string, files []string) (int64, error) {
	return createTarArchive(archivePath, files, func(w io.Writer) (io.WriteCloser, error) {
		writer := lz4.NewWriter(w)
		if l.level > 6 {
			// Use high compression for levels above 6
			if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
				return nil, err
			}
		}
		return writer, nil
	})
}

// Extension returns the archive filename extension
func (l *LZ4Archiver) Extension() string {
	return "tar.lz4"
}

// createTarArchive streams files into a compressed tar written under the
// in-progress suffix, then renames it into place so readers never see a
// partial archive
func createTarArchive(archivePath string, files []string, wrap wrapFunc) (int64, error) {
	tmpPath := archivePath + InProgressSuffix

	if err := writeTarFile(tmpPath, files, wrap); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, archivePath); err != nil {
		os.Remove(tmpPath)
		return 0, NewArchiveError(fmt.Sprintf("cannot finalize archive %s", archivePath), err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return 0, NewArchiveError(fmt.Sprintf("cannot stat archive %s", archivePath), err)
	}

	return info.Size(), nil
}

func writeTarFile(path string, files []string, wrap wrapFunc) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return NewArchiveError(fmt.Sprintf("cannot create archive file %s", path), err)
	}
	defer out.Close()

	compressor, err := wrap(out)
	if err != nil {
		return NewArchiveError("cannot initialize compressor", err)
	}

	tw := tar.NewWriter(compressor)
	for _, file := range files {
		if err := addFileToTar(tw, file); err != nil {
			tw.Close()
			compressor.Close()
			return err
		}
	}

	// Close order matters: tar trailer first, then the compressor frame
	if err := tw.Close(); err != nil {
		compressor.Close()
		return NewArchiveError("cannot finalize tar stream", err)
	}
	if err := compressor.Close(); err != nil {
		return NewArchiveError("cannot finalize compressed stream", err)
	}
	if err := out.Sync(); err != nil {
		return NewArchiveError(fmt.Sprintf("cannot sync archive file %s", path), err)
	}

	return nil
}

// addFileToTar stores one file flat under its base name
func addFileToTar(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return NewArchiveError(fmt.Sprintf("cannot open %s for archiving", path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return NewArchiveError(fmt.Sprintf("cannot stat %s", path), err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return NewArchiveError(fmt.Sprintf("cannot build tar header for %s", path), err)
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return NewArchiveError(fmt.Sprintf("cannot write tar header for %s", path), err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return NewArchiveError(fmt.Sprintf("cannot archive %s", path), err)
	}

	return nil
}

// Package artifact persists the fitted model, encoder table, and scaler as
// one unit. The three msgpack blobs are written together and must all load
// for inference to start.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/model"
)

// FormatVersion is stamped into every blob. Load rejects other versions.
const FormatVersion = 1

// File names inside an artifact directory.
const (
	ModelFile    = "model.msgpack"
	EncodersFile = "encoders.msgpack"
	ScalerFile   = "scaler.msgpack"
	ManifestFile = "manifest.yaml"
)

// LoadError reports an artifact that is absent, unreadable, or inconsistent.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("artifact: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Bundle is everything inference needs.
type Bundle struct {
	Model    *classifier.LogisticRegression
	Encoders codec.EncoderTable
	Scaler   codec.Scaler
	// Manifest is informational; Load leaves it nil when the file is absent.
	Manifest *Manifest
}

type modelBlob struct {
	Format int                           `msgpack:"format"`
	Model  classifier.LogisticRegression `msgpack:"model"`
}

type encodersBlob struct {
	Format   int                `msgpack:"format"`
	Encoders codec.EncoderTable `msgpack:"encoders"`
}

type scalerBlob struct {
	Format int          `msgpack:"format"`
	Scaler codec.Scaler `msgpack:"scaler"`
}

// Save writes the bundle into dir, creating it if needed. Each file is
// written to a temporary name and renamed into place.
func Save(dir string, b *Bundle) error {
	if b == nil || b.Model == nil {
		return eris.New("artifact: save called without a model")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "artifact: create %s", dir)
	}

	blobs := []struct {
		name string
		v    any
	}{
		{ModelFile, modelBlob{Format: FormatVersion, Model: *b.Model}},
		{EncodersFile, encodersBlob{Format: FormatVersion, Encoders: b.Encoders}},
		{ScalerFile, scalerBlob{Format: FormatVersion, Scaler: b.Scaler}},
	}
	for _, blob := range blobs {
		err := writeAtomic(filepath.Join(dir, blob.name), func(w io.Writer) error {
			return msgpack.NewEncoder(w).Encode(blob.v)
		})
		if err != nil {
			return err
		}
	}

	if b.Manifest != nil {
		if err := SaveManifest(dir, b.Manifest); err != nil {
			return err
		}
	}

	zap.L().Info("artifact: saved", zap.String("dir", dir))
	return nil
}

// Load reads and validates all three blobs from dir.
func Load(dir string) (*Bundle, error) {
	var mb modelBlob
	if err := readBlob(filepath.Join(dir, ModelFile), &mb, &mb.Format); err != nil {
		return nil, err
	}
	if err := mb.Model.Validate(model.NumFeatures); err != nil {
		return nil, &LoadError{Path: filepath.Join(dir, ModelFile), Err: err}
	}

	var eb encodersBlob
	if err := readBlob(filepath.Join(dir, EncodersFile), &eb, &eb.Format); err != nil {
		return nil, err
	}
	if err := eb.Encoders.Validate(); err != nil {
		return nil, &LoadError{Path: filepath.Join(dir, EncodersFile), Err: err}
	}

	var sb scalerBlob
	if err := readBlob(filepath.Join(dir, ScalerFile), &sb, &sb.Format); err != nil {
		return nil, err
	}
	if err := sb.Scaler.Validate(); err != nil {
		return nil, &LoadError{Path: filepath.Join(dir, ScalerFile), Err: err}
	}

	b := &Bundle{Model: &mb.Model, Encoders: eb.Encoders, Scaler: sb.Scaler}

	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
		m, err := LoadManifest(dir)
		if err != nil {
			zap.L().Warn("artifact: ignoring unreadable manifest", zap.String("dir", dir), zap.Error(err))
		} else {
			b.Manifest = m
		}
	}

	return b, nil
}

func readBlob(path string, v any, format *int) error {
	f, err := os.Open(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck

	if err := msgpack.NewDecoder(f).Decode(v); err != nil {
		return &LoadError{Path: path, Err: eris.Wrap(err, "decode")}
	}
	if *format != FormatVersion {
		return &LoadError{Path: path, Err: eris.Errorf("format version %d, want %d", *format, FormatVersion)}
	}
	return nil
}

// writeAtomic writes through a temp file in the target directory and
// renames it over path.
func writeAtomic(path string, write func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "artifact: create temp for %s", path)
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck

	if err := write(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "artifact: encode %s", filepath.Base(path))
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "artifact: close %s", filepath.Base(path))
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "artifact: rename %s", filepath.Base(path))
	}
	return nil
}

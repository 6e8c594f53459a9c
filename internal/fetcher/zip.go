package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// zipMemberReader closes the entry and its archive together.
type zipMemberReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (r *zipMemberReader) Close() error {
	entryErr := r.ReadCloser.Close()
	archiveErr := r.archive.Close()
	if entryErr != nil {
		return eris.Wrap(entryErr, "zip: close entry")
	}
	return eris.Wrap(archiveErr, "zip: close archive")
}

// OpenZIPMember opens one file inside a ZIP archive. The member is matched
// by its full name first, then by base name.
func OpenZIPMember(zipPath, member string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open archive %s", zipPath)
	}

	f := findZIPMember(r.File, member)
	if f == nil {
		_ = r.Close()
		return nil, eris.Errorf("zip: file %q not found in %s", member, zipPath)
	}

	rc, err := f.Open()
	if err != nil {
		_ = r.Close()
		return nil, eris.Wrapf(err, "zip: open entry %s", member)
	}
	return &zipMemberReader{ReadCloser: rc, archive: r}, nil
}

// ExtractZIPMember writes one archive member into destDir and returns its path.
func ExtractZIPMember(zipPath, member, destDir string) (string, error) {
	rc, err := OpenZIPMember(zipPath, member)
	if err != nil {
		return "", err
	}
	defer rc.Close() //nolint:errcheck

	// Sanitize against zip slip
	destPath := filepath.Join(destDir, filepath.Base(member))
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q", member)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}
	return destPath, nil
}

func findZIPMember(files []*zip.File, member string) *zip.File {
	for _, f := range files {
		if f.Name == member {
			return f
		}
	}
	for _, f := range files {
		if !f.FileInfo().IsDir() && path.Base(f.Name) == member {
			return f
		}
	}
	return nil
}

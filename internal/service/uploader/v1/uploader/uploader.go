// Package uploader stores proof-of-payment files and resolves their public URLs.
package uploader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imellon/go-investa/internal/config"
	"github.com/rs/zerolog"
)

// Uploader writes blobs under a per-user directory with timestamp-prefixed names.
type Uploader struct {
	cfg *config.BlobConfig
	log *zerolog.Logger
}

// InitUploader prepares the blob directory.
func InitUploader(cfg *config.BlobConfig, log *zerolog.Logger) (*Uploader, error) {
	if err := os.MkdirAll(cfg.BlobDir, 0o755); err != nil {
		return nil, err
	}
	return &Uploader{cfg: cfg, log: log}, nil
}

// SaveProof persists an uploaded proof file and returns its public URL.
func (u *Uploader) SaveProof(uid, filename string, src io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitize(filename))
	dir := filepath.Join(u.cfg.BlobDir, uid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	u.log.Info().Msg(fmt.Sprintf("stored proof %s for user %s", name, uid))
	return u.cfg.PublicBaseURL + "/" + uid + "/" + name, nil
}

func sanitize(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "proof"
	}
	return base
}

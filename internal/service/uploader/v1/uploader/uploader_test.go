package uploader_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/logger"
	"github.com/imellon/go-investa/internal/service/uploader/v1/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUploader(t *testing.T) (*uploader.Uploader, string) {
	t.Helper()
	dir := t.TempDir()
	u, err := uploader.InitUploader(&config.BlobConfig{BlobDir: dir, PublicBaseURL: "/blobs"}, logger.InitLog())
	require.NoError(t, err)
	return u, dir
}

func TestSaveProof(t *testing.T) {
	u, dir := newTestUploader(t)

	url, err := u.SaveProof("u1", "receipt.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/blobs/u1/"))
	assert.True(t, strings.HasSuffix(url, "-receipt.png"))

	name := filepath.Base(url)
	content, err := os.ReadFile(filepath.Join(dir, "u1", name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
}

func TestSaveProof_SanitizesFilename(t *testing.T) {
	u, _ := newTestUploader(t)

	url, err := u.SaveProof("u1", "../../etc/my receipt.png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotContains(t, url, "..")
	assert.True(t, strings.HasSuffix(url, "-my_receipt.png"))

	url, err = u.SaveProof("u1", "", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "-proof"))
}

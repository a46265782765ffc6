package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"
	"github.com/xiaoxue1272/histories-collector/internal/metrics"
)

// maxAttachmentBytes is the size cap for spooled attachments.
const maxAttachmentBytes = 50 * 1024 * 1024

// mediaRepo implements the Media repository
type mediaRepo struct {
	client   *http.Client
	spoolDir string
	logger   *log.Logger
}

// NewMediaRepo creates a new Media repository spooling into spoolDir
func NewMediaRepo(spoolDir string, probeTimeout time.Duration, logger *log.Logger) (repo.MediaRepo, error) {
	if err := os.MkdirAll(spoolDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &mediaRepo{
		client:   &http.Client{Timeout: probeTimeout},
		spoolDir: spoolDir,
		logger:   logger,
	}, nil
}

// Probe checks the attachment size from the response headers without reading
// the body. A server that reports no length passes, oversized or unreachable
// content is rejected with the reason recorded on the element.
func (r *mediaRepo) Probe(ctx context.Context, url string) (bool, string) {
	size, err := r.contentLength(ctx, url)
	if err != nil {
		metrics.AttachmentProbesTotal.WithLabelValues("error").Inc()
		return false, fmt.Sprintf("获取文件大小失败: %s", err)
	}
	if size > maxAttachmentBytes {
		metrics.AttachmentProbesTotal.WithLabelValues("rejected").Inc()
		return false, "文件大于50MB"
	}
	metrics.AttachmentProbesTotal.WithLabelValues("ok").Inc()
	return true, ""
}

func (r *mediaRepo) contentLength(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("下载文件失败: %d", resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		// 服务端未给出大小, 按常规文件处理
		return 0, nil
	}
	return resp.ContentLength, nil
}

// Fetch downloads the attachment into the group's spool directory. The byte
// budget is enforced again while streaming, a server lying about its
// Content-Length cannot fill the disk.
func (r *mediaRepo) Fetch(ctx context.Context, groupID int64, name, url string) (string, error) {
	dir := filepath.Join(r.spoolDir, strconv.FormatInt(groupID, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create group spool directory: %w", err)
	}

	path := filepath.Join(dir, spoolName(name, url))
	if _, err := os.Stat(path); err == nil {
		// Already spooled
		return path, nil
	}

	if err := r.download(ctx, url, path); err != nil {
		metrics.AttachmentFetchesTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.AttachmentFetchesTotal.WithLabelValues("ok").Inc()
	r.logger.Debug("attachment spooled", "group_id", groupID, "path", path)
	return path, nil
}

func (r *mediaRepo) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("下载文件失败: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create spool file: %w", err)
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write spool file: %w", err)
	}
	if n > maxAttachmentBytes {
		os.Remove(tmp.Name())
		return errors.New("文件大于50MB")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to place spool file: %w", err)
	}
	return nil
}

// CleanupSpool removes spooled attachments older than the retention window
func (r *mediaRepo) CleanupSpool(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	var removed int64
	err := filepath.WalkDir(r.spoolDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to sweep spool: %w", err)
	}
	return removed, nil
}

// spoolName builds a collision-safe file name from the locator hash and the
// display name.
func spoolName(name, url string) string {
	sum := sha256.Sum256([]byte(url))
	tag := hex.EncodeToString(sum[:4])

	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == "/" {
		return tag
	}
	return tag + "-" + base
}

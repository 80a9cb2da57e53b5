package mediastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// UploadReconciler scans the local cache for files missing from S3 and
// re-uploads them, covering async uploads dropped by a crash or restart.
type UploadReconciler struct {
	cacheDir string
	s3       *S3Store
	interval time.Duration
	window   time.Duration
	log      zerolog.Logger
	stop     chan struct{}
}

func NewUploadReconciler(cacheDir string, s3 *S3Store, log zerolog.Logger) *UploadReconciler {
	return &UploadReconciler{
		cacheDir: cacheDir,
		s3:       s3,
		interval: 5 * time.Minute,
		window:   24 * time.Hour,
		log:      log.With().Str("component", "media_upload_reconciler").Logger(),
		stop:     make(chan struct{}),
	}
}

func (r *UploadReconciler) Start() { go r.loop() }
func (r *UploadReconciler) Stop()  { close(r.stop) }

func (r *UploadReconciler) loop() {
	select {
	case <-time.After(2 * time.Minute):
	case <-r.stop:
		return
	}

	r.reconcile()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stop:
			return
		}
	}
}

func (r *UploadReconciler) reconcile() {
	var uploaded, failed, checked int
	cutoff := time.Now().Add(-r.window)

	kindDirs, _ := os.ReadDir(r.cacheDir)
	for _, kindDir := range kindDirs {
		if !kindDir.IsDir() {
			continue
		}
		kindPath := filepath.Join(r.cacheDir, kindDir.Name())
		subDirs, _ := os.ReadDir(kindPath)
		for _, sub := range subDirs {
			if !sub.IsDir() {
				continue
			}
			subPath := filepath.Join(kindPath, sub.Name())
			files, _ := os.ReadDir(subPath)
			for _, f := range files {
				if f.IsDir() {
					continue
				}
				if strings.HasPrefix(f.Name(), ".media-") && strings.HasSuffix(f.Name(), ".tmp") {
					continue
				}
				info, err := f.Info()
				if err == nil && info.ModTime().Before(cutoff) {
					continue
				}
				checked++
				key := filepath.ToSlash(kindDir.Name() + "/" + sub.Name() + "/" + f.Name())

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				exists := r.s3.Exists(ctx, key)
				cancel()
				if exists {
					continue
				}

				data, readErr := os.ReadFile(filepath.Join(subPath, f.Name()))
				if readErr != nil {
					continue
				}

				ct := mediaContentTypeFromExt(filepath.Ext(f.Name()))
				ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
				if saveErr := r.s3.Save(ctx, key, data, ct); saveErr != nil {
					r.log.Warn().Err(saveErr).Str("key", key).Msg("reconcile upload failed")
					failed++
				} else {
					uploaded++
				}
				cancel()
			}
		}
	}

	if uploaded > 0 || failed > 0 {
		r.log.Info().Int("uploaded", uploaded).Int("failed", failed).Int("checked", checked).Msg("media reconcile complete")
	}
}

func mediaContentTypeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".wav":
		return "audio/wav"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

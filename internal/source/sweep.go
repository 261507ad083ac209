package source

import (
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/ocrapi/internal/metrics"
)

// SweepTemps removes staged temp files older than maxAge. Per-request
// cleanup already deletes owned resources on every exit path; the
// sweeper only catches files orphaned by a crashed process.
func SweepTemps(maxAge time.Duration) {
    dir := os.TempDir()
    now := time.Now()
    removed := 0
    _ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
        if err != nil || info == nil || info.IsDir() { return nil }
        if !strings.HasPrefix(info.Name(), tempPrefix) {
            return nil
        }
        if now.Sub(info.ModTime()) >= maxAge {
            if os.Remove(path) == nil { removed++ }
        }
        return nil
    })
    if removed > 0 {
        metrics.AddTempSwept(removed)
        log.Info().Int("removed", removed).Msg("swept stale staged temp files")
    }
}

package statuscheck

import (
    "path/filepath"
    "testing"
)

func TestCheckSafeRoot(t *testing.T) {
    c := New(Options{SafeRoot: t.TempDir()})
    if st := c.checkSafeRoot(); !st.OK {
        t.Errorf("existing dir reported not ok: %+v", st)
    }

    c = New(Options{SafeRoot: filepath.Join(t.TempDir(), "missing")})
    if st := c.checkSafeRoot(); st.OK {
        t.Error("missing dir reported ok")
    }

    c = New(Options{})
    if st := c.checkSafeRoot(); st.OK || st.Message != "Not configured" {
        t.Errorf("unconfigured root: %+v", st)
    }
}

func TestCheckTempDir(t *testing.T) {
    c := New(Options{SafeRoot: t.TempDir()})
    if st := c.checkTempDir(); !st.OK {
        t.Errorf("temp dir reported not writable: %+v", st)
    }
}

package config

import "time"

// SweepConfig controls the in-process abandoned ticket sweeper.  Interval
// zero disables the ticker; the HTTP cleanup endpoint keeps working either
// way.  Timeout is the age after which a PENDING ticket counts as abandoned.
type SweepConfig struct {
    Interval time.Duration
    Timeout  time.Duration
}

func LoadSweepConfig() SweepConfig {
    c := SweepConfig{
        Interval: envDur("SWEEP_INTERVAL", 5*time.Minute),
        Timeout:  envDur("SWEEP_TIMEOUT", 30*time.Minute),
    }
    if c.Interval < 0 { c.Interval = 0 }
    if c.Timeout <= 0 { c.Timeout = 30 * time.Minute }
    return c
}

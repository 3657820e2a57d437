package sovereign

import "time"

// Option configures a Kernel at creation time.
type Option func(*kernelConfig)

type kernelConfig struct {
	constitutionPath string
	constitutionRaw  []byte
	dataDir          string
	sqlite           bool
	anchor           []byte
	maxConcurrent    int
	now              func() time.Time
}

// WithConstitution sets the path to the constitution YAML file.
func WithConstitution(path string) Option {
	return func(c *kernelConfig) { c.constitutionPath = path }
}

// WithConstitutionBytes supplies the constitution as raw YAML instead
// of a file path. Mostly for embedding and tests.
func WithConstitutionBytes(data []byte) Option {
	return func(c *kernelConfig) { c.constitutionRaw = data }
}

// WithDataDir sets the directory holding the audit ledger and the
// durable halt state.
func WithDataDir(dir string) Option {
	return func(c *kernelConfig) { c.dataDir = dir }
}

// WithSQLiteLedger stores the audit ledger in SQLite instead of the
// default append-only JSONL file.
func WithSQLiteLedger() Option {
	return func(c *kernelConfig) { c.sqlite = true }
}

// WithTrustAnchor sets the HMAC key extension manifests must be
// signed with. Without an anchor every extension is rejected.
func WithTrustAnchor(key []byte) Option {
	return func(c *kernelConfig) { c.anchor = key }
}

// WithMaxConcurrent bounds how many signals route simultaneously.
func WithMaxConcurrent(n int) Option {
	return func(c *kernelConfig) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithClock overrides the kernel clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(c *kernelConfig) { c.now = now }
}

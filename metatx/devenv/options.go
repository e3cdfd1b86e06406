package devenv

// Reporter is an interface for reporting progress during devenv startup
type Reporter interface {
	ReportProgress(message string)
}

// NoopReporter is a reporter that does nothing
type NoopReporter struct{}

func (NoopReporter) ReportProgress(message string) {}

// Config holds configuration for the development environment
type Config struct {
	// ChainID is the chain ID for the Anvil network (default: 31337)
	ChainID uint64
	// BlockTime is Anvil's block interval in seconds, 0 mines on every
	// transaction (default: 0)
	BlockTime uint64
	// ForceBuild rebuilds the contract artifacts even when present
	ForceBuild bool
	// Reporter is used to report progress during startup
	Reporter Reporter
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ChainID:  31337,
		Reporter: NoopReporter{},
	}
}

// Option is a function that modifies a Config
type Option func(*Config)

// WithChainID sets the chain ID
func WithChainID(chainID uint64) Option {
	return func(c *Config) {
		c.ChainID = chainID
	}
}

// WithBlockTime sets Anvil's block interval in seconds
func WithBlockTime(seconds uint64) Option {
	return func(c *Config) {
		c.BlockTime = seconds
	}
}

// WithForceBuild forces the contract artifacts rebuild
func WithForceBuild(force bool) Option {
	return func(c *Config) {
		c.ForceBuild = force
	}
}

// WithReporter sets the progress reporter
func WithReporter(reporter Reporter) Option {
	return func(c *Config) {
		c.Reporter = reporter
	}
}

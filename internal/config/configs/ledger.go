package configs

import "time"

// Ledger configures projection behaviour. RetryAttempts bounds how often
// a contended aggregate update is retried before the campaign is
// reported unresolved; RetryBackoff is the base delay between attempts.
type Ledger struct {
	RetryAttempts int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoff  time.Duration `env:"RETRY_BACKOFF" envDefault:"50ms"`
}

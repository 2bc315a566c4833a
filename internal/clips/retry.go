package clips

import "scenecast/internal/services"

// newRetrier applies the engine's retry knobs to provider and generation
// calls.
func newRetrier(opts Options) services.Backoff {
	return services.Backoff{
		Attempts: opts.MaxAttempts,
		Base:     opts.RetryBaseDelay,
		Max:      opts.RetryMaxDelay,
	}
}

package nodeflow

import (
	"context"
	"time"
)

// Run executes one node synchronously and returns its routing action.
// Self-running nodes (flows, batch adapters) own their lifecycle; everything
// else goes through prep -> retry-wrapped exec -> post. A node that declares
// any async lifecycle method fails fast with *CapabilityError.
func Run(ctx context.Context, n Node, shared Shared) (Action, error) {
	if r, ok := n.(Runner); ok {
		return r.Run(ctx, shared)
	}
	return runLifecycle(ctx, n, shared, runConfig{})
}

// runConfig selects the execution mode for one lifecycle pass and lets the
// orchestrator observe retries.
type runConfig struct {
	async   bool
	onRetry func(attempt int, err error)
}

func runLifecycle(ctx context.Context, n Node, shared Shared, cfg runConfig) (Action, error) {
	if !cfg.async && declaresAsync(n) {
		return "", &CapabilityError{Node: n.Name()}
	}
	prepRes, err := runPrep(ctx, n, shared, cfg.async)
	if err != nil {
		return "", err
	}
	execRes, err := runExec(ctx, n, prepRes, cfg)
	if err != nil {
		return "", err
	}
	return runPost(ctx, n, shared, prepRes, execRes, cfg.async)
}

func runPrep(ctx context.Context, n Node, shared Shared, async bool) (any, error) {
	if async {
		if p, ok := n.(AsyncPreparer); ok {
			return p.PrepAsync(ctx, shared)
		}
	}
	if p, ok := n.(Preparer); ok {
		return p.Prep(ctx, shared)
	}
	return nil, nil
}

// runExec is the retry controller. It wraps exec only: attempt counting is
// local to this invocation, the backoff doubles per failed attempt, and once
// the attempt budget is spent the fallback runs exactly once. A fallback
// error, or the last exec error when no fallback exists, propagates to the
// caller.
func runExec(ctx context.Context, n Node, prepRes any, cfg runConfig) (any, error) {
	attrs := n.Attributes()
	maxAttempts := attrs.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := callExec(ctx, n, prepRes, cfg.async)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err)
		}
		if attrs.RetryDelay > 0 {
			backoff := attrs.RetryDelay << (attempt - 1)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return callFallback(ctx, n, prepRes, lastErr, cfg.async)
}

func callExec(ctx context.Context, n Node, prepRes any, async bool) (any, error) {
	if async {
		if e, ok := n.(AsyncExecutor); ok {
			return e.ExecAsync(ctx, prepRes)
		}
	}
	if e, ok := n.(Executor); ok {
		return e.Exec(ctx, prepRes)
	}
	return nil, nil
}

func callFallback(ctx context.Context, n Node, prepRes any, execErr error, async bool) (any, error) {
	if async {
		if f, ok := n.(AsyncFallbacker); ok {
			return f.ExecFallbackAsync(ctx, prepRes, execErr)
		}
	}
	if f, ok := n.(Fallbacker); ok {
		return f.ExecFallback(prepRes, execErr)
	}
	return nil, execErr
}

func runPost(ctx context.Context, n Node, shared Shared, prepRes, execRes any, async bool) (Action, error) {
	var (
		action Action
		err    error
		done   bool
	)
	if async {
		if f, ok := n.(AsyncFinalizer); ok {
			action, err = f.PostAsync(ctx, shared, prepRes, execRes)
			done = true
		}
	}
	if !done {
		if f, ok := n.(Finalizer); ok {
			action, err = f.Post(ctx, shared, prepRes, execRes)
			done = true
		}
	}
	if err != nil {
		return "", err
	}
	if !done || action == "" {
		return DefaultAction, nil
	}
	return action, nil
}

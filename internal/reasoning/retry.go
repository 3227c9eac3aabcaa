package reasoning

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/run"
)

const retryBaseDelay = 300 * time.Millisecond

// retryClient retries one time on transient network faults. Malformed
// responses are never retried: re-asking the engine the same question
// after a schema violation mostly reproduces the violation, and the
// caller-side degradation rules already cover that case.
type retryClient struct {
	base  Client
	delay time.Duration
	log   *zap.Logger
}

// WithRetry wraps a client with single-retry behavior for transient
// network faults.
func WithRetry(base Client, log *zap.Logger) Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &retryClient{base: base, delay: retryBaseDelay, log: log}
}

func retryable(err error) bool {
	return fault.IsKind(err, fault.Network)
}

func (r *retryClient) pause(ctx context.Context) error {
	select {
	case <-time.After(r.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *retryClient) Reason(ctx context.Context, signature, context_ string) (string, error) {
	out, err := r.base.Reason(ctx, signature, context_)
	if err == nil || !retryable(err) {
		return out, err
	}
	r.log.Warn("retrying reasoning call", zap.String("op", "reason"), zap.Error(err))
	if perr := r.pause(ctx); perr != nil {
		return "", perr
	}
	return r.base.Reason(ctx, signature, context_)
}

func (r *retryClient) PredictStack(ctx context.Context, repoURL string, treeSample []string) (StackPrediction, error) {
	out, err := r.base.PredictStack(ctx, repoURL, treeSample)
	if err == nil || !retryable(err) {
		return out, err
	}
	r.log.Warn("retrying reasoning call", zap.String("op", "predict_stack"), zap.Error(err))
	if perr := r.pause(ctx); perr != nil {
		return StackPrediction{}, perr
	}
	return r.base.PredictStack(ctx, repoURL, treeSample)
}

func (r *retryClient) Audit(ctx context.Context, signature, repoURL, branch string, fileTree []string, contextBlob string) (AuditResult, error) {
	out, err := r.base.Audit(ctx, signature, repoURL, branch, fileTree, contextBlob)
	if err == nil || !retryable(err) {
		return out, err
	}
	r.log.Warn("retrying reasoning call", zap.String("op", "audit"), zap.Error(err))
	if perr := r.pause(ctx); perr != nil {
		return AuditResult{}, perr
	}
	return r.base.Audit(ctx, signature, repoURL, branch, fileTree, contextBlob)
}

func (r *retryClient) ProposeFix(ctx context.Context, signature string, issue run.Issue, contextBlob string) (run.CodeFix, error) {
	out, err := r.base.ProposeFix(ctx, signature, issue, contextBlob)
	if err == nil || !retryable(err) {
		return out, err
	}
	r.log.Warn("retrying reasoning call", zap.String("op", "propose_fix"), zap.Error(err))
	if perr := r.pause(ctx); perr != nil {
		return run.CodeFix{}, perr
	}
	return r.base.ProposeFix(ctx, signature, issue, contextBlob)
}

func (r *retryClient) Summarize(ctx context.Context, signature string, state run.Run) (string, error) {
	out, err := r.base.Summarize(ctx, signature, state)
	if err == nil || !retryable(err) {
		return out, err
	}
	r.log.Warn("retrying reasoning call", zap.String("op", "summarize"), zap.Error(err))
	if perr := r.pause(ctx); perr != nil {
		return "", perr
	}
	return r.base.Summarize(ctx, signature, state)
}

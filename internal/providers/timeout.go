package providers

import (
	"context"
	"time"

	"github.com/SAP-F-2025/material-question-service/internal/models"
)

type callResult struct {
	questions []models.CandidateQuestion
	err       error
}

// CallWithTimeout races one Generate call against a timer. When the timer
// wins the call context is cancelled and its eventual result is dropped.
func CallWithTimeout(ctx context.Context, p Provider, req Request, timeout time.Duration) ([]models.CandidateQuestion, error) {
	if timeout <= 0 {
		return nil, ErrTimeout
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so a late sender never blocks after we stop listening.
	done := make(chan callResult, 1)
	go func() {
		questions, err := p.Generate(callCtx, req)
		done <- callResult{questions: questions, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.questions, res.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

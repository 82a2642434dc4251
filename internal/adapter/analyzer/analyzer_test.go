package analyzer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github-repo-analyzer/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func resultFor(name string, total int, grade string) *domain.ScoreResult {
	parts := strings.SplitN(name, "/", 2)
	return &domain.ScoreResult{
		Repo:      domain.RepoRef{Owner: parts[0], Name: parts[1], URL: "https://github.com/" + name},
		Breakdown: domain.ScoreBreakdown{Total: total, Grade: grade},
	}
}

func TestBatchScorer_ScoreAll(t *testing.T) {
	scores := map[string]*domain.ScoreResult{
		"https://github.com/a/one":   resultFor("a/one", 95, "A+"),
		"https://github.com/b/two":   resultFor("b/two", 72, "B-"),
		"https://github.com/c/three": resultFor("c/three", 40, "F"),
	}
	score := func(ctx context.Context, url string) (*domain.ScoreResult, error) {
		if res, ok := scores[url]; ok {
			return res, nil
		}
		return nil, errors.New("repository not found")
	}

	tests := []struct {
		name         string
		urls         []string
		expectFailed []bool
	}{
		{
			name:         "全部成功且保持输入顺序",
			urls:         []string{"https://github.com/c/three", "https://github.com/a/one", "https://github.com/b/two"},
			expectFailed: []bool{false, false, false},
		},
		{
			name:         "单个失败不影响其它",
			urls:         []string{"https://github.com/a/one", "https://github.com/x/missing", "https://github.com/b/two"},
			expectFailed: []bool{false, true, false},
		},
		{
			name:         "空列表",
			urls:         nil,
			expectFailed: []bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBatchScorer(score, discardLogger())
			results, err := b.ScoreAll(context.Background(), tt.urls)
			require.NoError(t, err)
			require.Len(t, results, len(tt.expectFailed))

			for i, r := range results {
				assert.Equal(t, tt.urls[i], r.URL)
				if tt.expectFailed[i] {
					assert.Error(t, r.Err)
					assert.Nil(t, r.Result)
				} else {
					assert.NoError(t, r.Err)
					assert.Equal(t, scores[tt.urls[i]], r.Result)
				}
			}
		})
	}
}

func TestBatchScorer_RespectsConcurrencyLimit(t *testing.T) {
	var running, peak atomic.Int32
	score := func(ctx context.Context, url string) (*domain.ScoreResult, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return resultFor("o/r", 50, "D"), nil
	}

	b := NewBatchScorer(score, discardLogger())
	b.SetMaxGoroutines(2)
	b.SetMaxGoroutines(0) // 非法值被忽略

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = "https://github.com/o/r"
	}
	results, err := b.ScoreAll(context.Background(), urls)
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestBatchScorer_ItemTimeout(t *testing.T) {
	score := func(ctx context.Context, url string) (*domain.ScoreResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	b := NewBatchScorer(score, discardLogger())
	b.SetItemTimeout(10 * time.Millisecond)

	results, err := b.ScoreAll(context.Background(), []string{"https://github.com/o/slow"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestBatchScorer_ContextCancelled(t *testing.T) {
	var mu sync.Mutex
	called := 0
	score := func(ctx context.Context, url string) (*domain.ScoreResult, error) {
		mu.Lock()
		called++
		mu.Unlock()
		return resultFor("o/r", 50, "D"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBatchScorer(score, discardLogger())
	results, err := b.ScoreAll(ctx, []string{"https://github.com/o/r", "https://github.com/o/s"})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, 0, called)
}

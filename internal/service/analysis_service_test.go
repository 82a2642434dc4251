package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github-repo-analyzer/internal/adapter/github"
	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"
	"github-repo-analyzer/internal/scoring"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSource 模拟 MetricsSource
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchMetrics(ctx context.Context, ref domain.RepoRef) (domain.RepositoryMetrics, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(domain.RepositoryMetrics), args.Error(1)
}

// MockNarrator 模拟 Narrator
type MockNarrator struct {
	mock.Mock
}

func (m *MockNarrator) Narrate(ctx context.Context, ref domain.RepoRef, b domain.ScoreBreakdown, emit domain.EventSink) (string, error) {
	args := m.Called(ctx, ref, b, emit)
	return args.String(0), args.Error(1)
}

// MockRepository 模拟 Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, rec *domain.AnalysisRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) Latest(ctx context.Context, fullName string) (*domain.AnalysisRecord, error) {
	args := m.Called(ctx, fullName)
	rec, _ := args.Get(0).(*domain.AnalysisRecord)
	return rec, args.Error(1)
}

func (m *MockRepository) History(ctx context.Context, fullName string, limit int) ([]*domain.AnalysisRecord, error) {
	args := m.Called(ctx, fullName, limit)
	recs, _ := args.Get(0).([]*domain.AnalysisRecord)
	return recs, args.Error(1)
}

func (m *MockRepository) Search(ctx context.Context, query string) ([]*domain.AnalysisRecord, error) {
	args := m.Called(ctx, query)
	recs, _ := args.Get(0).([]*domain.AnalysisRecord)
	return recs, args.Error(1)
}

// MockNotifier 模拟 Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, rec *domain.AnalysisRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const testURL = "https://github.com/octo/cat"

var testRef = domain.RepoRef{Owner: "octo", Name: "cat", URL: testURL}

func healthyMetrics() domain.RepositoryMetrics {
	return domain.RepositoryMetrics{
		Stars:          12000,
		Forks:          2000,
		OpenIssues:     50,
		LastCommitDate: fixedNow.AddDate(0, 0, -2),
		Contributors:   120,
		HasReadme:      true,
		HasLicense:     true,
		HasWiki:        true,
		HasDescription: true,
		Language:       "Go",
		CreatedAt:      fixedNow.AddDate(-3, 0, 0),
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	source   *MockSource
	narrator *MockNarrator
	store    *MockRepository
	notifier *MockNotifier
}

func newService(f fixture) *AnalysisService {
	svc := NewAnalysisService(github.ParseRepoURL, f.source, scoring.NewScorerWithClock(func() time.Time { return fixedNow }), nil, nil, nil, testLogger())
	// 只在非 nil 时赋值，避免 typed nil 落进接口
	if f.narrator != nil {
		svc.narrator = f.narrator
	}
	if f.store != nil {
		svc.store = f.store
	}
	if f.notifier != nil {
		svc.notifier = f.notifier
	}
	svc.nowFunc = func() time.Time { return fixedNow }
	return svc
}

func collect(ch <-chan domain.Event) []domain.Event {
	var events []domain.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func typesOf(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func stepsOf(events []domain.Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == domain.EventStep {
			out = append(out, ev.Data.(domain.StepData).Step)
		}
	}
	return out
}

func lastError(t *testing.T, events []domain.Event) string {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, domain.EventError, last.Type)
	return last.Data.(domain.ErrorData).Error
}

func TestAnalysisService_Analyze_HappyPath(t *testing.T) {
	f := fixture{
		source:   &MockSource{},
		narrator: &MockNarrator{},
		store:    &MockRepository{},
		notifier: &MockNotifier{},
	}
	expected := scoring.ScoreAt(healthyMetrics(), fixedNow)

	f.source.On("FetchMetrics", mock.Anything, testRef).Return(healthyMetrics(), nil)
	f.narrator.On("Narrate", mock.Anything, testRef, expected, mock.Anything).
		Run(func(args mock.Arguments) {
			emit := args.Get(3).(domain.EventSink)
			emit(domain.NewStepEvent("The AI is thinking..."))
			emit(domain.NewThoughtEvent("先看看指标"))
		}).
		Return("# 📊 Repository Analysis", nil)
	f.store.On("Save", mock.Anything, mock.MatchedBy(func(rec *domain.AnalysisRecord) bool {
		return rec.FullName == "octo/cat" && rec.Total == expected.Total && rec.Analysis == "# 📊 Repository Analysis"
	})).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.AnythingOfType("*domain.AnalysisRecord")).Return(nil)

	events := collect(newService(f).Analyze(context.Background(), testURL))

	assert.Equal(t, []domain.EventType{
		domain.EventStart,
		domain.EventStep, domain.EventStep, domain.EventStep, domain.EventStep,
		domain.EventScore,
		domain.EventStep,
		domain.EventStep, domain.EventThought,
		domain.EventStep,
		domain.EventComplete,
	}, typesOf(events))

	assert.Equal(t, "🔍 Starting analysis...", events[0].Data.(domain.StartData).Message)
	assert.Equal(t, []string{
		"Analyzing repository octo/cat",
		"Fetching repository metrics...",
		"Calculating health score...",
		fmt.Sprintf("Score calculated: %d/100 %s", expected.Total, expected.Emoji),
		"Initializing AI agent...",
		"The AI is thinking...",
		"Analysis finished!",
	}, stepsOf(events))
	assert.Equal(t, expected, events[5].Data)
	assert.Equal(t, "# 📊 Repository Analysis", events[len(events)-1].Data.(domain.CompleteData).Analysis)

	f.source.AssertExpectations(t)
	f.narrator.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestAnalysisService_Analyze_Failures(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		setup         func(f fixture)
		expectedError string
	}{
		{
			name:          "无效的 URL",
			url:           "https://gitlab.com/octo/cat",
			setup:         func(f fixture) {},
			expectedError: "Error analyzing the repository: " + github.InvalidURLMessage,
		},
		{
			name: "拉取指标失败",
			url:  testURL,
			setup: func(f fixture) {
				f.source.On("FetchMetrics", mock.Anything, testRef).
					Return(domain.RepositoryMetrics{}, common.NewError(common.ErrCodeNotFound, "repository not found"))
			},
			expectedError: "Error analyzing the repository: repository not found",
		},
		{
			name: "指标不完整",
			url:  testURL,
			setup: func(f fixture) {
				m := healthyMetrics()
				m.LastCommitDate = time.Time{}
				f.source.On("FetchMetrics", mock.Anything, testRef).Return(m, nil)
			},
			expectedError: "Error analyzing the repository: invalid repository metrics: lastCommitDate is missing",
		},
		{
			name: "LLM 解说失败",
			url:  testURL,
			setup: func(f fixture) {
				f.source.On("FetchMetrics", mock.Anything, testRef).Return(healthyMetrics(), nil)
				f.narrator.On("Narrate", mock.Anything, testRef, mock.Anything, mock.Anything).
					Return("", common.WrapError(common.ErrCodeAIProcessing, "Gemini 调用失败", errors.New("quota")))
			},
			expectedError: "Error analyzing the repository: Gemini 调用失败",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixture{source: &MockSource{}, narrator: &MockNarrator{}, store: &MockRepository{}}
			tt.setup(f)

			events := collect(newService(f).Analyze(context.Background(), tt.url))

			assert.Equal(t, domain.EventStart, events[0].Type)
			assert.Equal(t, tt.expectedError, lastError(t, events))
			f.store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalysisService_Analyze_NoNarrator(t *testing.T) {
	f := fixture{source: &MockSource{}}
	svc := newService(f)
	assert.False(t, svc.HasNarrator())

	events := collect(svc.Analyze(context.Background(), testURL))
	require.Len(t, events, 1)
	assert.Equal(t, "GEMINI_API_KEY is not configured", lastError(t, events))
	f.source.AssertNotCalled(t, "FetchMetrics", mock.Anything, mock.Anything)
}

func TestAnalysisService_Analyze_StoreAndNotifyFailuresAreNotFatal(t *testing.T) {
	f := fixture{
		source:   &MockSource{},
		narrator: &MockNarrator{},
		store:    &MockRepository{},
		notifier: &MockNotifier{},
	}
	f.source.On("FetchMetrics", mock.Anything, testRef).Return(healthyMetrics(), nil)
	f.narrator.On("Narrate", mock.Anything, testRef, mock.Anything, mock.Anything).Return("ok", nil)
	f.store.On("Save", mock.Anything, mock.Anything).Return(common.NewError(common.ErrCodeDatabase, "down"))
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("webhook down"))

	events := collect(newService(f).Analyze(context.Background(), testURL))
	last := events[len(events)-1]
	assert.Equal(t, domain.EventComplete, last.Type)
	assert.Equal(t, "ok", last.Data.(domain.CompleteData).Analysis)
}

func TestAnalysisService_Analyze_ContextCancelled(t *testing.T) {
	f := fixture{source: &MockSource{}, narrator: &MockNarrator{}}
	ctx, cancel := context.WithCancel(context.Background())

	f.source.On("FetchMetrics", mock.Anything, testRef).
		Run(func(mock.Arguments) { cancel() }).
		Return(healthyMetrics(), nil)
	f.narrator.On("Narrate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("late", nil).Maybe()

	done := make(chan []domain.Event)
	go func() { done <- collect(newService(f).Analyze(ctx, testURL)) }()

	select {
	case events := <-done:
		for _, ev := range events {
			assert.NotEqual(t, domain.EventComplete, ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel 没有在 ctx 取消后关闭")
	}
}

func TestAnalysisService_ScoreOnly(t *testing.T) {
	t.Run("评分并保存", func(t *testing.T) {
		f := fixture{source: &MockSource{}, store: &MockRepository{}}
		f.source.On("FetchMetrics", mock.Anything, testRef).Return(healthyMetrics(), nil)
		f.store.On("Save", mock.Anything, mock.MatchedBy(func(rec *domain.AnalysisRecord) bool {
			return rec.Analysis == "" && rec.FullName == "octo/cat"
		})).Return(nil)

		res, err := newService(f).ScoreOnly(context.Background(), "git@github.com:octo/cat.git")
		require.NoError(t, err)
		assert.Equal(t, testRef, res.Repo)
		assert.Equal(t, scoring.ScoreAt(healthyMetrics(), fixedNow), res.Breakdown)
		assert.Equal(t, scoring.Report(res.Breakdown), res.Report)
		assert.Equal(t, fixedNow, res.ScoredAt)
		f.store.AssertExpectations(t)
	})

	t.Run("无效的 URL", func(t *testing.T) {
		_, err := newService(fixture{source: &MockSource{}}).ScoreOnly(context.Background(), "not a url")
		assert.True(t, common.IsCode(err, common.ErrCodeInvalidURL))
	})

	t.Run("指标不完整", func(t *testing.T) {
		f := fixture{source: &MockSource{}}
		f.source.On("FetchMetrics", mock.Anything, testRef).Return(domain.RepositoryMetrics{Stars: -1}, nil)
		_, err := newService(f).ScoreOnly(context.Background(), testURL)
		assert.True(t, common.IsCode(err, common.ErrCodeInvalidInput))
		assert.ErrorIs(t, err, domain.ErrInvalidMetrics)
	})
}

func TestAnalysisService_Track(t *testing.T) {
	current := scoring.ScoreAt(healthyMetrics(), fixedNow)

	tests := []struct {
		name         string
		previous     *domain.AnalysisRecord
		latestErr    error
		expectNotify bool
	}{
		{
			name:         "等级变化时推送",
			previous:     &domain.AnalysisRecord{FullName: "octo/cat", Grade: "C"},
			expectNotify: true,
		},
		{
			name:     "等级不变不推送",
			previous: &domain.AnalysisRecord{FullName: "octo/cat", Grade: current.Grade},
		},
		{
			name:      "首次巡检不推送",
			latestErr: common.NewError(common.ErrCodeNotFound, "no record"),
		},
		{
			name:      "读取历史失败仍然保存",
			latestErr: common.NewError(common.ErrCodeDatabase, "timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixture{source: &MockSource{}, store: &MockRepository{}, notifier: &MockNotifier{}}
			f.source.On("FetchMetrics", mock.Anything, testRef).Return(healthyMetrics(), nil)
			f.store.On("Latest", mock.Anything, "octo/cat").Return(tt.previous, tt.latestErr)
			f.store.On("Save", mock.Anything, mock.Anything).Return(nil)
			if tt.expectNotify {
				f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(rec *domain.AnalysisRecord) bool {
					return rec.Grade == current.Grade
				})).Return(nil)
			}

			res, err := newService(f).Track(context.Background(), testURL)
			require.NoError(t, err)
			assert.Equal(t, current, res.Breakdown)

			f.store.AssertCalled(t, "Save", mock.Anything, mock.Anything)
			if tt.expectNotify {
				f.notifier.AssertExpectations(t)
			} else {
				f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAnalysisService_History(t *testing.T) {
	t.Run("未配置数据库", func(t *testing.T) {
		svc := newService(fixture{source: &MockSource{}})
		assert.False(t, svc.HasStore())
		_, err := svc.History(context.Background(), testURL, 5)
		assert.True(t, common.IsCode(err, common.ErrCodeConfig))
		assert.Equal(t, "history storage is not configured", common.MessageOf(err))
	})

	t.Run("委托给存储层", func(t *testing.T) {
		f := fixture{source: &MockSource{}, store: &MockRepository{}}
		recs := []*domain.AnalysisRecord{{ID: "2"}, {ID: "1"}}
		f.store.On("History", mock.Anything, "octo/cat", 5).Return(recs, nil)

		got, err := newService(f).History(context.Background(), testURL, 5)
		require.NoError(t, err)
		assert.Equal(t, recs, got)
	})
}

func TestAnalysisService_Search(t *testing.T) {
	t.Run("未配置数据库", func(t *testing.T) {
		_, err := newService(fixture{source: &MockSource{}}).Search(context.Background(), "cat")
		assert.True(t, common.IsCode(err, common.ErrCodeConfig))
		assert.Equal(t, MsgNoStore, common.MessageOf(err))
	})

	t.Run("关键词为空", func(t *testing.T) {
		f := fixture{source: &MockSource{}, store: &MockRepository{}}
		_, err := newService(f).Search(context.Background(), "   ")
		assert.True(t, common.IsCode(err, common.ErrCodeInvalidInput))
		assert.Equal(t, MsgEmptyQuery, common.MessageOf(err))
		f.store.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("去掉首尾空白后委托给存储层", func(t *testing.T) {
		f := fixture{source: &MockSource{}, store: &MockRepository{}}
		recs := []*domain.AnalysisRecord{{ID: "1", FullName: "octo/cat"}}
		f.store.On("Search", mock.Anything, "cat").Return(recs, nil)

		got, err := newService(f).Search(context.Background(), "  cat ")
		require.NoError(t, err)
		assert.Equal(t, recs, got)
		f.store.AssertExpectations(t)
	})
}

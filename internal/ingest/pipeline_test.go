package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"claro-backend/internal/domain"
	"claro-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testLawID   = "vat"
	testLawName = "Ustawa o podatku od towarów i usług"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestPipeline(repo repository.ArticlesRepository) *Pipeline {
	return NewPipeline(repo, zap.NewNop())
}

func TestRun_EmptyText(t *testing.T) {
	repo := repository.NewMemoryArticlesRepository()
	p := newTestPipeline(repo)

	_, err := p.Run(context.Background(), "", testLawID, testLawName, day("2024-01-01"))

	require.ErrorIs(t, err, domain.ErrNoArticles)
	// Nothing may be written, not even the law row.
	_, ok := repo.LawName(testLawID)
	assert.False(t, ok)
}

func TestRun_StoreUnavailable(t *testing.T) {
	repo := repository.NewMemoryArticlesRepository()
	repo.PingErr = errors.New("connection refused")
	p := newTestPipeline(repo)

	_, err := p.Run(context.Background(), "Art. 1. Foo.", testLawID, testLawName, day("2024-01-01"))

	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Empty(t, repo.VersionsOf(testLawID, "Art. 1."))
}

func TestRun_FirstIngestion(t *testing.T) {
	repo := repository.NewMemoryArticlesRepository()
	p := newTestPipeline(repo)

	outcome, err := p.Run(context.Background(), "Art. 1. Foo. Art. 2. Bar.", testLawID, testLawName, day("2024-01-01"))

	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Segmented)
	assert.Equal(t, 2, outcome.Succeeded)
	assert.Equal(t, 2, outcome.Created)
	assert.Empty(t, outcome.Failed)
	assert.NotEmpty(t, outcome.RunID)

	versions := repo.VersionsOf(testLawID, "Art. 1.")
	require.Len(t, versions, 1)
	assert.Equal(t, "Art. 1. Foo.", versions[0].Content)
	assert.Nil(t, versions[0].VersionEndDate)
}

func TestRun_Idempotent(t *testing.T) {
	repo := repository.NewMemoryArticlesRepository()
	p := newTestPipeline(repo)
	raw := "Art. 1. Foo. Art. 2. Bar."
	asOf := day("2024-01-01")

	_, err := p.Run(context.Background(), raw, testLawID, testLawName, asOf)
	require.NoError(t, err)

	second, err := p.Run(context.Background(), raw, testLawID, testLawName, asOf)
	require.NoError(t, err)

	assert.Equal(t, 2, second.Succeeded)
	assert.Equal(t, 2, second.Unchanged)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Superseded)
	assert.Len(t, repo.VersionsOf(testLawID, "Art. 1."), 1)
	assert.Len(t, repo.VersionsOf(testLawID, "Art. 2."), 1)
}

func TestRun_Supersession(t *testing.T) {
	repo := repository.NewMemoryArticlesRepository()
	p := newTestPipeline(repo)
	d1, d2 := day("2024-01-01"), day("2024-02-01")

	_, err := p.Run(context.Background(), "Art. 1. Foo.", testLawID, testLawName, d1)
	require.NoError(t, err)

	outcome, err := p.Run(context.Background(), "Art. 1. Foo v2.", testLawID, testLawName, d2)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Superseded)

	versions := repo.VersionsOf(testLawID, "Art. 1.")
	require.Len(t, versions, 2)

	// Exactly one open version; the closed one ends where the new begins.
	var current, superseded *domain.ArticleVersion
	for i := range versions {
		if versions[i].VersionEndDate == nil {
			require.Nil(t, current, "more than one current version")
			current = &versions[i]
		} else {
			superseded = &versions[i]
		}
	}
	require.NotNil(t, current)
	require.NotNil(t, superseded)
	assert.Equal(t, "Art. 1. Foo v2.", current.Content)
	assert.Equal(t, d2, current.VersionStartDate)
	assert.Equal(t, d2, *superseded.VersionEndDate)
	assert.Equal(t, d1, superseded.VersionStartDate)
}

func TestRun_PerArticleFailureContinues(t *testing.T) {
	repo := repository.NewMemoryArticlesRepository()
	repo.CreateErrs = map[string]error{"Art. 2.": errors.New("constraint violation")}
	p := newTestPipeline(repo)

	outcome, err := p.Run(context.Background(), "Art. 1. Foo. Art. 2. Bar. Art. 3. Baz.", testLawID, testLawName, day("2024-01-01"))

	require.NoError(t, err)
	assert.Equal(t, 3, outcome.Segmented)
	assert.Equal(t, 2, outcome.Succeeded)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, "Art. 2.", outcome.Failed[0].ArticleNumber)
	assert.Contains(t, outcome.Failed[0].Reason, "constraint violation")

	// The articles after the failure were still processed.
	assert.Len(t, repo.VersionsOf(testLawID, "Art. 3."), 1)
}

func TestRun_UpsertLawOverwritesName(t *testing.T) {
	repo := repository.NewMemoryArticlesRepository()
	p := newTestPipeline(repo)

	_, err := p.Run(context.Background(), "Art. 1. Foo.", testLawID, "Ustawa A", day("2024-01-01"))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), "Art. 1. Foo.", testLawID, "Ustawa B", day("2024-01-01"))
	require.NoError(t, err)

	name, ok := repo.LawName(testLawID)
	require.True(t, ok)
	assert.Equal(t, "Ustawa B", name)
}

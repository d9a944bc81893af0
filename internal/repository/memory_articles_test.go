package repository

import (
	"context"
	"testing"
	"time"

	"claro-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedArticle(t *testing.T, repo *MemoryArticlesRepository, lawID, number, content string, asOf time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := repo.GetOrCreateArticle(ctx, lawID, number)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyAction(ctx, id, domain.ActionCreateFirst, content, asOf))
	return id
}

func TestUpsertLaw_OverwritesName(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()

	require.NoError(t, repo.UpsertLaw(ctx, "vat", "Ustawa o VAT"))
	require.NoError(t, repo.UpsertLaw(ctx, "vat", "Ustawa o podatku od towarów i usług"))

	name, ok := repo.LawName("vat")
	require.True(t, ok)
	assert.Equal(t, "Ustawa o podatku od towarów i usług", name)
}

func TestGetOrCreateArticle_NoDuplicates(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()

	first, err := repo.GetOrCreateArticle(ctx, "vat", "86")
	require.NoError(t, err)
	second, err := repo.GetOrCreateArticle(ctx, "vat", "86")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGetOrCreateArticle_ScopedByLaw(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()

	vatID, err := repo.GetOrCreateArticle(ctx, "vat", "1")
	require.NoError(t, err)
	pitID, err := repo.GetOrCreateArticle(ctx, "pit", "1")
	require.NoError(t, err)

	assert.NotEqual(t, vatID, pitID)
}

func TestApplyAction_SupersedeClosesCurrent(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	id := seedArticle(t, repo, "vat", "86", "Art. 86. Stara treść.", d1)
	require.NoError(t, repo.ApplyAction(ctx, id, domain.ActionSupersede, "Art. 86. Nowa treść.", d2))

	versions := repo.VersionsOf("vat", "86")
	require.Len(t, versions, 2)

	var current []domain.ArticleVersion
	for _, v := range versions {
		if v.VersionEndDate == nil {
			current = append(current, v)
		}
	}
	require.Len(t, current, 1, "exactly one current version per article")
	assert.Equal(t, "Art. 86. Nowa treść.", current[0].Content)
	assert.Equal(t, d2, current[0].VersionStartDate)

	closed := versions[0]
	require.NotNil(t, closed.VersionEndDate)
	assert.Equal(t, d2, *closed.VersionEndDate)
}

func TestApplyAction_NoneIsNoop(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	id := seedArticle(t, repo, "vat", "5", "Art. 5. Treść.", d1)
	require.NoError(t, repo.ApplyAction(ctx, id, domain.ActionNone, "ignored", d1.AddDate(0, 6, 0)))

	assert.Len(t, repo.VersionsOf("vat", "5"), 1)
}

func TestApplyAction_UnknownAction(t *testing.T) {
	repo := NewMemoryArticlesRepository()

	err := repo.ApplyAction(context.Background(), 1, domain.Action("merge"), "x", time.Now())

	require.Error(t, err)
}

func TestSearchCurrentFullText_RanksByOccurrences(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertLaw(ctx, "vat", "Ustawa o VAT"))

	seedArticle(t, repo, "vat", "86", "Art. 86. Odliczenia podatku. Odliczenia przysługują podatnikowi.", d1)
	seedArticle(t, repo, "vat", "88", "Art. 88. Odliczenia nie stosuje się.", d1)
	seedArticle(t, repo, "vat", "5", "Art. 5. Opodatkowaniu podlega dostawa towarów.", d1)

	results, err := repo.SearchCurrentFullText(ctx, "polish", "odliczenia", 10)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "86", results[0].ArticleNumber)
	assert.Equal(t, "88", results[1].ArticleNumber)
	assert.Equal(t, "Ustawa o VAT", results[0].LawName)
}

func TestSearchCurrentFullText_AllTermsRequired(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seedArticle(t, repo, "vat", "86", "Art. 86. Odliczenia podatku.", d1)

	results, err := repo.SearchCurrentFullText(ctx, "polish", "odliczenia kryptowaluty", 10)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCurrentFallback_SubstringMatch(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seedArticle(t, repo, "vat", "86", "Art. 86. Prawo do odliczenia podatku.", d1)

	// "odliczeni" is not a whole token, only a prefix of "odliczenia".
	full, err := repo.SearchCurrentFullText(ctx, "polish", "odliczeni", 10)
	require.NoError(t, err)
	assert.Empty(t, full)

	fallback, err := repo.SearchCurrentFallback(ctx, "odliczeni", 10)
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, "86", fallback[0].ArticleNumber)
}

func TestSearch_SupersededVersionsExcluded(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	id := seedArticle(t, repo, "vat", "41", "Art. 41. Stawka wynosi 22%.", d1)
	require.NoError(t, repo.ApplyAction(ctx, id, domain.ActionSupersede, "Art. 41. Stawka wynosi 23%.", d2))

	results, err := repo.SearchCurrentFallback(ctx, "22%", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "old wording must not match")

	results, err = repo.SearchCurrentFallback(ctx, "23%", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearch_LimitApplied(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, n := range []string{"1", "2", "3", "4"} {
		seedArticle(t, repo, "vat", n, "Art. "+n+". Podatek od towarów.", d1)
	}

	results, err := repo.SearchCurrentFullText(ctx, "polish", "podatek", 2)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestListVersions_OrderedByArticleThenRecency(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	id := seedArticle(t, repo, "vat", "1", "Art. 1. Stara.", d1)
	require.NoError(t, repo.ApplyAction(ctx, id, domain.ActionSupersede, "Art. 1. Nowa.", d2))
	seedArticle(t, repo, "vat", "2", "Art. 2. Treść.", d1)
	seedArticle(t, repo, "pit", "1", "Inna ustawa.", d1)

	records, err := repo.ListVersions(ctx, "vat")

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Art. 1. Nowa.", records[0].Content)
	assert.Equal(t, "Art. 1. Stara.", records[1].Content)
	assert.Equal(t, "2", records[2].ArticleNumber)
}

func TestRunLock(t *testing.T) {
	repo := NewMemoryArticlesRepository()
	ctx := context.Background()

	got, err := repo.AcquireRunLock(ctx, "vat")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = repo.AcquireRunLock(ctx, "vat")
	require.NoError(t, err)
	assert.False(t, got, "second acquire must fail while held")

	require.NoError(t, repo.ReleaseRunLock(ctx, "vat"))

	got, err = repo.AcquireRunLock(ctx, "vat")
	require.NoError(t, err)
	assert.True(t, got)
}

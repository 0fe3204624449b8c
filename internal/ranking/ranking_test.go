package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

func hit(id, movie string, dist float64) domain.DocumentHit {
	return domain.DocumentHit{
		Document: domain.Document{ID: id, Metadata: domain.DocumentMeta{MovieTitle: movie}},
		Distance: dist,
	}
}

func ids(hits []domain.DocumentHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

func TestDedupeByMovie(t *testing.T) {
	in := []domain.DocumentHit{
		hit("a", "Heat", 0.1),
		hit("b", "Ronin", 0.2),
		hit("c", "Heat", 0.3),
		hit("d", "", 0.4),
		hit("e", "", 0.5),
	}
	assert.Equal(t, []string{"a", "b", "d", "e"}, ids(DedupeByMovie(in)), "保留每部电影的第一条；无标题的全部保留")
	assert.Empty(t, DedupeByMovie(nil))
}

func TestFilterByDistance(t *testing.T) {
	in := []domain.DocumentHit{hit("a", "A", 0.2), hit("b", "B", 0.5), hit("c", "C", 0.7)}
	assert.Equal(t, []string{"a"}, ids(FilterByDistance(in, 0.5)), "阈值是严格小于")
}

func TestTopK(t *testing.T) {
	in := []domain.DocumentHit{hit("a", "A", 0), hit("b", "B", 0), hit("c", "C", 0)}
	assert.Equal(t, []string{"a", "b"}, ids(TopK(in, 2)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(TopK(in, 10)))
	assert.Empty(t, TopK(in, 0))

	out := TopK(in, 2)
	out[0].ID = "changed"
	assert.Equal(t, "a", in[0].ID, "返回副本")
}

type searcherFunc func(ctx context.Context, q string, k int) ([]domain.DocumentHit, error)

func (f searcherFunc) SearchDocuments(ctx context.Context, q string, k int) ([]domain.DocumentHit, error) {
	return f(ctx, q, k)
}

func TestRecommend(t *testing.T) {
	var gotK int
	s := searcherFunc(func(_ context.Context, q string, k int) ([]domain.DocumentHit, error) {
		gotK = k
		assert.Equal(t, "heist", q)
		return []domain.DocumentHit{
			hit("a", "Heat", 0.1),
			hit("b", "Heat", 0.2),
			hit("c", "Ronin", 0.3),
			hit("d", "Inside Man", 0.9),
		}, nil
	})

	out, err := Recommend(context.Background(), s, "heist", Options{K: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, gotK, "多取 3 倍")
	assert.Equal(t, []string{"a", "c"}, ids(out))

	out, err = Recommend(context.Background(), s, "heist", Options{K: 5, MaxDistance: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(out))

	_, err = Recommend(context.Background(), s, "heist", Options{})
	require.NoError(t, err)
	assert.Equal(t, 15, gotK, "k<=0 默认 5")
}

func TestRecommend_Error(t *testing.T) {
	boom := errors.New("boom")
	s := searcherFunc(func(context.Context, string, int) ([]domain.DocumentHit, error) { return nil, boom })
	_, err := Recommend(context.Background(), s, "x", Options{K: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

package impl

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudstory/cloudstory/internal/entities"
	storage "github.com/cloudstory/cloudstory/internal/storage/mock"
)

func TestRankPosts(t *testing.T) {
	p1 := &entities.Post{ID: 1, ViewCount: 10, LikeCount: 5, DislikeCount: 1}
	p2 := &entities.Post{ID: 2, ViewCount: 20}

	ranked := rankPosts([]*entities.Post{p1, p2}, todayWeight)
	require.Equal(t, []*entities.Post{p2, p1}, ranked)

	// input order is not touched
	assert.Equal(t, int64(1), p1.ID)
	assert.EqualValues(t, 28.5, score(p1, todayWeight))
	assert.EqualValues(t, 45, score(p2, todayWeight))
}

func TestRankPosts_Empty(t *testing.T) {
	assert.Empty(t, rankPosts(nil, todayWeight))
	assert.Empty(t, rankPosts([]*entities.Post{}, weekWeight))
}

func TestRankPosts_StableTies(t *testing.T) {
	// same score, creation order must survive the sort
	p1 := &entities.Post{ID: 1, ViewCount: 10}
	p2 := &entities.Post{ID: 2, ViewCount: 10}
	p3 := &entities.Post{ID: 3, ViewCount: 100}

	ranked := rankPosts([]*entities.Post{p1, p2, p3}, weekWeight)
	require.Equal(t, []*entities.Post{p3, p1, p2}, ranked)
}

func TestRankPosts_NegativeScore(t *testing.T) {
	p1 := &entities.Post{ID: 1, DislikeCount: 10}
	p2 := &entities.Post{ID: 2}

	ranked := rankPosts([]*entities.Post{p1, p2}, todayWeight)
	require.Equal(t, []*entities.Post{p2, p1}, ranked)
}

func TestScore(t *testing.T) {
	p := &entities.Post{ViewCount: 3, LikeCount: 2, DislikeCount: 1}

	// views + 2*likes - dislikes, scaled by the window weight
	assert.EqualValues(t, 9, score(p, 1.5))
	assert.EqualValues(t, 7.2, score(p, 1.2))
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2024, 3, 15, 13, 45, 59, 1, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), startOfDay(ts))
}

func TestStartOfWeek(t *testing.T) {
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	tt := []struct {
		name string
		ts   time.Time
	}{
		{name: "monday", ts: time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC)},
		{name: "wednesday", ts: time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)},
		{name: "sunday", ts: time.Date(2024, 3, 17, 23, 59, 59, 0, time.UTC)},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, monday, startOfWeek(tc.ts))
		})
	}
}

func TestSrv_PopularToday(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := storage.NewMockStorage(ctrl)

	srv := newTestSrv(t, s)
	now := time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return now }

	p1 := &entities.Post{ID: 1, ViewCount: 10, LikeCount: 5, DislikeCount: 1}
	p2 := &entities.Post{ID: 2, ViewCount: 20}

	s.EXPECT().ListPostsCreatedAfter(gomock.Any(), time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)).
		Return([]*entities.Post{p1, p2}, nil)

	posts, err := srv.PopularToday(context.Background())
	require.NoError(t, err)
	require.Equal(t, []*entities.Post{p2, p1}, posts)
}

func TestSrv_PopularWeek(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := storage.NewMockStorage(ctrl)

	srv := newTestSrv(t, s)
	now := time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return now }

	s.EXPECT().ListPostsCreatedAfter(gomock.Any(), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)).
		Return(nil, context.Canceled)

	posts, err := srv.PopularWeek(context.Background())
	require.Error(t, err)
	require.Nil(t, posts)
}

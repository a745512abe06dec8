package impl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloudstory/cloudstory/internal/entities"
)

const (
	todayWeight = 1.5
	weekWeight  = 1.2
)

func (s *srv) PopularToday(ctx context.Context) ([]*entities.Post, error) {
	return s.popular(ctx, startOfDay(s.now()), todayWeight)
}

func (s *srv) PopularWeek(ctx context.Context) ([]*entities.Post, error) {
	return s.popular(ctx, startOfWeek(s.now()), weekWeight)
}

func (s *srv) popular(ctx context.Context, cutoff time.Time, weight float64) ([]*entities.Post, error) {
	posts, err := s.s.ListPostsCreatedAfter(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return rankPosts(posts, weight), nil
}

// rankPosts orders posts by weighted popularity score, highest first.
// The sort is stable, posts with equal scores keep their input order.
func rankPosts(posts []*entities.Post, weight float64) []*entities.Post {
	out := make([]*entities.Post, len(posts))
	copy(out, posts)

	sort.SliceStable(out, func(i, j int) bool {
		return score(out[i], weight) > score(out[j], weight)
	})

	return out
}

func score(p *entities.Post, weight float64) float64 {
	return (float64(p.ViewCount) + 2*float64(p.LikeCount) - float64(p.DislikeCount)) * weight
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns Monday 00:00 of t's week.
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	return startOfDay(t).AddDate(0, 0, -(weekday - 1))
}

package recall

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/utils"
)

// 个性化策略的解释文案
const (
	ReasonMatchesInterests = "Matches your interests"
	ReasonSimilarToViewed  = "Similar to content you've viewed"
	ReasonRecentlyAdded    = "Recently published."
)

// Personalized 是“适合这个用户”策略。
//
// 候选集为当前索引的目录快照，去掉调用方排除与用户已浏览的内容；
// 每个候选按用户画像加权打分：
//   - 类型命中偏好类型
//   - 类别与偏好类别相交
//   - 难度命中偏好难度
//   - 与最近浏览内容的最大相似度（索引双向查找）
//   - 发布时间在新近窗口内
//
// 分数不超过 MinScore 的候选被丢弃，其余按分数降序、发布时间降序、ID 升序排序。
// 画像由调用方解析后放在 rctx.User 中，为空时按空画像处理。
type Personalized struct {
	Index   *index.Holder
	Weights core.PersonalizedWeights
}

// NewPersonalized 使用默认权重表创建个性化策略。
func NewPersonalized(h *index.Holder) *Personalized {
	return &Personalized{Index: h, Weights: core.DefaultPersonalizedWeights()}
}

func (r *Personalized) Name() string        { return StrategyPersonalized }
func (r *Personalized) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Personalized) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	return r.Recall(ctx, rctx)
}

func (r *Personalized) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.RecommendationScore, error) {
	if r.Index == nil || rctx == nil {
		return []*core.RecommendationScore{}, nil
	}
	user := rctx.User
	if user == nil {
		user = core.NewUserProfile(rctx.UserID)
	}

	x := r.Index.Current()
	now := rctx.Clock()
	recent := user.RecentViewed(r.Weights.RecentViewed)

	type candidate struct {
		score *core.RecommendationScore
		item  *core.ContentItem
	}
	cands := make([]candidate, 0)
	for _, item := range x.Items() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rctx.IsExcluded(item.ID) || user.HasViewed(item.ID) || !rctx.AllowsType(item.Type) {
			continue
		}
		s := r.score(x, user, recent, item, now)
		if s.Score <= r.Weights.MinScore {
			continue
		}
		cands = append(cands, candidate{score: s, item: item})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score.Score != b.score.Score {
			return a.score.Score > b.score.Score
		}
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.After(b.item.CreatedAt)
		}
		return a.item.ID < b.item.ID
	})

	out := make([]*core.RecommendationScore, len(cands))
	for i, c := range cands {
		out[i] = c.score
	}
	return out, nil
}

func (r *Personalized) score(
	x *index.Index,
	user *core.UserProfile,
	recent []string,
	item *core.ContentItem,
	now time.Time,
) *core.RecommendationScore {
	w := r.Weights
	s := core.NewRecommendationScore(item.ID)

	if user.PrefersType(item.Type) {
		s.Score += w.Type
		s.AddReason(fmt.Sprintf("Matches your %s preference", item.Type))
	}
	if user.PrefersAnyCategory(item.Categories) {
		s.Score += w.Category
		s.AddReason(ReasonMatchesInterests)
	}
	if user.PrefersDifficulty(item.Difficulty) {
		s.Score += w.Difficulty
		s.AddReason(fmt.Sprintf("%s level content", item.Difficulty.Label()))
	}

	maxSim := 0.0
	for _, viewed := range recent {
		if sim := x.MutualSimilarity(item.ID, viewed); sim > maxSim {
			maxSim = sim
		}
	}
	if maxSim > 0 {
		s.Score += w.Similarity * maxSim
		if maxSim > w.SimilarityReasonThreshold {
			s.AddReason(ReasonSimilarToViewed)
		}
	}

	if !item.CreatedAt.IsZero() && now.Sub(item.CreatedAt) <= w.RecencyWindow {
		s.Score += w.Recency
		s.AddReason(ReasonRecentlyAdded)
	}
	// 相似度是唯一贡献项但未过理由阈值时，仍需给出理由
	if maxSim > 0 && len(s.Reasons) == 0 {
		s.AddReason(ReasonSimilarToViewed)
	}

	s.PutLabel(utils.LabelWeightsVersion, utils.Label{Value: w.Version, Source: "recall"})
	return s
}

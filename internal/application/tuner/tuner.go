// Package tuner 反馈驱动的权重调参：周期性地把用户对洞见的
// 接受/拒绝行为回归到乘数权重上，写出新版本的权重档案。
// 调参失败不影响流水线，引擎继续使用最后一个已知好的版本。
package tuner

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/pkg/errors"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
	"github.com/dmedlin87/Theoria-sub008/pkg/metrics"
)

var tracer = otel.Tracer("tuner")

const (
	// trainWindow 回看多长的反馈历史
	trainWindow = 30 * 24 * time.Hour
	// epochs / learningRate 梯度下降参数。样本量小，简单 SGD 足够
	epochs       = 200
	learningRate = 0.05
	// blendRatio 新旧权重混合比例，避免单轮反馈把档案拉飞
	blendRatio = 0.3
	// snoozeNegativeThreshold 同一洞见累计 snooze 次数达到该值视为负例
	snoozeNegativeThreshold = 2
)

// Tuner 反馈调参器
type Tuner struct {
	actionRepo  repository.ActionRepository
	insightRepo repository.InsightRepository
	weightRepo  repository.WeightRepository
	cfg         *config.EngineConfig
	now         func() time.Time
}

// New 创建调参器
func New(
	actionRepo repository.ActionRepository,
	insightRepo repository.InsightRepository,
	weightRepo repository.WeightRepository,
	cfg *config.EngineConfig,
) *Tuner {
	return &Tuner{
		actionRepo:  actionRepo,
		insightRepo: insightRepo,
		weightRepo:  weightRepo,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Latest 获取某模式当前生效的权重档案，尚无历史版本时返回默认档案
func (t *Tuner) Latest(ctx context.Context, mode string) (*entity.WeightProfile, error) {
	profile, err := t.weightRepo.Latest(ctx, mode)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return entity.DefaultWeightProfile(mode), nil
	}
	return profile, nil
}

// Versions 列出某模式全部历史版本，按版本号倒序
func (t *Tuner) Versions(ctx context.Context, mode string) ([]*entity.WeightProfile, error) {
	return t.weightRepo.ListVersions(ctx, mode)
}

// Rollback 回滚到指定历史版本。档案只追加不改写，
// 回滚即复制目标版本的内容写为新版本。
func (t *Tuner) Rollback(ctx context.Context, mode string, version int) (*entity.WeightProfile, error) {
	ctx, span := tracer.Start(ctx, "tuner.Rollback",
		trace.WithAttributes(
			attribute.String("mode", mode),
			attribute.Int("version", version),
		))
	defer span.End()

	target, err := t.weightRepo.GetByVersion(ctx, mode, version)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if target == nil {
		return nil, errors.New(errors.CodeNotFound, "weight profile version not found")
	}

	latest, err := t.weightRepo.Latest(ctx, mode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	next := *target
	next.ID = uuid.NewString()
	next.Version = latest.Version + 1
	if err := t.weightRepo.Create(ctx, &next); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.FromContext(ctx).Info("weight profile rolled back",
		"mode", mode,
		"from_version", version,
		"new_version", next.Version,
	)
	metrics.WeightProfileVersion.WithLabelValues(mode).Set(float64(next.Version))
	return &next, nil
}

// sample 一条训练样本：解释器特征 + 二元标签
type sample struct {
	features entity.EdgeFeatures
	label    float64
}

// Run 跑一轮调参。样本不足时跳过，不算失败。
func (t *Tuner) Run(ctx context.Context, mode string) (*entity.WeightProfile, error) {
	ctx, span := tracer.Start(ctx, "tuner.Run",
		trace.WithAttributes(attribute.String("mode", mode)))
	defer span.End()

	profile, err := t.run(ctx, mode)
	if err != nil {
		span.RecordError(err)
		metrics.TunerRunsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}
	if profile == nil {
		metrics.TunerRunsTotal.WithLabelValues(mode, "skipped").Inc()
		return nil, nil
	}

	metrics.TunerRunsTotal.WithLabelValues(mode, "ok").Inc()
	metrics.WeightProfileVersion.WithLabelValues(mode).Set(float64(profile.Version))
	return profile, nil
}

func (t *Tuner) run(ctx context.Context, mode string) (*entity.WeightProfile, error) {
	since := t.now().Add(-trainWindow)

	count, err := t.actionRepo.CountSince(ctx, mode, since)
	if err != nil {
		return nil, err
	}
	if count < t.cfg.TunerMinActions {
		logger.FromContext(ctx).Info("tuner skipped, not enough feedback",
			"mode", mode, "actions", count, "required", t.cfg.TunerMinActions)
		return nil, nil
	}

	actions, err := t.actionRepo.ListSince(ctx, mode, since)
	if err != nil {
		return nil, err
	}

	samples, err := t.collectSamples(ctx, actions)
	if err != nil {
		return nil, err
	}
	if len(samples) < t.cfg.TunerMinActions {
		logger.FromContext(ctx).Info("tuner skipped, not enough labeled samples",
			"mode", mode, "samples", len(samples))
		return nil, nil
	}

	current, err := t.weightRepo.Latest(ctx, mode)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = entity.DefaultWeightProfile(mode)
	}

	trained := fit(samples, current)
	next := blend(current, trained)
	next.ID = uuid.NewString()
	next.Version = current.Version + 1

	if !next.Valid() {
		return nil, errors.New(errors.CodeTuningFailed, "tuned profile failed validation")
	}

	if err := t.weightRepo.Create(ctx, next); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("weight profile tuned",
		"mode", mode,
		"version", next.Version,
		"samples", len(samples),
	)
	return next, nil
}

// collectSamples 把反馈转成训练样本。accept/pin 正例，discard/mute 负例，
// 同一洞见累计两次以上 snooze 也算负例。特征取洞见的解释器分解。
func (t *Tuner) collectSamples(ctx context.Context, actions []*entity.UserAction) ([]sample, error) {
	type insightFeedback struct {
		label   float64
		labeled bool
		snoozes int
	}
	feedback := make(map[string]*insightFeedback)

	for _, a := range actions {
		fb := feedback[a.InsightID]
		if fb == nil {
			fb = &insightFeedback{}
			feedback[a.InsightID] = fb
		}
		if label, ok := a.Action.Label(); ok {
			// 后到的显式反馈覆盖先前的
			fb.label = label
			fb.labeled = true
		} else if a.Action == entity.ActionSnooze {
			fb.snoozes++
		}
	}

	samples := make([]sample, 0, len(feedback))
	for insightID, fb := range feedback {
		label := fb.label
		if !fb.labeled {
			if fb.snoozes < snoozeNegativeThreshold {
				continue
			}
			label = 0
		}

		ins, err := t.insightRepo.GetByID(ctx, insightID)
		if err != nil {
			return nil, err
		}
		if ins == nil {
			continue
		}
		samples = append(samples, sample{
			features: ins.Payload.Explainer,
			label:    label,
		})
	}
	return samples, nil
}

// fit 在解释器特征上跑逻辑回归，系数顺序与乘数权重一致：
// 截距、jaccard、modality、source、recency、stability。
func fit(samples []sample, init *entity.WeightProfile) []float64 {
	w := []float64{init.W0, init.W1, init.W2, init.W3, init.W4, init.W5}

	for epoch := 0; epoch < epochs; epoch++ {
		for _, s := range samples {
			x := featureVector(s.features)
			pred := sigmoid(dot(w, x))
			grad := pred - s.label
			for i := range w {
				w[i] -= learningRate * grad * x[i]
			}
		}
	}
	return w
}

// blend 新旧权重线性混合并裁剪到非负，保持乘数语义
func blend(current *entity.WeightProfile, trained []float64) *entity.WeightProfile {
	next := *current
	old := []float64{current.W0, current.W1, current.W2, current.W3, current.W4, current.W5}

	blended := make([]float64, len(old))
	for i := range old {
		blended[i] = (1-blendRatio)*old[i] + blendRatio*trained[i]
		if blended[i] < 0 {
			blended[i] = 0
		}
	}

	next.W0, next.W1, next.W2 = blended[0], blended[1], blended[2]
	next.W3, next.W4, next.W5 = blended[3], blended[4], blended[5]
	return &next
}

func featureVector(f entity.EdgeFeatures) []float64 {
	return []float64{
		1,
		f.JaccardTags,
		f.ModalityDiversity,
		f.SourceDiversity,
		f.Recency,
		f.Stability,
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

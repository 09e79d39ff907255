package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

func TestClassify(t *testing.T) {
	profile := entity.DefaultWeightProfile("study")

	tests := []struct {
		name          string
		score         float64
		contradiction bool
		diverse       bool
		wantType      entity.InsightType
		wantOK        bool
	}{
		{
			name:     "高分多样无矛盾判汇聚",
			score:    0.04,
			diverse:  true,
			wantType: entity.InsightTypeConvergence,
			wantOK:   true,
		},
		{
			name:     "阈值边界判汇聚",
			score:    profile.TauConv,
			diverse:  true,
			wantType: entity.InsightTypeConvergence,
			wantOK:   true,
		},
		{
			name:   "高分但同源同模态不发射",
			score:  0.04,
			wantOK: false,
		},
		{
			name:          "高分有矛盾判冲突",
			score:         0.04,
			contradiction: true,
			diverse:       true,
			wantType:      entity.InsightTypeCollision,
			wantOK:        true,
		},
		{
			name:          "冲突不要求多样性",
			score:         0.04,
			contradiction: true,
			wantType:      entity.InsightTypeCollision,
			wantOK:        true,
		},
		{
			name:          "冲突阈值边界",
			score:         profile.TauCol,
			contradiction: true,
			wantType:      entity.InsightTypeCollision,
			wantOK:        true,
		},
		{
			name:     "中分多样判线索",
			score:    0.025,
			diverse:  true,
			wantType: entity.InsightTypeLead,
			wantOK:   true,
		},
		{
			name:   "中分不多样不发射",
			score:  0.025,
			wantOK: false,
		},
		{
			name:          "中分有矛盾但不及冲突阈值判线索",
			score:         0.025,
			contradiction: true,
			diverse:       true,
			wantType:      entity.InsightTypeLead,
			wantOK:        true,
		},
		{
			name:    "低分不发射",
			score:   0.01,
			diverse: true,
			wantOK:  false,
		},
		{
			name:          "低分有矛盾也不发射",
			score:         0.01,
			contradiction: true,
			diverse:       true,
			wantOK:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, ok := Classify(tt.score, tt.contradiction, tt.diverse, profile)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantType, cls.Type)
				assert.Equal(t, tt.score, cls.Score)
			}
		})
	}
}

func TestDiverse(t *testing.T) {
	assert.True(t, Diverse(entity.EdgeFeatures{ModalityDiversity: 1}))
	assert.True(t, Diverse(entity.EdgeFeatures{SourceDiversity: 1}))
	assert.True(t, Diverse(entity.EdgeFeatures{ModalityDiversity: 1, SourceDiversity: 1}))
	assert.False(t, Diverse(entity.EdgeFeatures{}))
}

func TestHasContradiction(t *testing.T) {
	plain := &entity.Object{ID: "a"}
	disputed := &entity.Object{ID: "b", Tags: []string{"disputed"}}

	tests := []struct {
		name      string
		anchor    *entity.Object
		candidate *entity.Object
		edgeKinds []entity.EdgeKind
		want      bool
	}{
		{
			name:      "矛盾边",
			anchor:    plain,
			candidate: plain,
			edgeKinds: []entity.EdgeKind{entity.EdgeKindContradiction},
			want:      true,
		},
		{
			name:      "候选带争议标签",
			anchor:    plain,
			candidate: disputed,
			want:      true,
		},
		{
			name:      "锚点带矛盾标签",
			anchor:    &entity.Object{Tags: []string{"contradiction"}},
			candidate: plain,
			want:      true,
		},
		{
			name:      "无信号",
			anchor:    plain,
			candidate: plain,
			edgeKinds: []entity.EdgeKind{entity.EdgeKindSemanticSim},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasContradiction(tt.anchor, tt.candidate, tt.edgeKinds))
		})
	}
}

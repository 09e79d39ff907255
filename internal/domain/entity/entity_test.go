package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionTypeValid(t *testing.T) {
	for _, a := range []ActionType{ActionAccept, ActionSnooze, ActionDiscard, ActionPin, ActionMute} {
		assert.True(t, a.Valid(), string(a))
	}
	assert.False(t, ActionType("like").Valid())
	assert.False(t, ActionType("").Valid())
}

func TestActionTypeLabel(t *testing.T) {
	tests := []struct {
		action  ActionType
		label   float64
		labeled bool
	}{
		{ActionAccept, 1, true},
		{ActionPin, 1, true},
		{ActionDiscard, 0, true},
		{ActionMute, 0, true},
		{ActionSnooze, 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			label, ok := tt.action.Label()
			assert.Equal(t, tt.labeled, ok)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestActionTypeNextStatus(t *testing.T) {
	assert.Equal(t, InsightStatusActive, ActionAccept.NextStatus())
	assert.Equal(t, InsightStatusSnoozed, ActionSnooze.NextStatus())
	assert.Equal(t, InsightStatusDismissed, ActionDiscard.NextStatus())
	assert.Equal(t, InsightStatusPinned, ActionPin.NextStatus())
	assert.Equal(t, InsightStatusMuted, ActionMute.NextStatus())
}

func TestInsightStatusDismissed(t *testing.T) {
	assert.True(t, InsightStatusDismissed.Dismissed())
	assert.True(t, InsightStatusMuted.Dismissed())
	assert.False(t, InsightStatusActive.Dismissed())
	assert.False(t, InsightStatusSnoozed.Dismissed())
	assert.False(t, InsightStatusPinned.Dismissed())
}

func TestObjectTypeValid(t *testing.T) {
	for _, o := range []ObjectType{ObjectTypePassage, ObjectTypeNote, ObjectTypeClaim, ObjectTypeEvidence} {
		assert.True(t, o.Valid(), string(o))
	}
	assert.False(t, ObjectType("chapter").Valid())
}

func TestObjectSearchable(t *testing.T) {
	assert.True(t, (&Object{}).Searchable())
	assert.False(t, (&Object{Tombstoned: true}).Searchable())
	assert.False(t, (&Object{EmbeddingPending: true}).Searchable())
}

func TestWeightProfileValid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*WeightProfile)
		want   bool
	}{
		{"默认档案合法", func(*WeightProfile) {}, true},
		{"阈值乱序", func(p *WeightProfile) { p.TauConv = p.TauLead - 0.01 }, false},
		{"收敛低于冲突", func(p *WeightProfile) { p.TauCol = p.TauConv + 0.01 }, false},
		{"负权重", func(p *WeightProfile) { p.W3 = -0.1 }, false},
		{"阈值相等", func(p *WeightProfile) { p.TauConv, p.TauCol, p.TauLead = 0.02, 0.02, 0.02 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultWeightProfile(DefaultMode)
			tt.modify(p)
			assert.Equal(t, tt.want, p.Valid())
		})
	}
}

func TestWeightProfileMultiplier(t *testing.T) {
	p := &WeightProfile{W0: 0.2, W1: 0.1, W2: 0.1, W3: 0.1, W4: 0.1, W5: 0.1}

	t.Run("零特征只剩基础权重", func(t *testing.T) {
		assert.InDelta(t, 0.2, p.Multiplier(EdgeFeatures{}), 1e-9)
	})

	t.Run("满特征累加", func(t *testing.T) {
		f := EdgeFeatures{
			JaccardTags:       1,
			ModalityDiversity: 1,
			SourceDiversity:   1,
			Recency:           1,
			Stability:         1,
		}
		assert.InDelta(t, 0.7, p.Multiplier(f), 1e-9)
	})
}

func TestInsightTypeValid(t *testing.T) {
	for _, it := range []InsightType{InsightTypeConvergence, InsightTypeCollision, InsightTypeLead, InsightTypeBundle} {
		assert.True(t, it.Valid(), string(it))
	}
	assert.False(t, InsightType("hunch").Valid())
}

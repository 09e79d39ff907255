package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	apperrors "github.com/dmedlin87/Theoria-sub008/pkg/errors"
)

func TestRecordActionValidation(t *testing.T) {
	insights := &memInsightRepo{}
	actions := &memActionRepo{}
	tx := &memTx{edges: newMemEdgeRepo(), insights: insights}
	svc := NewQueryService(insights, actions, tx, &memCache{}, newMemCooldown())

	t.Run("洞见不存在时报错且不落反馈", func(t *testing.T) {
		action, err := svc.RecordAction(context.Background(), "no-such-insight", entity.ActionAccept, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInsightNotFound)
		assert.Nil(t, action)
		assert.Empty(t, actions.actions)
	})

	t.Run("非法动作类型直接拒绝", func(t *testing.T) {
		action, err := svc.RecordAction(context.Background(), "whatever", entity.ActionType("explode"), 1)
		require.Error(t, err)
		assert.Nil(t, action)
		assert.Empty(t, actions.actions)
	})
}

func TestRecordActionAdvancesStatus(t *testing.T) {
	insights := &memInsightRepo{}
	actions := &memActionRepo{}
	tx := &memTx{edges: newMemEdgeRepo(), insights: insights}
	cache := &memCache{}
	svc := NewQueryService(insights, actions, tx, cache, newMemCooldown())

	require.NoError(t, insights.Create(context.Background(), &entity.Insight{
		ID:        "ins-1",
		Type:      entity.InsightTypeLead,
		ClusterID: "a|b",
		Mode:      entity.DefaultMode,
		Status:    entity.InsightStatusActive,
		Score:     0.03,
	}))

	action, err := svc.RecordAction(context.Background(), "ins-1", entity.ActionSnooze, 0.8)
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, entity.InsightTypeLead, action.InsightTyp)
	assert.Equal(t, 0.8, action.Confidence)

	ins, err := insights.GetByID(context.Background(), "ins-1")
	require.NoError(t, err)
	assert.Equal(t, entity.InsightStatusSnoozed, ins.Status)
	require.Len(t, actions.actions, 1)
	assert.Equal(t, 1, cache.invalidations)
}

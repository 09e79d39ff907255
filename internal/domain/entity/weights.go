package entity

import "time"

// DefaultMode 未显式指定时使用的权重模式
const DefaultMode = "study"

// WeightProfile 评分权重档案，按版本号追加，不做原地修改。
// 回滚即插入一条等于旧版本内容的新版本。
type WeightProfile struct {
	ID      string `json:"id" gorm:"type:varchar(64);primaryKey"`
	Mode    string `json:"mode" gorm:"type:varchar(32);uniqueIndex:uniq_mode_version;not null"`
	Version int    `json:"version" gorm:"uniqueIndex:uniq_mode_version;not null"`

	// 配对分 = RRF * (W0 + W1*jaccard + W2*modality + W3*source + W4*recency + W5*stability)
	W0 float64 `json:"w0" gorm:"column:w0"` // 基础权重
	W1 float64 `json:"w1" gorm:"column:w1"` // 标签 Jaccard
	W2 float64 `json:"w2" gorm:"column:w2"` // 模态多样性
	W3 float64 `json:"w3" gorm:"column:w3"` // 来源多样性
	W4 float64 `json:"w4" gorm:"column:w4"` // 时间新鲜度
	W5 float64 `json:"w5" gorm:"column:w5"` // 稳定度

	// 分类阈值，约束 TauConv >= TauCol >= TauLead
	TauConv float64 `json:"tau_conv" gorm:"column:tau_conv"`
	TauCol  float64 `json:"tau_col" gorm:"column:tau_col"`
	TauLead float64 `json:"tau_lead" gorm:"column:tau_lead"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (WeightProfile) TableName() string {
	return "weight_profiles"
}

// DefaultWeightProfile 返回某模式下的初始权重档案
func DefaultWeightProfile(mode string) *WeightProfile {
	return &WeightProfile{
		Mode:    mode,
		Version: 1,
		W0:      0.25,
		W1:      0.15,
		W2:      0.15,
		W3:      0.15,
		W4:      0.15,
		W5:      0.15,
		TauConv: 0.035,
		TauCol:  0.030,
		TauLead: 0.020,
	}
}

// Multiplier 根据特征计算权重乘子
func (p *WeightProfile) Multiplier(f EdgeFeatures) float64 {
	return p.W0 +
		p.W1*f.JaccardTags +
		p.W2*f.ModalityDiversity +
		p.W3*f.SourceDiversity +
		p.W4*f.Recency +
		p.W5*f.Stability
}

// Valid 校验阈值顺序与权重非负
func (p *WeightProfile) Valid() bool {
	if p.TauConv < p.TauCol || p.TauCol < p.TauLead {
		return false
	}
	for _, w := range []float64{p.W0, p.W1, p.W2, p.W3, p.W4, p.W5} {
		if w < 0 {
			return false
		}
	}
	return true
}

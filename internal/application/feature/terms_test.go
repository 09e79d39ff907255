package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

func TestTokenize(t *testing.T) {
	obj := &entity.Object{
		Title:     "The Migration Routes",
		Body:      "Routes of the northern migration are seasonal.",
		Tags:      []string{" Ornithology ", ""},
		RefRanges: []string{"Vol2:14-18"},
	}

	terms := Tokenize(obj)

	assert.Contains(t, terms, "migration")
	assert.Contains(t, terms, "routes")
	assert.Contains(t, terms, "seasonal")
	assert.Contains(t, terms, "tag:ornithology")
	assert.Contains(t, terms, "ref:vol2:14-18")

	// 停用词与短词被过滤
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "of")
	assert.NotContains(t, terms, "are")

	// 去重且有序
	assert.IsIncreasing(t, terms)
	seen := map[string]bool{}
	for _, term := range terms {
		assert.False(t, seen[term], "重复词项 %s", term)
		seen[term] = true
	}
}

func TestTokenizeCapsTerms(t *testing.T) {
	obj := &entity.Object{}
	for i := 0; i < 100; i++ {
		obj.Tags = append(obj.Tags, string(rune('a'+i%26))+string(rune('0'+i/26)))
	}

	terms := Tokenize(obj)
	assert.LessOrEqual(t, len(terms), maxTermsPerObject)
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want []string
	}{
		{"有交集", []string{"a", "b", "c"}, []string{"b", "c", "d"}, []string{"b", "c"}},
		{"无交集", []string{"a"}, []string{"b"}, nil},
		{"空输入", nil, []string{"a"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Intersect(tt.a, tt.b))
		})
	}
}

func TestParseCount(t *testing.T) {
	assert.EqualValues(t, 42, parseCount("42"))
	assert.EqualValues(t, 0, parseCount(nil))
	assert.EqualValues(t, 0, parseCount("4.2"))
	assert.EqualValues(t, 0, parseCount(7))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, -2.0, clamp(-5, -2, 2))
	assert.Equal(t, 2.0, clamp(5, -2, 2))
	assert.Equal(t, 0.3, clamp(0.3, -2, 2))
}
